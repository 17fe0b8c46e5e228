// Package source turns an opaque source reference, a directory path or an
// HTTPS URL, into a complete resource ready to store: a loader chain
// materializes the file tree and a detector chain determines the resource
// definition.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/resourcex/resourcex/archive"
)

// Source is a loaded file tree together with the reference it came from.
type Source struct {
	// Origin is the reference handed to the loader.
	Origin string

	// Files holds the loaded file tree.
	Files *archive.Package
}

// Loader materializes the file tree behind one kind of source reference.
type Loader interface {
	// Name identifies the loader in logs and errors.
	Name() string

	// CanLoad reports whether the loader recognizes the reference. The
	// first loader in the chain to claim a reference handles it.
	CanLoad(src string) bool

	// Load materializes the file tree behind the reference.
	Load(ctx context.Context, src string) (*Source, error)
}

// FreshnessReporter is implemented by loaders that can tell whether a
// source changed since it was last ingested.
type FreshnessReporter interface {
	// IsFresh reports whether a copy ingested at cachedAt still matches
	// the source.
	IsFresh(ctx context.Context, src string, cachedAt time.Time) (bool, error)
}

// Detection is a detector's verdict about a file tree.
type Detection struct {
	Type        string
	Name        string
	Tag         string
	Description string
	Author      string
	License     string
	Keywords    []string
	Repository  string

	// ExcludeFromContent lists files that informed detection but do not
	// belong in the packed resource, such as the authoring metadata
	// file itself.
	ExcludeFromContent []string
}

// Detector inspects a loaded file tree and recognizes one resource kind.
type Detector interface {
	// Name identifies the detector in logs and errors.
	Name() string

	// Detect returns a detection when the file tree matches this
	// detector's resource kind, nil when it does not.
	Detect(src *Source) (*Detection, error)
}

// NoLoaderError is returned when no loader in the chain recognizes a
// source reference.
type NoLoaderError struct {
	Source string
}

func (err NoLoaderError) Error() string {
	return fmt.Sprintf("no loader for source %q", err.Source)
}

// UndetectableError is returned when no detector recognizes a loaded file
// tree.
type UndetectableError struct {
	Source string
}

func (err UndetectableError) Error() string {
	return fmt.Sprintf("cannot detect resource type of %q", err.Source)
}
