// Package driver defines the storage backend contract used by the registry
// stores. A driver is a flat key/value object store with slash-separated
// paths; the registry layers blob, manifest and link semantics on top of
// it. Implementations must be safe for concurrent use.
package driver

import (
	"context"
	"fmt"
	"regexp"
)

// Version is a string representing the storage driver version, of the form
// Major.Minor.
type Version string

// CurrentVersion is the current storage driver Version.
const CurrentVersion Version = "0.1"

// StorageDriver defines the methods a storage backend must implement for a
// filesystem-like key/value object store. Paths are slash-separated, begin
// with a slash and never end with one.
type StorageDriver interface {
	// Name returns the human-readable "name" of the driver, useful in
	// logging and error reporting.
	Name() string

	// GetContent retrieves the content stored at path.
	GetContent(ctx context.Context, path string) ([]byte, error)

	// PutContent stores content at path, creating intermediate
	// directories as needed and replacing any previous content.
	PutContent(ctx context.Context, path string, content []byte) error

	// Stat reports whether an object exists at path.
	Stat(ctx context.Context, path string) (bool, error)

	// List returns the base names of the objects and directories that
	// are direct descendants of path.
	List(ctx context.Context, path string) ([]string, error)

	// Delete recursively deletes all objects stored at path and its
	// subpaths.
	Delete(ctx context.Context, path string) error

	// Walk visits every object stored under path in lexicographic
	// order. Returning an error from fn stops the walk and propagates
	// the error.
	Walk(ctx context.Context, path string, fn WalkFn) error
}

// WalkFn is called once per object by Walk.
type WalkFn func(path string) error

// PathRegexp is the regular expression which each path must match. A path
// is absolute, beginning with a slash, and consists of slash-separated
// components of alphanumerics and the separators ".", "-", "_" and ":".
var PathRegexp = regexp.MustCompile(`^(/[A-Za-z0-9._:-]+)+$`)

// PathNotFoundError is returned when operating on a nonexistent path.
type PathNotFoundError struct {
	Path       string
	DriverName string
}

func (err PathNotFoundError) Error() string {
	return fmt.Sprintf("%s: path not found: %s", err.DriverName, err.Path)
}

// InvalidPathError is returned when a path does not match PathRegexp.
type InvalidPathError struct {
	Path       string
	DriverName string
}

func (err InvalidPathError) Error() string {
	return fmt.Sprintf("%s: invalid path: %s", err.DriverName, err.Path)
}

// Error wraps an unexpected failure from a driver, preserving the driver
// name for reporting.
type Error struct {
	DriverName string
	Detail     error
}

func (err Error) Error() string {
	return fmt.Sprintf("%s: %v", err.DriverName, err.Detail)
}

func (err Error) Unwrap() error {
	return err.Detail
}
