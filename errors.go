package resourcex

import (
	"errors"
	"fmt"

	"github.com/opencontainers/go-digest"

	"github.com/resourcex/resourcex/locator"
)

// ErrResourceUnknown is returned when no manifest exists for a locator.
type ErrResourceUnknown struct {
	Locator locator.Locator
}

func (err ErrResourceUnknown) Error() string {
	return fmt.Sprintf("resource unknown: %s", err.Locator)
}

// ErrResourceExists is returned when a put targets a (registry, name, tag)
// key that already holds a manifest and the store forbids overwrites.
type ErrResourceExists struct {
	Locator locator.Locator
}

func (err ErrResourceExists) Error() string {
	return fmt.Sprintf("resource version already exists: %s", err.Locator)
}

// ErrBlobUnknown is returned when no blob exists for a digest.
type ErrBlobUnknown struct {
	Digest digest.Digest
}

func (err ErrBlobUnknown) Error() string {
	return fmt.Sprintf("blob unknown: %s", err.Digest)
}

// ErrNoLatestPointer is returned by GetLatest when no tag pointer was ever
// written for a (registry, name) pair.
type ErrNoLatestPointer struct {
	Registry string
	Name     string
}

func (err ErrNoLatestPointer) Error() string {
	if err.Registry == "" {
		return fmt.Sprintf("no latest pointer for %s", err.Name)
	}
	return fmt.Sprintf("no latest pointer for %s/%s", err.Registry, err.Name)
}

// ErrCorruptState is returned when stored state fails a consistency check,
// such as a manifest referencing a missing blob or an archive whose
// recomputed digest disagrees with its manifest.
type ErrCorruptState struct {
	Locator locator.Locator
	Reason  string
}

func (err ErrCorruptState) Error() string {
	return fmt.Sprintf("corrupt state for %s: %s", err.Locator, err.Reason)
}

// ErrInvalidDefinition is returned when a definition is missing required
// fields or carries values that cannot form a locator.
type ErrInvalidDefinition struct {
	Reason string
}

func (err ErrInvalidDefinition) Error() string {
	return fmt.Sprintf("invalid definition: %s", err.Reason)
}

// IsResourceUnknown reports whether err indicates a missing resource. The
// resolution pipeline uses this to fall through to its next tier.
func IsResourceUnknown(err error) bool {
	var unknown ErrResourceUnknown
	return errors.As(err, &unknown)
}

// IsCorruptState reports whether err indicates failed state verification.
func IsCorruptState(err error) bool {
	var corrupt ErrCorruptState
	return errors.As(err, &corrupt)
}
