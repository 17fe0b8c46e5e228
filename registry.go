package resourcex

import (
	"context"

	"github.com/resourcex/resourcex/archive"
	"github.com/resourcex/resourcex/locator"
)

// Registry is the content-addressable store for complete resources. It
// composes a BlobStore and a ManifestStore: archives are exploded into
// per-file blobs on Put and reassembled on Get.
type Registry interface {
	// Put stores a complete resource. File blobs are written before the
	// manifest, so an interrupted Put leaves at worst orphan blobs that a
	// later GC reclaims, never a manifest referencing missing content.
	// The latest pointer for (registry, name) is rewritten to the
	// resource's tag.
	Put(ctx context.Context, res *Resource) error

	// Get retrieves the resource stored under id, resolving the default
	// tag through the latest pointer. Returns ErrResourceUnknown when no
	// manifest exists and ErrCorruptState when a referenced blob is
	// missing or fails verification.
	Get(ctx context.Context, id locator.Locator) (*Resource, error)

	// GetManifest returns the stored manifest for id with the same tag
	// resolution as Get, without touching blob content.
	GetManifest(ctx context.Context, id locator.Locator) (*StoredManifest, error)

	// Has reports whether a manifest exists for id, using the same tag
	// resolution as Get.
	Has(ctx context.Context, id locator.Locator) (bool, error)

	// Remove deletes only the manifest entry for id; blobs are kept for
	// GC. Removing an absent entry is a no-op.
	Remove(ctx context.Context, id locator.Locator) error

	// List returns the stored manifests matching opts together with the
	// total match count before pagination.
	List(ctx context.Context, opts SearchOptions) ([]*StoredManifest, int, error)

	// ClearCache deletes manifests cached from remote registries. With a
	// non-empty registry argument only that registry's manifests are
	// dropped; with an empty argument every remote registry is cleared.
	// Local manifests and blobs are never touched.
	ClearCache(ctx context.Context, registry string) (int, error)

	// GC deletes every blob not referenced by any stored manifest and
	// returns the number deleted. The reachability scan excludes
	// concurrent writes; deletions proceed without the lock.
	GC(ctx context.Context) (int, error)
}

// Execution describes one resource execution request handed to an Executor:
// the resource's type and identifier, its manifest, the unpacked file tree
// and the caller-provided arguments.
type Execution struct {
	Type     string
	Locator  locator.Locator
	Manifest Manifest
	Files    *archive.Package
	Args     map[string]interface{}
}

// Executor runs resources. The registry core does not prescribe how
// execution happens; implementations may interpret files in-process, spawn
// a sandboxed subprocess or call a remote service. The core guarantees the
// executor observes exactly the file bytes that were stored: archives
// failing digest verification are rejected before Execute is called.
type Executor interface {
	Execute(ctx context.Context, req *Execution) (interface{}, error)
}
