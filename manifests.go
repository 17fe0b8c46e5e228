package resourcex

import (
	"context"

	"github.com/resourcex/resourcex/locator"
)

// SearchOptions filter and paginate manifest queries.
type SearchOptions struct {
	// Registry filters by origin registry. Nil matches manifests from any
	// registry including local ones. A pointer to the empty string matches
	// only local manifests (those with no registry). A pointer to a
	// non-empty string matches that registry exactly.
	Registry *string

	// Query, when non-empty, keeps only manifests whose name contains it,
	// compared case-insensitively.
	Query string

	// Offset skips that many matches before collecting results.
	Offset int

	// Limit caps the number of returned results. Zero means no cap.
	Limit int
}

// RegistryFilter returns a SearchOptions registry filter matching exactly
// the given registry. Use an empty string for local-only manifests.
func RegistryFilter(registry string) *string {
	return &registry
}

// ManifestStore persists stored manifests keyed by (registry, name, tag).
// The locator's path component does not participate in store keys.
// Implementations must be safe for concurrent use.
type ManifestStore interface {
	// Get returns the manifest stored under id's key. Returns
	// ErrResourceUnknown when absent.
	Get(ctx context.Context, id locator.Locator) (*StoredManifest, error)

	// Put stores m under the key derived from its definition, setting
	// UpdatedAt to now and preserving CreatedAt across updates.
	Put(ctx context.Context, m *StoredManifest) error

	// Has reports whether a manifest exists under id's key.
	Has(ctx context.Context, id locator.Locator) (bool, error)

	// Delete removes the manifest under id's key. Returns
	// ErrResourceUnknown when absent.
	Delete(ctx context.Context, id locator.Locator) error

	// ListTags returns the tags stored for (registry, name), sorted
	// lexicographically.
	ListTags(ctx context.Context, registry, name string) ([]string, error)

	// ListNames returns the distinct names stored under registry,
	// optionally narrowed by a case-insensitive substring query.
	ListNames(ctx context.Context, registry, query string) ([]string, error)

	// Search returns the manifests matching opts in insertion order
	// (oldest CreatedAt first), paginated by opts.Offset and opts.Limit,
	// together with the total number of matches before pagination.
	Search(ctx context.Context, opts SearchOptions) ([]*StoredManifest, int, error)

	// DeleteByRegistry removes every manifest stored under registry and
	// returns the number removed.
	DeleteByRegistry(ctx context.Context, registry string) (int, error)

	// SetLatest records tag as the current latest pointer for
	// (registry, name).
	SetLatest(ctx context.Context, registry, name, tag string) error

	// GetLatest returns the tag the latest pointer for (registry, name)
	// refers to. Returns ErrNoLatestPointer when none was ever set.
	GetLatest(ctx context.Context, registry, name string) (string, error)

	// Walk visits every stored manifest. Returning an error from fn stops
	// the walk and propagates the error.
	Walk(ctx context.Context, fn func(id locator.Locator, m *StoredManifest) error) error
}
