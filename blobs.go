package resourcex

import (
	"context"

	"github.com/opencontainers/go-digest"
)

// BlobStore holds resource file content addressed by digest. Implementations
// must be safe for concurrent use.
type BlobStore interface {
	// Get returns the content stored under dgst. Returns ErrBlobUnknown
	// when no such blob exists.
	Get(ctx context.Context, dgst digest.Digest) ([]byte, error)

	// Put stores content and returns its digest. Put is idempotent:
	// identical content yields an identical digest and at most one
	// physical write.
	Put(ctx context.Context, content []byte) (digest.Digest, error)

	// Has reports whether a blob with the given digest exists.
	Has(ctx context.Context, dgst digest.Digest) (bool, error)

	// Delete removes the blob stored under dgst. Deleting referenced
	// blobs is permitted; garbage collection is the intended caller.
	Delete(ctx context.Context, dgst digest.Digest) error

	// List enumerates the digest of every stored blob.
	List(ctx context.Context) ([]digest.Digest, error)
}
