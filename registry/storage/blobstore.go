package storage

import (
	"context"
	"errors"

	"github.com/opencontainers/go-digest"

	"github.com/resourcex/resourcex"
	"github.com/resourcex/resourcex/internal/dcontext"
	storagedriver "github.com/resourcex/resourcex/registry/storage/driver"
)

// blobStore implements resourcex.BlobStore over a storage driver. Content
// is keyed by the canonical digest of its bytes, so the store is naturally
// deduplicating and writes are idempotent.
type blobStore struct {
	driver storagedriver.StorageDriver
}

var _ resourcex.BlobStore = &blobStore{}

func (bs *blobStore) Get(ctx context.Context, dgst digest.Digest) ([]byte, error) {
	if err := dgst.Validate(); err != nil {
		return nil, resourcex.ErrBlobUnknown{Digest: dgst}
	}
	content, err := bs.driver.GetContent(ctx, blobPath(dgst))
	if err != nil {
		var notFound storagedriver.PathNotFoundError
		if errors.As(err, &notFound) {
			return nil, resourcex.ErrBlobUnknown{Digest: dgst}
		}
		return nil, err
	}
	return content, nil
}

func (bs *blobStore) Put(ctx context.Context, content []byte) (digest.Digest, error) {
	dgst := digest.FromBytes(content)

	// Identical content is already present under the same path; skip the
	// physical write.
	exists, err := bs.driver.Stat(ctx, blobPath(dgst))
	if err != nil {
		return "", err
	}
	if exists {
		return dgst, nil
	}

	if err := bs.driver.PutContent(ctx, blobPath(dgst), content); err != nil {
		return "", err
	}
	dcontext.GetLoggerWithField(ctx, "blob.digest", dgst).Debug("blob written")
	return dgst, nil
}

func (bs *blobStore) Has(ctx context.Context, dgst digest.Digest) (bool, error) {
	if err := dgst.Validate(); err != nil {
		return false, nil
	}
	return bs.driver.Stat(ctx, blobPath(dgst))
}

func (bs *blobStore) Delete(ctx context.Context, dgst digest.Digest) error {
	if err := dgst.Validate(); err != nil {
		return resourcex.ErrBlobUnknown{Digest: dgst}
	}
	err := bs.driver.Delete(ctx, blobPath(dgst))
	if err != nil {
		var notFound storagedriver.PathNotFoundError
		if errors.As(err, &notFound) {
			return resourcex.ErrBlobUnknown{Digest: dgst}
		}
	}
	return err
}

func (bs *blobStore) List(ctx context.Context) ([]digest.Digest, error) {
	names, err := bs.driver.List(ctx, blobsRoot)
	if err != nil {
		var notFound storagedriver.PathNotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}

	digests := make([]digest.Digest, 0, len(names))
	for _, name := range names {
		dgst := digest.NewDigestFromEncoded(digest.Canonical, name)
		if err := dgst.Validate(); err != nil {
			// Not blob content; ignore.
			continue
		}
		digests = append(digests, dgst)
	}
	return digests, nil
}
