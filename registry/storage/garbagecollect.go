package storage

import (
	"context"

	"github.com/opencontainers/go-digest"

	"github.com/resourcex/resourcex"
	"github.com/resourcex/resourcex/internal/dcontext"
	"github.com/resourcex/resourcex/locator"
)

// GCOpts configures a mark-and-sweep pass.
type GCOpts struct {
	// DryRun reports what would be deleted without deleting anything.
	DryRun bool
}

// MarkAndSweep walks every stored manifest to mark reachable blobs, then
// deletes the rest. The mark phase runs under the registry's exclusive
// lock so no blob referenced by a pre-existing manifest can be swept;
// deletions happen after the lock is released.
func MarkAndSweep(ctx context.Context, reg *Registry, opts GCOpts) (int, error) {
	return reg.markAndSweep(ctx, opts.DryRun)
}

func (reg *Registry) markAndSweep(ctx context.Context, dryRun bool) (int, error) {
	log := dcontext.GetLogger(ctx)

	reg.gcMu.Lock()
	reachable := make(map[digest.Digest]struct{})
	err := reg.manifestStore.Walk(ctx, func(id locator.Locator, sm *resourcex.StoredManifest) error {
		for _, dgst := range sm.Files {
			reachable[dgst] = struct{}{}
		}
		return nil
	})
	reg.gcMu.Unlock()
	if err != nil {
		return 0, err
	}

	blobs, err := reg.blobStore.List(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, dgst := range blobs {
		if _, ok := reachable[dgst]; ok {
			continue
		}
		if dryRun {
			log.Infof("blob eligible for deletion: %s", dgst)
			deleted++
			continue
		}
		if err := reg.blobStore.Delete(ctx, dgst); err != nil {
			// Already gone, likely swept by a concurrent pass.
			if _, ok := err.(resourcex.ErrBlobUnknown); ok {
				continue
			}
			return deleted, err
		}
		log.Debugf("garbage collected blob %s", dgst)
		deleted++
	}

	gcSweepCounter.Inc()
	gcDeletedCounter.Inc(float64(deleted))
	return deleted, nil
}
