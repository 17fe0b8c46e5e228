// Package storage implements the content-addressable resource registry
// over a storage driver: a deduplicating blob store, a manifest store with
// tag pointers, and the registry combining the two.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	prometheus "github.com/docker/go-metrics"
	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"

	"github.com/resourcex/resourcex"
	"github.com/resourcex/resourcex/archive"
	"github.com/resourcex/resourcex/internal/dcontext"
	"github.com/resourcex/resourcex/locator"
	"github.com/resourcex/resourcex/metrics"
	storagedriver "github.com/resourcex/resourcex/registry/storage/driver"
)

// blobFetchConcurrency bounds the parallel blob reads performed while
// reassembling a resource.
const blobFetchConcurrency = 4

var (
	putCounter       = metrics.StorageNamespace.NewCounter("put", "The number of resources stored")
	getCounter       = metrics.StorageNamespace.NewCounter("get", "The number of resources retrieved")
	gcSweepCounter   = metrics.StorageNamespace.NewCounter("gc_sweeps", "The number of garbage collection sweeps")
	gcDeletedCounter = metrics.StorageNamespace.NewCounter("gc_deleted_blobs", "The number of blobs deleted by garbage collection")
)

func init() {
	prometheus.Register(metrics.StorageNamespace)
}

// Registry is the driver-backed resourcex.Registry implementation. The
// registry exclusively owns the blob and manifest stores it constructs;
// Blobs and Manifests expose read handles for diagnostics and tooling.
type Registry struct {
	blobStore     *blobStore
	manifestStore *manifestStore

	// gcMu serializes the garbage collector's reachability scan against
	// writers. Put and Remove hold the read side; GC holds the write
	// side for the scan only, not for the blob deletions.
	gcMu sync.RWMutex
}

var _ resourcex.Registry = &Registry{}

// NewRegistry constructs a registry over the given storage driver.
func NewRegistry(driver storagedriver.StorageDriver) *Registry {
	return &Registry{
		blobStore:     &blobStore{driver: driver},
		manifestStore: &manifestStore{driver: driver},
	}
}

// Blobs returns the registry's blob store.
func (reg *Registry) Blobs() resourcex.BlobStore {
	return reg.blobStore
}

// Manifests returns the registry's manifest store.
func (reg *Registry) Manifests() resourcex.ManifestStore {
	return reg.manifestStore
}

// Put stores a complete resource. The archive is exploded into per-file
// blobs before the manifest is written, so an interrupted Put leaves at
// worst orphan blobs for a later GC. The latest pointer always tracks the
// most recent write.
func (reg *Registry) Put(ctx context.Context, res *resourcex.Resource) error {
	if err := res.Complete(); err != nil {
		return err
	}

	pkg, err := archive.Unpack(res.Archive)
	if err != nil {
		return resourcex.ErrCorruptState{Locator: res.Identifier, Reason: err.Error()}
	}

	reg.gcMu.RLock()
	defer reg.gcMu.RUnlock()

	files := make(map[string]digest.Digest, pkg.Len())
	for _, f := range pkg.Files() {
		dgst, err := reg.blobStore.Put(ctx, f.Content)
		if err != nil {
			return err
		}
		files[f.Name] = dgst
	}

	def := res.Manifest.Definition
	def.Tag = res.Identifier.Tag
	sm := &resourcex.StoredManifest{
		Definition: def,
		Files:      files,
	}
	if err := reg.manifestStore.Put(ctx, sm); err != nil {
		return err
	}
	if err := reg.manifestStore.SetLatest(ctx, def.Registry, def.Name, res.Identifier.Tag); err != nil {
		return err
	}

	putCounter.Inc()
	dcontext.GetLoggerWithField(ctx, "resource", res.Identifier).Debug("resource stored")
	return nil
}

// resolveTag maps the default tag through the latest pointer. When no
// pointer was ever written it falls back to the lexicographically last
// stored tag, a shim for stores populated before pointers existed.
func (reg *Registry) resolveTag(ctx context.Context, id locator.Locator) (locator.Locator, error) {
	if id.Tag != "" && id.Tag != locator.DefaultTag {
		return id, nil
	}

	tag, err := reg.manifestStore.GetLatest(ctx, id.Registry, id.Name)
	if err == nil {
		return id.WithTag(tag), nil
	}
	var noPointer resourcex.ErrNoLatestPointer
	if !errors.As(err, &noPointer) {
		return id, err
	}

	// No pointer on record. If an explicit "latest" manifest exists the
	// locator already names it; otherwise fall back to the last tag.
	exists, err := reg.manifestStore.Has(ctx, id.WithTag(locator.DefaultTag))
	if err != nil {
		return id, err
	}
	if exists {
		return id.WithTag(locator.DefaultTag), nil
	}

	tags, err := reg.manifestStore.ListTags(ctx, id.Registry, id.Name)
	if err != nil {
		return id, err
	}
	if len(tags) == 0 {
		return id, resourcex.ErrResourceUnknown{Locator: id}
	}
	return id.WithTag(tags[len(tags)-1]), nil
}

// Get retrieves the resource stored under id. Every referenced blob is
// fetched and verified; the rebuilt archive's digest must match the digest
// the manifest records.
func (reg *Registry) Get(ctx context.Context, id locator.Locator) (*resourcex.Resource, error) {
	id, err := reg.resolveTag(ctx, id)
	if err != nil {
		return nil, err
	}
	sm, err := reg.manifestStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	contents := make([][]byte, len(sm.Files))
	names := sm.SortedFileNames()

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(blobFetchConcurrency)
	for i, name := range names {
		i, dgst := i, sm.Files[name]
		group.Go(func() error {
			content, err := reg.blobStore.Get(groupCtx, dgst)
			if err != nil {
				if _, ok := err.(resourcex.ErrBlobUnknown); ok {
					return resourcex.ErrCorruptState{
						Locator: id,
						Reason:  fmt.Sprintf("manifest references missing blob %s", dgst),
					}
				}
				return err
			}
			contents[i] = content
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	pkg := archive.NewPackage()
	for i, name := range names {
		pkg.Add(name, contents[i])
	}

	res, err := resourcex.NewResource(sm.Definition, pkg)
	if err != nil {
		return nil, err
	}
	if res.Manifest.Archive.Digest != sm.ArchiveDigest() {
		return nil, resourcex.ErrCorruptState{
			Locator: id,
			Reason:  "blob content does not match manifest file digests",
		}
	}

	getCounter.Inc()
	return res, nil
}

// GetManifest returns the stored manifest for id with tag resolution,
// without touching blob content.
func (reg *Registry) GetManifest(ctx context.Context, id locator.Locator) (*resourcex.StoredManifest, error) {
	id, err := reg.resolveTag(ctx, id)
	if err != nil {
		return nil, err
	}
	return reg.manifestStore.Get(ctx, id)
}

// Has reports whether a manifest exists for id, using the same tag
// resolution as Get.
func (reg *Registry) Has(ctx context.Context, id locator.Locator) (bool, error) {
	id, err := reg.resolveTag(ctx, id)
	if err != nil {
		if resourcex.IsResourceUnknown(err) {
			return false, nil
		}
		return false, err
	}
	return reg.manifestStore.Has(ctx, id)
}

// Remove deletes the manifest entry for id. Blobs are kept for GC;
// removing an absent entry is a no-op.
func (reg *Registry) Remove(ctx context.Context, id locator.Locator) error {
	id, err := reg.resolveTag(ctx, id)
	if err != nil {
		if resourcex.IsResourceUnknown(err) {
			return nil
		}
		return err
	}

	reg.gcMu.RLock()
	defer reg.gcMu.RUnlock()

	if err := reg.manifestStore.Delete(ctx, id); err != nil {
		if resourcex.IsResourceUnknown(err) {
			return nil
		}
		return err
	}
	return nil
}

// List returns the stored manifests matching opts and the total match
// count before pagination.
func (reg *Registry) List(ctx context.Context, opts resourcex.SearchOptions) ([]*resourcex.StoredManifest, int, error) {
	return reg.manifestStore.Search(ctx, opts)
}

// ClearCache drops manifests cached from remote registries. Blobs and
// local manifests are untouched.
func (reg *Registry) ClearCache(ctx context.Context, registry string) (int, error) {
	reg.gcMu.RLock()
	defer reg.gcMu.RUnlock()

	if registry != "" {
		return reg.manifestStore.DeleteByRegistry(ctx, registry)
	}

	registries, err := reg.manifestStore.driver.List(ctx, manifestsRoot)
	if err != nil {
		var notFound storagedriver.PathNotFoundError
		if errors.As(err, &notFound) {
			return 0, nil
		}
		return 0, err
	}

	total := 0
	for _, dir := range registries {
		if dir == localRegistryDir {
			continue
		}
		count, err := reg.manifestStore.DeleteByRegistry(ctx, registryFromDir(dir))
		if err != nil {
			return total, err
		}
		total += count
	}
	return total, nil
}

// GC deletes every blob unreferenced by any stored manifest and returns
// the number deleted.
func (reg *Registry) GC(ctx context.Context) (int, error) {
	return reg.markAndSweep(ctx, false)
}
