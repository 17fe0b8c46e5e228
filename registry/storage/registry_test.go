package storage

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resourcex/resourcex"
	"github.com/resourcex/resourcex/archive"
	"github.com/resourcex/resourcex/locator"
	storagedriver "github.com/resourcex/resourcex/registry/storage/driver"
	"github.com/resourcex/resourcex/registry/storage/driver/inmemory"
	"github.com/resourcex/resourcex/testutil"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(inmemory.New())
}

func mustParse(t *testing.T, s string) locator.Locator {
	t.Helper()
	id, err := locator.Parse(s)
	require.NoError(t, err)
	return id
}

func TestPutGetRoundtrip(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	res := testutil.MakeResource(t, "hello", "1.0.0", map[string]string{
		"content":   "Hello, World!",
		"docs/note": "a note",
	})
	require.NoError(t, reg.Put(ctx, res))

	got, err := reg.Get(ctx, mustParse(t, "hello:1.0.0"))
	require.NoError(t, err)

	assert.Equal(t, res.Identifier, got.Identifier)
	assert.Equal(t, res.Manifest.Archive.Digest, got.Manifest.Archive.Digest)

	pkg, err := archive.Unpack(got.Archive)
	require.NoError(t, err)
	content, ok := pkg.Get("content")
	require.True(t, ok)
	assert.Equal(t, []byte("Hello, World!"), content)
}

func TestGetUnknownResource(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	_, err := reg.Get(ctx, mustParse(t, "missing:1.0.0"))
	assert.True(t, resourcex.IsResourceUnknown(err), "got %v", err)

	ok, err := reg.Has(ctx, mustParse(t, "missing"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDedupAcrossResources(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	a := testutil.MakeResource(t, "a", "1.0.0", map[string]string{"data": "shared"})
	b := testutil.MakeResource(t, "b", "1.0.0", map[string]string{"data": "shared"})
	require.NoError(t, reg.Put(ctx, a))
	require.NoError(t, reg.Put(ctx, b))

	blobs, err := reg.Blobs().List(ctx)
	require.NoError(t, err)
	assert.Len(t, blobs, 1)
	assert.Equal(t, digest.FromString("shared"), blobs[0])

	_, total, err := reg.List(ctx, resourcex.SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestRemoveKeepsBlobs(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	res := testutil.MakeResource(t, "tmp", "1.0.0", map[string]string{"unique": "only here"})
	require.NoError(t, reg.Put(ctx, res))
	require.NoError(t, reg.Remove(ctx, mustParse(t, "tmp:1.0.0")))

	ok, err := reg.Has(ctx, mustParse(t, "tmp:1.0.0"))
	require.NoError(t, err)
	assert.False(t, ok)

	has, err := reg.Blobs().Has(ctx, digest.FromString("only here"))
	require.NoError(t, err)
	assert.True(t, has, "remove must not delete blobs")

	// Removing again is a no-op.
	require.NoError(t, reg.Remove(ctx, mustParse(t, "tmp:1.0.0")))
}

func TestGCAfterRemove(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	kept := testutil.MakeResource(t, "kept", "1.0.0", map[string]string{"keep": "keep me"})
	tmp := testutil.MakeResource(t, "tmp", "1.0.0", map[string]string{"drop": "drop me"})
	require.NoError(t, reg.Put(ctx, kept))
	require.NoError(t, reg.Put(ctx, tmp))
	require.NoError(t, reg.Remove(ctx, mustParse(t, "tmp:1.0.0")))

	deleted, err := reg.GC(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	has, err := reg.Blobs().Has(ctx, digest.FromString("drop me"))
	require.NoError(t, err)
	assert.False(t, has)

	// Soundness: every file of every surviving manifest is still present.
	has, err = reg.Blobs().Has(ctx, digest.FromString("keep me"))
	require.NoError(t, err)
	assert.True(t, has)

	// Completeness: a second sweep finds nothing.
	deleted, err = reg.GC(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestGCDryRun(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	res := testutil.MakeResource(t, "tmp", "1.0.0", map[string]string{"drop": "dry run victim"})
	require.NoError(t, reg.Put(ctx, res))
	require.NoError(t, reg.Remove(ctx, mustParse(t, "tmp:1.0.0")))

	deleted, err := MarkAndSweep(ctx, reg, GCOpts{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	has, err := reg.Blobs().Has(ctx, digest.FromString("dry run victim"))
	require.NoError(t, err)
	assert.True(t, has, "dry run must not delete")
}

// gatedDriver blocks one manifest write until released, holding a Put open
// at the point where its blobs exist but its manifest does not.
type gatedDriver struct {
	storagedriver.StorageDriver

	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	gate    chan struct{}
}

func (d *gatedDriver) PutContent(ctx context.Context, path string, content []byte) error {
	if strings.HasPrefix(path, "/manifests/") && d.disarm() {
		d.entered <- struct{}{}
		<-d.gate
	}
	return d.StorageDriver.PutContent(ctx, path, content)
}

func (d *gatedDriver) disarm() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	armed := d.armed
	d.armed = false
	return armed
}

func TestGCBlocksOnInflightPut(t *testing.T) {
	ctx := context.Background()
	driver := &gatedDriver{
		StorageDriver: inmemory.New(),
		entered:       make(chan struct{}),
		gate:          make(chan struct{}),
	}
	reg := NewRegistry(driver)

	require.NoError(t, reg.Put(ctx, testutil.MakeResource(t, "anchor", "1.0.0", map[string]string{"f": "anchored"})))

	driver.mu.Lock()
	driver.armed = true
	driver.mu.Unlock()

	putErr := make(chan error, 1)
	go func() {
		putErr <- reg.Put(ctx, testutil.MakeResource(t, "inflight", "1.0.0", map[string]string{"f": "mid write"}))
	}()
	<-driver.entered

	// The put now holds blobs on disk with no manifest referencing them.
	// The collector must not scan until the put finishes, or it would
	// sweep them as garbage.
	type gcResult struct {
		deleted int
		err     error
	}
	gcDone := make(chan gcResult, 1)
	go func() {
		deleted, err := reg.GC(ctx)
		gcDone <- gcResult{deleted, err}
	}()

	select {
	case res := <-gcDone:
		t.Fatalf("GC finished during an in-flight put, deleted %d blobs (err %v)", res.deleted, res.err)
	case <-time.After(50 * time.Millisecond):
	}

	close(driver.gate)
	require.NoError(t, <-putErr)

	res := <-gcDone
	require.NoError(t, res.err)
	assert.Equal(t, 0, res.deleted)

	for _, content := range []string{"anchored", "mid write"} {
		has, err := reg.Blobs().Has(ctx, digest.FromString(content))
		require.NoError(t, err)
		assert.True(t, has, "blob %q lost to a concurrent sweep", content)
	}
	_, err := reg.Get(ctx, mustParse(t, "inflight:1.0.0"))
	require.NoError(t, err)
}

func TestLatestPointerTracksLastPut(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	require.NoError(t, reg.Put(ctx, testutil.MakeResource(t, "foo", "1.0.0", map[string]string{"v": "one"})))
	require.NoError(t, reg.Put(ctx, testutil.MakeResource(t, "foo", "2.0.0", map[string]string{"v": "two"})))

	byLatest, err := reg.Get(ctx, mustParse(t, "foo"))
	require.NoError(t, err)
	byTag, err := reg.Get(ctx, mustParse(t, "foo:2.0.0"))
	require.NoError(t, err)

	assert.Equal(t, byTag.Identifier, byLatest.Identifier)
	assert.Equal(t, byTag.Manifest.Archive.Digest, byLatest.Manifest.Archive.Digest)
}

func TestLatestFallbackWithoutPointer(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	// Populate the manifest store directly, bypassing Put so no pointer
	// is written. The fallback picks the lexicographically last tag.
	for _, tag := range []string{"1.0.0", "2.0.0"} {
		res := testutil.MakeResource(t, "legacy", tag, map[string]string{"v": tag})
		pkg, err := archive.Unpack(res.Archive)
		require.NoError(t, err)
		files := make(map[string]digest.Digest)
		for _, f := range pkg.Files() {
			dgst, err := reg.Blobs().Put(ctx, f.Content)
			require.NoError(t, err)
			files[f.Name] = dgst
		}
		require.NoError(t, reg.Manifests().Put(ctx, &resourcex.StoredManifest{
			Definition: res.Manifest.Definition,
			Files:      files,
		}))
	}

	got, err := reg.Get(ctx, mustParse(t, "legacy"))
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", got.Identifier.Tag)
}

func TestSearchRegistryFilter(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	local := testutil.MakeResource(t, "local-res", "1.0.0", map[string]string{"f": "l"})
	remote := testutil.MakeTypedResource(t, resourcex.Definition{
		Registry: "example.com", Name: "remote-res", Type: "text", Tag: "1.0.0",
	}, map[string]string{"f": "r"})
	require.NoError(t, reg.Put(ctx, local))
	require.NoError(t, reg.Put(ctx, remote))

	// Nil registry matches everything.
	_, total, err := reg.List(ctx, resourcex.SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	// Empty-string filter matches local manifests only.
	results, total, err := reg.List(ctx, resourcex.SearchOptions{Registry: resourcex.RegistryFilter("")})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "local-res", results[0].Name)

	// Exact registry filter.
	results, total, err = reg.List(ctx, resourcex.SearchOptions{Registry: resourcex.RegistryFilter("example.com")})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "remote-res", results[0].Name)

	// Case-insensitive substring query with pagination metadata.
	results, total, err = reg.List(ctx, resourcex.SearchOptions{Query: "RES", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, results, 1)
}

func TestClearCache(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	local := testutil.MakeResource(t, "mine", "1.0.0", map[string]string{"f": "local"})
	cachedA := testutil.MakeTypedResource(t, resourcex.Definition{
		Registry: "a.example.com", Name: "x", Type: "text", Tag: "1.0.0",
	}, map[string]string{"f": "a"})
	cachedB := testutil.MakeTypedResource(t, resourcex.Definition{
		Registry: "b.example.com", Name: "y", Type: "text", Tag: "1.0.0",
	}, map[string]string{"f": "b"})
	for _, res := range []*resourcex.Resource{local, cachedA, cachedB} {
		require.NoError(t, reg.Put(ctx, res))
	}

	count, err := reg.ClearCache(ctx, "a.example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = reg.ClearCache(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Local manifests and all blobs survive.
	ok, err := reg.Has(ctx, mustParse(t, "mine:1.0.0"))
	require.NoError(t, err)
	assert.True(t, ok)
	blobs, err := reg.Blobs().List(ctx)
	require.NoError(t, err)
	assert.Len(t, blobs, 3)
}

func TestGetDetectsMissingBlob(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	res := testutil.MakeResource(t, "broken", "1.0.0", map[string]string{"f": "to be deleted"})
	require.NoError(t, reg.Put(ctx, res))
	require.NoError(t, reg.Blobs().Delete(ctx, digest.FromString("to be deleted")))

	_, err := reg.Get(ctx, mustParse(t, "broken:1.0.0"))
	assert.True(t, resourcex.IsCorruptState(err), "got %v", err)
}
