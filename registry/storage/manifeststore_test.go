package storage

import (
	"context"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resourcex/resourcex"
	"github.com/resourcex/resourcex/registry/storage/driver/inmemory"
)

func newTestManifestStore() *manifestStore {
	return &manifestStore{driver: inmemory.New()}
}

func storedManifest(registry, name, tag string) *resourcex.StoredManifest {
	return &resourcex.StoredManifest{
		Definition: resourcex.Definition{
			Registry: registry,
			Name:     name,
			Type:     "text",
			Tag:      tag,
		},
		Files: map[string]digest.Digest{
			"content": digest.FromString(name + ":" + tag),
		},
	}
}

func TestManifestStoreTimestamps(t *testing.T) {
	ctx := context.Background()
	ms := newTestManifestStore()

	sm := storedManifest("", "stamps", "1.0.0")
	require.NoError(t, ms.Put(ctx, sm))

	first, err := ms.Get(ctx, sm.Locator())
	require.NoError(t, err)
	assert.False(t, first.CreatedAt.IsZero())
	assert.Equal(t, first.CreatedAt, first.UpdatedAt)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, ms.Put(ctx, sm))

	second, err := ms.Get(ctx, sm.Locator())
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt, second.CreatedAt, "CreatedAt preserved across updates")
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt), "UpdatedAt advanced")
}

func TestManifestStoreListTags(t *testing.T) {
	ctx := context.Background()
	ms := newTestManifestStore()

	for _, tag := range []string{"2.0.0", "1.0.0", "stable"} {
		require.NoError(t, ms.Put(ctx, storedManifest("", "multi", tag)))
	}
	require.NoError(t, ms.SetLatest(ctx, "", "multi", "stable"))

	tags, err := ms.ListTags(ctx, "", "multi")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0.0", "2.0.0", "stable"}, tags)

	tags, err = ms.ListTags(ctx, "", "absent")
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestManifestStoreListNames(t *testing.T) {
	ctx := context.Background()
	ms := newTestManifestStore()

	require.NoError(t, ms.Put(ctx, storedManifest("", "alpha", "1.0.0")))
	require.NoError(t, ms.Put(ctx, storedManifest("", "beta", "1.0.0")))
	require.NoError(t, ms.Put(ctx, storedManifest("example.com", "gamma", "1.0.0")))

	names, err := ms.ListNames(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, names)

	names, err = ms.ListNames(ctx, "", "ALPH")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, names)

	names, err = ms.ListNames(ctx, "example.com", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"gamma"}, names)
}

func TestManifestStoreLatestPointer(t *testing.T) {
	ctx := context.Background()
	ms := newTestManifestStore()

	_, err := ms.GetLatest(ctx, "", "nothing")
	var noPointer resourcex.ErrNoLatestPointer
	require.ErrorAs(t, err, &noPointer)

	require.NoError(t, ms.SetLatest(ctx, "", "thing", "2.0.0"))
	tag, err := ms.GetLatest(ctx, "", "thing")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", tag)

	require.NoError(t, ms.SetLatest(ctx, "", "thing", "3.0.0"))
	tag, err = ms.GetLatest(ctx, "", "thing")
	require.NoError(t, err)
	assert.Equal(t, "3.0.0", tag)
}

func TestManifestStoreDeleteByRegistry(t *testing.T) {
	ctx := context.Background()
	ms := newTestManifestStore()

	require.NoError(t, ms.Put(ctx, storedManifest("example.com", "a", "1.0.0")))
	require.NoError(t, ms.Put(ctx, storedManifest("example.com", "a", "2.0.0")))
	require.NoError(t, ms.Put(ctx, storedManifest("", "b", "1.0.0")))

	count, err := ms.DeleteByRegistry(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	ok, err := ms.Has(ctx, storedManifest("", "b", "1.0.0").Locator())
	require.NoError(t, err)
	assert.True(t, ok)

	count, err = ms.DeleteByRegistry(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestManifestStoreDeleteUnknown(t *testing.T) {
	ctx := context.Background()
	ms := newTestManifestStore()

	err := ms.Delete(ctx, storedManifest("", "ghost", "1.0.0").Locator())
	assert.True(t, resourcex.IsResourceUnknown(err))
}
