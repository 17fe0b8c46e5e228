package links

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resourcex/resourcex/locator"
	"github.com/resourcex/resourcex/registry/storage/driver/inmemory"
	"github.com/resourcex/resourcex/source"
)

func newTestIndex(t *testing.T) (*Index, afero.Fs, *inmemory.Driver) {
	t.Helper()
	filesystem := afero.NewMemMapFs()
	driver := inmemory.New()
	return NewIndex(driver, source.NewPipeline(filesystem, nil)), filesystem, driver
}

func writeResource(t *testing.T, filesystem afero.Fs, dir, definition string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(filesystem, dir+"/resource.json", []byte(definition), 0o644))
	require.NoError(t, afero.WriteFile(filesystem, dir+"/content", []byte("body"), 0o644))
}

func TestLinkUnlink(t *testing.T) {
	ctx := context.Background()
	ix, filesystem, _ := newTestIndex(t)
	writeResource(t, filesystem, "/dev/hello", `{"name":"hello","type":"text","tag":"1.0.0"}`)

	id, err := ix.Link(ctx, "/dev/hello")
	require.NoError(t, err)
	assert.Equal(t, "hello:1.0.0", id.String())

	path, ok, err := ix.Lookup(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/dev/hello", path)

	entries, err := ix.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, Entry{Locator: "hello:1.0.0", Path: "/dev/hello"}, entries[0])

	require.NoError(t, ix.Unlink(ctx, id))
	_, ok, err = ix.Lookup(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, ix.Unlink(ctx, id), ErrLinkNotFound)
}

func TestIndexPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	filesystem := afero.NewMemMapFs()
	driver := inmemory.New()
	pipeline := source.NewPipeline(filesystem, nil)
	writeResource(t, filesystem, "/dev/persist", `{"name":"persist","type":"text"}`)

	first := NewIndex(driver, pipeline)
	id, err := first.Link(ctx, "/dev/persist")
	require.NoError(t, err)

	second := NewIndex(driver, pipeline)
	path, ok, err := second.Lookup(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/dev/persist", path)
}

func TestLookupMissing(t *testing.T) {
	ctx := context.Background()
	ix, _, _ := newTestIndex(t)

	id, err := locator.Parse("ghost:1.0.0")
	require.NoError(t, err)
	_, ok, err := ix.Lookup(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}
