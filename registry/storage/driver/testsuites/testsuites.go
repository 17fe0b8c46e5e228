// Package testsuites holds a conformance suite shared by storage driver
// implementations.
package testsuites

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storagedriver "github.com/resourcex/resourcex/registry/storage/driver"
)

// DriverConstructor constructs a fresh, empty driver for one test.
type DriverConstructor func(t *testing.T) storagedriver.StorageDriver

// Run exercises the full storage driver contract against drivers built by
// the constructor.
func Run(t *testing.T, newDriver DriverConstructor) {
	t.Run("PutGetRoundtrip", func(t *testing.T) { testPutGetRoundtrip(t, newDriver(t)) })
	t.Run("Overwrite", func(t *testing.T) { testOverwrite(t, newDriver(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, newDriver(t)) })
	t.Run("InvalidPath", func(t *testing.T) { testInvalidPath(t, newDriver(t)) })
	t.Run("Stat", func(t *testing.T) { testStat(t, newDriver(t)) })
	t.Run("List", func(t *testing.T) { testList(t, newDriver(t)) })
	t.Run("DeleteRecursive", func(t *testing.T) { testDeleteRecursive(t, newDriver(t)) })
	t.Run("Walk", func(t *testing.T) { testWalk(t, newDriver(t)) })
}

func testPutGetRoundtrip(t *testing.T, d storagedriver.StorageDriver) {
	ctx := context.Background()
	content := []byte("some content")

	require.NoError(t, d.PutContent(ctx, "/subdir/file", content))
	got, err := d.GetContent(ctx, "/subdir/file")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func testOverwrite(t *testing.T, d storagedriver.StorageDriver) {
	ctx := context.Background()

	require.NoError(t, d.PutContent(ctx, "/file", []byte("first")))
	require.NoError(t, d.PutContent(ctx, "/file", []byte("second")))
	got, err := d.GetContent(ctx, "/file")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func testNotFound(t *testing.T, d storagedriver.StorageDriver) {
	ctx := context.Background()

	_, err := d.GetContent(ctx, "/missing")
	var notFound storagedriver.PathNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "/missing", notFound.Path)

	err = d.Delete(ctx, "/missing")
	require.ErrorAs(t, err, &notFound)

	_, err = d.List(ctx, "/missing")
	require.ErrorAs(t, err, &notFound)
}

func testInvalidPath(t *testing.T, d storagedriver.StorageDriver) {
	ctx := context.Background()

	for _, path := range []string{"", "relative", "/trailing/", "/white space"} {
		var invalid storagedriver.InvalidPathError
		_, err := d.GetContent(ctx, path)
		assert.ErrorAs(t, err, &invalid, "path %q", path)
		err = d.PutContent(ctx, path, []byte("x"))
		assert.ErrorAs(t, err, &invalid, "path %q", path)
	}
}

func testStat(t *testing.T, d storagedriver.StorageDriver) {
	ctx := context.Background()

	ok, err := d.Stat(ctx, "/file")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.PutContent(ctx, "/file", []byte("x")))
	ok, err = d.Stat(ctx, "/file")
	require.NoError(t, err)
	assert.True(t, ok)
}

func testList(t *testing.T, d storagedriver.StorageDriver) {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, d.PutContent(ctx, fmt.Sprintf("/parent/file-%d", i), []byte("x")))
	}
	require.NoError(t, d.PutContent(ctx, "/parent/child/nested", []byte("x")))

	names, err := d.List(ctx, "/parent")
	require.NoError(t, err)
	assert.Equal(t, []string{"child", "file-0", "file-1", "file-2"}, names)
}

func testDeleteRecursive(t *testing.T, d storagedriver.StorageDriver) {
	ctx := context.Background()

	require.NoError(t, d.PutContent(ctx, "/tree/a", []byte("a")))
	require.NoError(t, d.PutContent(ctx, "/tree/sub/b", []byte("b")))
	require.NoError(t, d.PutContent(ctx, "/other", []byte("o")))

	require.NoError(t, d.Delete(ctx, "/tree"))

	var notFound storagedriver.PathNotFoundError
	_, err := d.GetContent(ctx, "/tree/a")
	assert.ErrorAs(t, err, &notFound)
	_, err = d.GetContent(ctx, "/tree/sub/b")
	assert.ErrorAs(t, err, &notFound)

	_, err = d.GetContent(ctx, "/other")
	assert.NoError(t, err)
}

func testWalk(t *testing.T, d storagedriver.StorageDriver) {
	ctx := context.Background()

	paths := []string{"/walk/b/two", "/walk/a/one", "/walk/c"}
	for _, p := range paths {
		require.NoError(t, d.PutContent(ctx, p, []byte("x")))
	}

	var visited []string
	err := d.Walk(ctx, "/walk", func(path string) error {
		visited = append(visited, path)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/walk/a/one", "/walk/b/two", "/walk/c"}, visited)

	stop := fmt.Errorf("stop")
	count := 0
	err = d.Walk(ctx, "/walk", func(path string) error {
		count++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, count)
}
