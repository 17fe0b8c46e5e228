package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resourcex/resourcex"
	"github.com/resourcex/resourcex/locator"
	"github.com/resourcex/resourcex/registry/handlers"
	"github.com/resourcex/resourcex/registry/storage"
	"github.com/resourcex/resourcex/registry/storage/driver/inmemory"
	"github.com/resourcex/resourcex/testutil"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	server := httptest.NewServer(handlers.NewApp(storage.NewRegistry(inmemory.New()), handlers.Options{}))
	t.Cleanup(server.Close)

	c, err := New(server.URL, server.Client())
	require.NoError(t, err)
	return c
}

func mustParse(t *testing.T, s string) locator.Locator {
	t.Helper()
	id, err := locator.Parse(s)
	require.NoError(t, err)
	return id
}

func TestPublishFetchRoundtrip(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	res := testutil.MakeResource(t, "hello", "1.0.0", map[string]string{"content": "Hello, World!"})
	require.NoError(t, c.Publish(ctx, res))

	got, err := c.Fetch(ctx, mustParse(t, "hello:1.0.0"))
	require.NoError(t, err)
	assert.Equal(t, res.Identifier, got.Identifier)
	assert.Equal(t, res.Manifest.Archive.Digest, got.Manifest.Archive.Digest)

	ok, err := c.Has(ctx, mustParse(t, "hello:1.0.0"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFetchUnknown(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	_, err := c.Fetch(ctx, mustParse(t, "missing:1.0.0"))
	assert.True(t, resourcex.IsResourceUnknown(err), "got %v", err)

	ok, err := c.Has(ctx, mustParse(t, "missing:1.0.0"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	res := testutil.MakeResource(t, "gone", "1.0.0", map[string]string{"f": "x"})
	require.NoError(t, c.Publish(ctx, res))
	require.NoError(t, c.Delete(ctx, mustParse(t, "gone:1.0.0")))

	err := c.Delete(ctx, mustParse(t, "gone:1.0.0"))
	assert.True(t, resourcex.IsResourceUnknown(err), "got %v", err)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	require.NoError(t, c.Publish(ctx, testutil.MakeResource(t, "alpha", "1.0.0", map[string]string{"f": "a"})))
	require.NoError(t, c.Publish(ctx, testutil.MakeResource(t, "beta", "1.0.0", map[string]string{"f": "b"})))

	resp, err := c.Search(ctx, "alp", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "alpha", resp.Results[0].Name)
}

func TestTransportError(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	c, err := New(server.URL, server.Client())
	require.NoError(t, err)

	_, err = c.Fetch(ctx, mustParse(t, "any:1.0.0"))
	assert.True(t, IsTransportError(err), "got %v", err)
}

func TestUnreachableEndpoint(t *testing.T) {
	ctx := context.Background()

	c, err := New("http://127.0.0.1:1", nil)
	require.NoError(t, err)

	_, err = c.Fetch(ctx, mustParse(t, "any:1.0.0"))
	assert.True(t, IsTransportError(err), "got %v", err)
}

func TestFetchResolvesLatest(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	require.NoError(t, c.Publish(ctx, testutil.MakeResource(t, "multi", "1.0.0", map[string]string{"v": "one"})))
	require.NoError(t, c.Publish(ctx, testutil.MakeResource(t, "multi", "2.0.0", map[string]string{"v": "two"})))

	got, err := c.Fetch(ctx, mustParse(t, "multi"))
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", got.Identifier.Tag)
}

func TestCancelledFetch(t *testing.T) {
	c := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Fetch(ctx, mustParse(t, "any:1.0.0"))
	assert.ErrorIs(t, err, context.Canceled)
}
