package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resourcex/resourcex"
	"github.com/resourcex/resourcex/archive"
	"github.com/resourcex/resourcex/locator"
)

func execution(t *testing.T, resourceType string, files map[string]string, args map[string]interface{}) *resourcex.Execution {
	t.Helper()
	pkg := archive.NewPackage()
	for name, content := range files {
		pkg.Add(name, []byte(content))
	}
	id, err := locator.Parse("sample")
	require.NoError(t, err)
	return &resourcex.Execution{
		Type:    resourceType,
		Locator: id,
		Files:   pkg,
		Args:    args,
	}
}

func TestTextHandler(t *testing.T) {
	m := NewMux()

	out, err := m.Execute(context.Background(), execution(t, "text",
		map[string]string{"content": "Hello, {{name}}!"},
		map[string]interface{}{"name": "World"},
	))
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!", out)
}

func TestTextHandlerSingleFileFallback(t *testing.T) {
	m := NewMux()

	out, err := m.Execute(context.Background(), execution(t, "prompt",
		map[string]string{"greeting.txt": "hi"}, nil,
	))
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
}

func TestTextHandlerAmbiguousEntry(t *testing.T) {
	m := NewMux()

	_, err := m.Execute(context.Background(), execution(t, "text",
		map[string]string{"a.txt": "a", "b.txt": "b"}, nil,
	))
	assert.Error(t, err)

	out, err := m.Execute(context.Background(), execution(t, "text",
		map[string]string{"a.txt": "a", "b.txt": "b"},
		map[string]interface{}{"file": "b.txt"},
	))
	require.NoError(t, err)
	assert.Equal(t, "b", out)
}

func TestJSONHandler(t *testing.T) {
	m := NewMux()

	out, err := m.Execute(context.Background(), execution(t, "json",
		map[string]string{"content": `{"answer": 42}`}, nil,
	))
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"answer": float64(42)}, out)
}

func TestUnregisteredType(t *testing.T) {
	m := NewMux()

	_, err := m.Execute(context.Background(), execution(t, "hologram", map[string]string{"content": "x"}, nil))
	var notSupported NotSupportedError
	require.ErrorAs(t, err, &notSupported)
	assert.Equal(t, "hologram", notSupported.Type)
}

func TestCustomHandlerRegistration(t *testing.T) {
	m := NewMux()
	m.Handle("echo", HandlerFunc(func(ctx context.Context, req *resourcex.Execution) (interface{}, error) {
		return req.Args, nil
	}))

	args := map[string]interface{}{"k": "v"}
	out, err := m.Execute(context.Background(), execution(t, "echo", map[string]string{"content": ""}, args))
	require.NoError(t, err)
	assert.Equal(t, args, out)
}
