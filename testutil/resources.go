// Package testutil holds fixtures shared by registry, handler and
// resolver tests.
package testutil

import (
	"math/rand"
	"testing"

	"github.com/resourcex/resourcex"
	"github.com/resourcex/resourcex/archive"
)

// MakeResource builds a complete resource of type "text" from the given
// file map. Fails the test on invalid input.
func MakeResource(t *testing.T, name, tag string, files map[string]string) *resourcex.Resource {
	t.Helper()
	return MakeTypedResource(t, resourcex.Definition{Name: name, Type: "text", Tag: tag}, files)
}

// MakeTypedResource builds a complete resource from an explicit definition
// and file map.
func MakeTypedResource(t *testing.T, def resourcex.Definition, files map[string]string) *resourcex.Resource {
	t.Helper()

	pkg := archive.NewPackage()
	for name, content := range files {
		pkg.Add(name, []byte(content))
	}
	res, err := resourcex.NewResource(def, pkg)
	if err != nil {
		t.Fatalf("building resource %s: %v", def.Name, err)
	}
	return res
}

// RandomContent returns n pseudo-random bytes from a fixed seed stream,
// distinct across calls within a process.
func RandomContent(n int) []byte {
	content := make([]byte, n)
	randSource.Read(content)
	return content
}

var randSource = rand.New(rand.NewSource(42))
