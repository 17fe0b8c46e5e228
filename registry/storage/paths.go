package storage

import (
	"fmt"
	"strings"

	"github.com/opencontainers/go-digest"
)

// The storage layout maps registry state onto driver paths:
//
//	/blobs/<hex>                                  blob content, hex of the sha256 digest
//	/manifests/{registry|_local}/{name}/{tag}.json stored manifest
//	/manifests/{registry|_local}/{name}/_latest    latest tag pointer
//
// The _local directory holds manifests with no origin registry; a remote
// registry's manifests live under its host (host:port is a valid path
// component).

const (
	blobsRoot     = "/blobs"
	manifestsRoot = "/manifests"

	// localRegistryDir is the directory name for manifests with no
	// origin registry.
	localRegistryDir = "_local"

	// latestFileName holds the tag pointer inside a name directory.
	latestFileName = "_latest"

	manifestExtension = ".json"
)

func blobPath(dgst digest.Digest) string {
	return fmt.Sprintf("%s/%s", blobsRoot, dgst.Encoded())
}

func registryDir(registry string) string {
	if registry == "" {
		return localRegistryDir
	}
	return registry
}

func registryFromDir(dir string) string {
	if dir == localRegistryDir {
		return ""
	}
	return dir
}

func registryPath(registry string) string {
	return fmt.Sprintf("%s/%s", manifestsRoot, registryDir(registry))
}

func namePath(registry, name string) string {
	return fmt.Sprintf("%s/%s", registryPath(registry), name)
}

func manifestPath(registry, name, tag string) string {
	return fmt.Sprintf("%s/%s%s", namePath(registry, name), tag, manifestExtension)
}

func latestPath(registry, name string) string {
	return fmt.Sprintf("%s/%s", namePath(registry, name), latestFileName)
}

// parseManifestPath inverts manifestPath. It reports ok=false for paths
// that do not name a stored manifest, such as tag pointer files.
func parseManifestPath(path string) (registry, name, tag string, ok bool) {
	rel, found := strings.CutPrefix(path, manifestsRoot+"/")
	if !found {
		return "", "", "", false
	}
	parts := strings.Split(rel, "/")
	if len(parts) != 3 || !strings.HasSuffix(parts[2], manifestExtension) {
		return "", "", "", false
	}
	tag = strings.TrimSuffix(parts[2], manifestExtension)
	if tag == "" || tag == latestFileName {
		return "", "", "", false
	}
	return registryFromDir(parts[0]), parts[1], tag, true
}
