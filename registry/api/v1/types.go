package v1

import (
	"github.com/opencontainers/go-digest"

	"github.com/resourcex/resourcex"
)

// Manifest is the wire form of a resource manifest: the authored
// definition plus the per-file content digests. Additional manifest
// sections sent by clients are ignored by the server.
type Manifest struct {
	Definition resourcex.Definition     `json:"definition"`
	Files      map[string]digest.Digest `json:"files,omitempty"`
}

// PublishResponse is the body returned by a successful publish.
type PublishResponse struct {
	Locator string `json:"locator"`
}

// SearchResult is one entry of a search response.
type SearchResult struct {
	Locator  string `json:"locator"`
	Registry string `json:"registry,omitempty"`
	Path     string `json:"path,omitempty"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Tag      string `json:"tag"`
}

// SearchResponse is the body returned by the search endpoint. Total
// counts all matches before pagination.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
}

// Multipart field names accepted by the publish endpoint.
const (
	PublishFieldLocator  = "locator"
	PublishFieldManifest = "manifest"
	PublishFieldContent  = "content"
)
