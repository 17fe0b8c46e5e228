package resourcex

import (
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/opencontainers/go-digest"

	"github.com/resourcex/resourcex/archive"
	"github.com/resourcex/resourcex/locator"
)

// previewLimit bounds the per-file content preview embedded in a manifest's
// source section.
const previewLimit = 240

// Definition is the user-authored description of a resource. Name and Type
// are required; Tag defaults to the locator default when empty. Type is an
// opaque string naming a resource kind (for example "prompt", "skill",
// "tool") and is never interpreted by the registry itself.
type Definition struct {
	Registry    string   `json:"registry,omitempty" yaml:"registry,omitempty"`
	Path        string   `json:"path,omitempty" yaml:"path,omitempty"`
	Name        string   `json:"name" yaml:"name"`
	Type        string   `json:"type" yaml:"type"`
	Tag         string   `json:"tag,omitempty" yaml:"tag,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Author      string   `json:"author,omitempty" yaml:"author,omitempty"`
	License     string   `json:"license,omitempty" yaml:"license,omitempty"`
	Keywords    []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Repository  string   `json:"repository,omitempty" yaml:"repository,omitempty"`
}

// Validate checks that the definition carries the required fields.
func (d Definition) Validate() error {
	if d.Name == "" {
		return ErrInvalidDefinition{Reason: "name is required"}
	}
	if d.Type == "" {
		return ErrInvalidDefinition{Reason: "type is required"}
	}
	return nil
}

// Locator returns the identifier the definition describes, applying the
// default tag when the definition carries none.
func (d Definition) Locator() locator.Locator {
	tag := d.Tag
	if tag == "" {
		tag = locator.DefaultTag
	}
	return locator.Locator{
		Registry: d.Registry,
		Path:     d.Path,
		Name:     d.Name,
		Tag:      tag,
	}
}

// ArchiveInfo is the packaging section of a manifest: the content-defined
// digest of the archive and the digest of each file inside it.
type ArchiveInfo struct {
	Digest digest.Digest            `json:"digest"`
	Files  map[string]digest.Digest `json:"files"`
}

// SourceEntry is one node of the source tree recorded in a manifest.
// Directory entries carry children; file entries carry a size and
// optionally a short textual preview.
type SourceEntry struct {
	Name     string        `json:"name"`
	Size     int64         `json:"size,omitempty"`
	Preview  string        `json:"preview,omitempty"`
	Children []SourceEntry `json:"children,omitempty"`
}

// SourceInfo describes the file tree a resource was packed from. It is
// informational: servers store and return it but never interpret it.
type SourceInfo struct {
	Tree []SourceEntry `json:"tree,omitempty"`
}

// Manifest is the stored metadata of a resource: the authored definition,
// the packaging section and an informational source tree.
type Manifest struct {
	Definition Definition  `json:"definition"`
	Archive    ArchiveInfo `json:"archive"`
	Source     SourceInfo  `json:"source,omitempty"`
}

// StoredManifest is the manifest form held by a manifest store: the flat
// definition fields plus the per-file digests and bookkeeping timestamps.
// It does not carry blob bytes.
type StoredManifest struct {
	Definition `yaml:",inline"`

	Files     map[string]digest.Digest `json:"files"`
	CreatedAt time.Time                `json:"createdAt"`
	UpdatedAt time.Time                `json:"updatedAt"`
}

// ArchiveDigest returns the content-defined archive digest recorded by the
// stored file digests.
func (sm *StoredManifest) ArchiveDigest() digest.Digest {
	return archive.DigestOfFiles(sm.Files)
}

// Resource bundles an identifier, its manifest and the packed archive
// bytes. Instances flow between the source pipeline, the registry and the
// transport layer.
type Resource struct {
	Identifier locator.Locator
	Manifest   Manifest
	Archive    []byte
}

// Complete verifies the resource's internal consistency: the identifier
// must match the definition and the archive's recomputed digest must equal
// the digest recorded in the manifest. A nil return marks the resource safe
// to store or execute.
func (r *Resource) Complete() error {
	if want := r.Manifest.Definition.Locator(); r.Identifier != want {
		return ErrCorruptState{
			Locator: r.Identifier,
			Reason:  fmt.Sprintf("identifier does not match definition %q", want),
		}
	}
	pkg, err := archive.Unpack(r.Archive)
	if err != nil {
		return ErrCorruptState{Locator: r.Identifier, Reason: err.Error()}
	}
	if got := archive.Digest(pkg); got != r.Manifest.Archive.Digest {
		return ErrCorruptState{
			Locator: r.Identifier,
			Reason:  fmt.Sprintf("archive digest %s does not match manifest digest %s", got, r.Manifest.Archive.Digest),
		}
	}
	return nil
}

// NewResource packs pkg into an archive and assembles a complete resource
// described by def. The manifest's archive section is computed from the
// package contents and the source section records the file tree with sizes
// and short previews.
func NewResource(def Definition, pkg *archive.Package) (*Resource, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	data, err := archive.Pack(pkg)
	if err != nil {
		return nil, err
	}
	files := archive.DigestFiles(pkg)
	return &Resource{
		Identifier: def.Locator(),
		Manifest: Manifest{
			Definition: def,
			Archive: ArchiveInfo{
				Digest: archive.DigestOfFiles(files),
				Files:  files,
			},
			Source: SourceInfo{Tree: sourceTree(pkg)},
		},
		Archive: data,
	}, nil
}

// sourceTree converts a package's tree view into manifest source entries.
func sourceTree(pkg *archive.Package) []SourceEntry {
	return sourceEntries(pkg, pkg.Tree())
}

func sourceEntries(pkg *archive.Package, nodes []*archive.Node) []SourceEntry {
	if len(nodes) == 0 {
		return nil
	}
	entries := make([]SourceEntry, 0, len(nodes))
	for _, node := range nodes {
		entry := SourceEntry{Name: node.Name}
		if node.File {
			content, _ := pkg.Get(node.Path)
			entry.Size = int64(len(content))
			entry.Preview = preview(content)
		} else {
			entry.Children = sourceEntries(pkg, node.Children)
		}
		entries = append(entries, entry)
	}
	return entries
}

// preview returns a short prefix of content when it is valid UTF-8 text,
// empty otherwise. The cut never splits a rune.
func preview(content []byte) string {
	if len(content) == 0 || !utf8.Valid(content) {
		return ""
	}
	if len(content) <= previewLimit {
		return string(content)
	}
	cut := previewLimit
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return string(content[:cut])
}

// SortedFileNames returns the file names of a stored manifest in
// lexicographic order.
func (sm *StoredManifest) SortedFileNames() []string {
	names := make([]string, 0, len(sm.Files))
	for name := range sm.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
