package archive

import (
	"sort"
	"strings"

	"github.com/opencontainers/go-digest"
)

// File is a single named file inside a Package.
type File struct {
	Name    string
	Content []byte
}

// Package is an ordered collection of files addressed by slash-separated
// relative paths. Insertion order is preserved; re-adding a name replaces
// the content in place.
type Package struct {
	files []File
	index map[string]int
}

// NewPackage returns an empty package.
func NewPackage() *Package {
	return &Package{index: make(map[string]int)}
}

// Add inserts content under name, replacing any previous content for the
// same name without changing its position.
func (p *Package) Add(name string, content []byte) {
	if p.index == nil {
		p.index = make(map[string]int)
	}
	if i, ok := p.index[name]; ok {
		p.files[i].Content = content
		return
	}
	p.index[name] = len(p.files)
	p.files = append(p.files, File{Name: name, Content: content})
}

// Get returns the content stored under name.
func (p *Package) Get(name string) ([]byte, bool) {
	i, ok := p.index[name]
	if !ok {
		return nil, false
	}
	return p.files[i].Content, true
}

// Names returns the file names in insertion order.
func (p *Package) Names() []string {
	names := make([]string, len(p.files))
	for i, f := range p.files {
		names[i] = f.Name
	}
	return names
}

// Files returns the files in insertion order. The returned slice is shared
// with the package and must not be modified.
func (p *Package) Files() []File {
	return p.files
}

// Without returns a copy of the package omitting the files for which drop
// returns true. Insertion order of the kept files is preserved.
func (p *Package) Without(drop func(name string) bool) *Package {
	kept := NewPackage()
	for _, f := range p.files {
		if drop(f.Name) {
			continue
		}
		kept.Add(f.Name, f.Content)
	}
	return kept
}

// Len returns the number of files in the package.
func (p *Package) Len() int {
	return len(p.files)
}

// DigestFiles returns the content digest of every file in p, keyed by name.
func DigestFiles(p *Package) map[string]digest.Digest {
	files := make(map[string]digest.Digest, p.Len())
	for _, f := range p.Files() {
		files[f.Name] = digest.FromBytes(f.Content)
	}
	return files
}

// Node is one entry in the hierarchical view of a package. Directory nodes
// have File set to false and carry no content; file content is looked up on
// the package itself via the node's Path.
type Node struct {
	// Name is the base name of the entry.
	Name string

	// Path is the full slash-separated path from the package root.
	Path string

	// File reports whether the node is a file rather than a directory.
	File bool

	// Children holds the node's entries sorted by name. Nil for files.
	Children []*Node
}

// Tree returns a hierarchical view of the package. Intermediate directories
// are synthesized from the file paths; siblings are sorted by name.
func (p *Package) Tree() []*Node {
	root := &Node{}
	nodes := map[string]*Node{"": root}

	for _, f := range p.files {
		parts := strings.Split(f.Name, "/")
		for i := range parts {
			path := strings.Join(parts[:i+1], "/")
			if _, ok := nodes[path]; ok {
				continue
			}
			node := &Node{
				Name: parts[i],
				Path: path,
				File: i == len(parts)-1,
			}
			nodes[path] = node
			parent := nodes[strings.Join(parts[:i], "/")]
			parent.Children = append(parent.Children, node)
		}
	}

	for _, node := range nodes {
		children := node.Children
		sort.Slice(children, func(i, j int) bool {
			return children[i].Name < children[j].Name
		})
	}
	return root.Children
}
