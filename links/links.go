// Package links maintains the development link index: a redirect table
// from locators to local directories. A linked locator shadows any stored
// resource, and its file tree is re-read on every resolution, so edits in
// the directory are visible without re-publishing.
package links

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/resourcex/resourcex/internal/dcontext"
	"github.com/resourcex/resourcex/locator"
	storagedriver "github.com/resourcex/resourcex/registry/storage/driver"
	"github.com/resourcex/resourcex/source"
)

// indexPath is the driver path holding the serialized index.
const indexPath = "/links/index.json"

// ErrLinkNotFound is returned when unlinking a locator with no entry.
var ErrLinkNotFound = errors.New("link not found")

// Entry is one link index mapping.
type Entry struct {
	Locator string `json:"locator"`
	Path    string `json:"path"`
}

// Index is the persistent link table. It is safe for concurrent use.
type Index struct {
	driver   storagedriver.StorageDriver
	pipeline *source.Pipeline

	mu     sync.RWMutex
	loaded bool
	table  map[string]string
}

// NewIndex builds a link index persisted through driver, using pipeline
// to derive locators from linked directories.
func NewIndex(driver storagedriver.StorageDriver, pipeline *source.Pipeline) *Index {
	return &Index{driver: driver, pipeline: pipeline}
}

// load reads the persisted table once. Callers must hold mu.
func (ix *Index) load(ctx context.Context) error {
	if ix.loaded {
		return nil
	}
	ix.table = make(map[string]string)

	content, err := ix.driver.GetContent(ctx, indexPath)
	if err != nil {
		var notFound storagedriver.PathNotFoundError
		if errors.As(err, &notFound) {
			ix.loaded = true
			return nil
		}
		return err
	}

	var entries []Entry
	if err := json.Unmarshal(content, &entries); err != nil {
		return err
	}
	for _, entry := range entries {
		ix.table[entry.Locator] = entry.Path
	}
	ix.loaded = true
	return nil
}

// persist writes the table. Callers must hold mu.
func (ix *Index) persist(ctx context.Context) error {
	entries := make([]Entry, 0, len(ix.table))
	for loc, path := range ix.table {
		entries = append(entries, Entry{Locator: loc, Path: path})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Locator < entries[j].Locator })

	content, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return ix.driver.PutContent(ctx, indexPath, content)
}

// Link resolves the resource at path and records a mapping from its
// locator to the path. It returns the derived locator.
func (ix *Index) Link(ctx context.Context, path string) (locator.Locator, error) {
	res, err := ix.pipeline.Resolve(ctx, path)
	if err != nil {
		return locator.Locator{}, err
	}
	id := res.Identifier

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.load(ctx); err != nil {
		return locator.Locator{}, err
	}
	ix.table[id.String()] = path
	if err := ix.persist(ctx); err != nil {
		return locator.Locator{}, err
	}

	dcontext.GetLoggerWithFields(ctx, map[string]any{
		"locator": id,
		"path":    path,
	}).Info("resource linked")
	return id, nil
}

// Unlink removes the mapping for id. Returns ErrLinkNotFound when no
// mapping exists.
func (ix *Index) Unlink(ctx context.Context, id locator.Locator) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.load(ctx); err != nil {
		return err
	}

	key := id.String()
	if _, ok := ix.table[key]; !ok {
		return ErrLinkNotFound
	}
	delete(ix.table, key)
	return ix.persist(ctx)
}

// Lookup returns the linked path for id, if any.
func (ix *Index) Lookup(ctx context.Context, id locator.Locator) (string, bool, error) {
	ix.mu.Lock()
	if err := ix.load(ctx); err != nil {
		ix.mu.Unlock()
		return "", false, err
	}
	path, ok := ix.table[id.String()]
	ix.mu.Unlock()
	return path, ok, nil
}

// List enumerates the mappings sorted by locator.
func (ix *Index) List(ctx context.Context) ([]Entry, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.load(ctx); err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(ix.table))
	for loc, path := range ix.table {
		entries = append(entries, Entry{Locator: loc, Path: path})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Locator < entries[j].Locator })
	return entries, nil
}
