package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/resourcex/resourcex"
	"github.com/resourcex/resourcex/locator"
	storagedriver "github.com/resourcex/resourcex/registry/storage/driver"
)

// manifestStore implements resourcex.ManifestStore over a storage driver.
// Manifests are stored as JSON under per-(registry, name) directories; a
// tag pointer file per directory records the most recently written tag.
// A write mutex serializes read-modify-write sequences so that concurrent
// puts of the same key cannot interleave.
type manifestStore struct {
	driver storagedriver.StorageDriver
	mu     sync.Mutex
}

var _ resourcex.ManifestStore = &manifestStore{}

func (ms *manifestStore) Get(ctx context.Context, id locator.Locator) (*resourcex.StoredManifest, error) {
	return ms.getAt(ctx, manifestPath(id.Registry, id.Name, id.Tag), id)
}

func (ms *manifestStore) getAt(ctx context.Context, path string, id locator.Locator) (*resourcex.StoredManifest, error) {
	content, err := ms.driver.GetContent(ctx, path)
	if err != nil {
		var notFound storagedriver.PathNotFoundError
		if errors.As(err, &notFound) {
			return nil, resourcex.ErrResourceUnknown{Locator: id}
		}
		return nil, err
	}

	var sm resourcex.StoredManifest
	if err := json.Unmarshal(content, &sm); err != nil {
		return nil, resourcex.ErrCorruptState{Locator: id, Reason: fmt.Sprintf("undecodable manifest: %v", err)}
	}
	return &sm, nil
}

func (ms *manifestStore) Put(ctx context.Context, m *resourcex.StoredManifest) error {
	if err := m.Validate(); err != nil {
		return err
	}
	id := m.Locator()

	ms.mu.Lock()
	defer ms.mu.Unlock()

	stored := *m
	stored.Tag = id.Tag
	now := time.Now().UTC()
	stored.UpdatedAt = now
	stored.CreatedAt = now
	if previous, err := ms.getAt(ctx, manifestPath(id.Registry, id.Name, id.Tag), id); err == nil {
		stored.CreatedAt = previous.CreatedAt
	}

	content, err := json.Marshal(&stored)
	if err != nil {
		return err
	}
	return ms.driver.PutContent(ctx, manifestPath(id.Registry, id.Name, id.Tag), content)
}

func (ms *manifestStore) Has(ctx context.Context, id locator.Locator) (bool, error) {
	return ms.driver.Stat(ctx, manifestPath(id.Registry, id.Name, id.Tag))
}

func (ms *manifestStore) Delete(ctx context.Context, id locator.Locator) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	err := ms.driver.Delete(ctx, manifestPath(id.Registry, id.Name, id.Tag))
	if err != nil {
		var notFound storagedriver.PathNotFoundError
		if errors.As(err, &notFound) {
			return resourcex.ErrResourceUnknown{Locator: id}
		}
	}
	return err
}

func (ms *manifestStore) ListTags(ctx context.Context, registry, name string) ([]string, error) {
	entries, err := ms.driver.List(ctx, namePath(registry, name))
	if err != nil {
		var notFound storagedriver.PathNotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}

	tags := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !strings.HasSuffix(entry, manifestExtension) {
			continue
		}
		tags = append(tags, strings.TrimSuffix(entry, manifestExtension))
	}
	sort.Strings(tags)
	return tags, nil
}

func (ms *manifestStore) ListNames(ctx context.Context, registry, query string) ([]string, error) {
	entries, err := ms.driver.List(ctx, registryPath(registry))
	if err != nil {
		var notFound storagedriver.PathNotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}

	query = strings.ToLower(query)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if query != "" && !strings.Contains(strings.ToLower(entry), query) {
			continue
		}
		names = append(names, entry)
	}
	sort.Strings(names)
	return names, nil
}

func (ms *manifestStore) Search(ctx context.Context, opts resourcex.SearchOptions) ([]*resourcex.StoredManifest, int, error) {
	query := strings.ToLower(opts.Query)

	var matches []*resourcex.StoredManifest
	err := ms.Walk(ctx, func(id locator.Locator, sm *resourcex.StoredManifest) error {
		if opts.Registry != nil && sm.Registry != *opts.Registry {
			return nil
		}
		if query != "" && !strings.Contains(strings.ToLower(sm.Name), query) {
			return nil
		}
		matches = append(matches, sm)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	// Insertion order: oldest first, with the key as tiebreaker for
	// stable pagination.
	sort.SliceStable(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.Before(matches[j].CreatedAt)
		}
		return matches[i].Locator().String() < matches[j].Locator().String()
	})

	total := len(matches)
	if opts.Offset > 0 {
		if opts.Offset >= len(matches) {
			matches = nil
		} else {
			matches = matches[opts.Offset:]
		}
	}
	if opts.Limit > 0 && len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}
	return matches, total, nil
}

func (ms *manifestStore) DeleteByRegistry(ctx context.Context, registry string) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	count := 0
	err := ms.driver.Walk(ctx, registryPath(registry), func(path string) error {
		if _, _, _, ok := parseManifestPath(path); ok {
			count++
		}
		return nil
	})
	if err != nil {
		var notFound storagedriver.PathNotFoundError
		if errors.As(err, &notFound) {
			return 0, nil
		}
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	if err := ms.driver.Delete(ctx, registryPath(registry)); err != nil {
		var notFound storagedriver.PathNotFoundError
		if !errors.As(err, &notFound) {
			return 0, err
		}
	}
	return count, nil
}

func (ms *manifestStore) SetLatest(ctx context.Context, registry, name, tag string) error {
	return ms.driver.PutContent(ctx, latestPath(registry, name), []byte(tag))
}

func (ms *manifestStore) GetLatest(ctx context.Context, registry, name string) (string, error) {
	content, err := ms.driver.GetContent(ctx, latestPath(registry, name))
	if err != nil {
		var notFound storagedriver.PathNotFoundError
		if errors.As(err, &notFound) {
			return "", resourcex.ErrNoLatestPointer{Registry: registry, Name: name}
		}
		return "", err
	}
	return strings.TrimSpace(string(content)), nil
}

func (ms *manifestStore) Walk(ctx context.Context, fn func(id locator.Locator, m *resourcex.StoredManifest) error) error {
	err := ms.driver.Walk(ctx, manifestsRoot, func(path string) error {
		registry, name, tag, ok := parseManifestPath(path)
		if !ok {
			return nil
		}
		id := locator.Locator{Registry: registry, Name: name, Tag: tag}
		sm, err := ms.getAt(ctx, path, id)
		if err != nil {
			// Deleted between listing and reading; skip.
			if resourcex.IsResourceUnknown(err) {
				return nil
			}
			return err
		}
		return fn(id, sm)
	})
	if err != nil {
		var notFound storagedriver.PathNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
	}
	return err
}
