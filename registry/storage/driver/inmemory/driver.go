// Package inmemory provides a storage driver backed by a process-local
// map. It is intended for testing and ephemeral registries.
package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"

	storagedriver "github.com/resourcex/resourcex/registry/storage/driver"
	"github.com/resourcex/resourcex/registry/storage/driver/factory"
)

const driverName = "inmemory"

func init() {
	factory.Register(driverName, &inMemoryDriverFactory{})
}

type inMemoryDriverFactory struct{}

func (f *inMemoryDriverFactory) Create(parameters map[string]interface{}) (storagedriver.StorageDriver, error) {
	return New(), nil
}

// Driver is a storagedriver.StorageDriver implementation backed by a local
// map.
type Driver struct {
	mu      sync.RWMutex
	storage map[string][]byte
}

var _ storagedriver.StorageDriver = &Driver{}

// New constructs a new empty in-memory driver.
func New() *Driver {
	return &Driver{storage: make(map[string][]byte)}
}

// Name returns the driver name.
func (d *Driver) Name() string {
	return driverName
}

// GetContent retrieves the content stored at path.
func (d *Driver) GetContent(ctx context.Context, path string) ([]byte, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	content, ok := d.storage[path]
	if !ok {
		return nil, storagedriver.PathNotFoundError{Path: path, DriverName: driverName}
	}
	buf := make([]byte, len(content))
	copy(buf, content)
	return buf, nil
}

// PutContent stores content at path.
func (d *Driver) PutContent(ctx context.Context, path string, content []byte) error {
	if err := checkPath(path); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	buf := make([]byte, len(content))
	copy(buf, content)
	d.storage[path] = buf
	return nil
}

// Stat reports whether an object exists at path.
func (d *Driver) Stat(ctx context.Context, path string) (bool, error) {
	if err := checkPath(path); err != nil {
		return false, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.storage[path]
	return ok, nil
}

// List returns the base names of the direct descendants of path.
func (d *Driver) List(ctx context.Context, path string) ([]string, error) {
	if path != "/" {
		if err := checkPath(path); err != nil {
			return nil, err
		}
	}
	prefix := strings.TrimSuffix(path, "/") + "/"

	d.mu.RLock()
	defer d.mu.RUnlock()

	seen := make(map[string]struct{})
	for p := range d.storage {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			rest = rest[:i]
		}
		seen[rest] = struct{}{}
	}
	if len(seen) == 0 {
		return nil, storagedriver.PathNotFoundError{Path: path, DriverName: driverName}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Delete recursively deletes all objects stored at path and its subpaths.
func (d *Driver) Delete(ctx context.Context, path string) error {
	if err := checkPath(path); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	deleted := false
	for p := range d.storage {
		if p == path || strings.HasPrefix(p, path+"/") {
			delete(d.storage, p)
			deleted = true
		}
	}
	if !deleted {
		return storagedriver.PathNotFoundError{Path: path, DriverName: driverName}
	}
	return nil
}

// Walk visits every object stored under path in lexicographic order.
func (d *Driver) Walk(ctx context.Context, path string, fn storagedriver.WalkFn) error {
	if path != "/" {
		if err := checkPath(path); err != nil {
			return err
		}
	}
	prefix := strings.TrimSuffix(path, "/") + "/"

	d.mu.RLock()
	paths := make([]string, 0, len(d.storage))
	for p := range d.storage {
		if p == path || strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	d.mu.RUnlock()

	sort.Strings(paths)
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

func checkPath(path string) error {
	if !storagedriver.PathRegexp.MatchString(path) {
		return storagedriver.InvalidPathError{Path: path, DriverName: driverName}
	}
	return nil
}
