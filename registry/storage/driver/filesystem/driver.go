// Package filesystem provides a storage driver backed by a local directory
// tree. Writes go through a temporary file and a rename so that readers
// never observe partial content.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	storagedriver "github.com/resourcex/resourcex/registry/storage/driver"
	"github.com/resourcex/resourcex/registry/storage/driver/factory"
)

const driverName = "filesystem"

// defaultRootDirectory is used when no rootdirectory parameter is given.
const defaultRootDirectory = "/var/lib/resourcex"

func init() {
	factory.Register(driverName, &filesystemDriverFactory{})
}

type filesystemDriverFactory struct{}

func (f *filesystemDriverFactory) Create(parameters map[string]interface{}) (storagedriver.StorageDriver, error) {
	return FromParameters(parameters)
}

// Driver is a storagedriver.StorageDriver implementation backed by a local
// directory tree.
type Driver struct {
	rootDirectory string
}

var _ storagedriver.StorageDriver = &Driver{}

// FromParameters constructs a new Driver with a given parameters map.
// Optional parameter: rootdirectory.
func FromParameters(parameters map[string]interface{}) (*Driver, error) {
	rootDirectory := defaultRootDirectory
	if parameters != nil {
		if rd, ok := parameters["rootdirectory"]; ok {
			s, ok := rd.(string)
			if !ok || s == "" {
				return nil, fmt.Errorf("rootdirectory must be a non-empty string")
			}
			rootDirectory = s
		}
	}
	return New(rootDirectory), nil
}

// New constructs a new Driver rooted at rootDirectory.
func New(rootDirectory string) *Driver {
	return &Driver{rootDirectory: rootDirectory}
}

// Name returns the driver name.
func (d *Driver) Name() string {
	return driverName
}

// fullPath returns the absolute filesystem path for a driver path.
func (d *Driver) fullPath(path string) string {
	return filepath.Join(d.rootDirectory, filepath.FromSlash(path))
}

// GetContent retrieves the content stored at path.
func (d *Driver) GetContent(ctx context.Context, path string) ([]byte, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(d.fullPath(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storagedriver.PathNotFoundError{Path: path, DriverName: driverName}
		}
		return nil, storagedriver.Error{DriverName: driverName, Detail: err}
	}
	return content, nil
}

// PutContent stores content at path. The write is atomic with respect to
// concurrent readers of the same path.
func (d *Driver) PutContent(ctx context.Context, path string, content []byte) error {
	if err := checkPath(path); err != nil {
		return err
	}
	fullPath := d.fullPath(path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return storagedriver.Error{DriverName: driverName, Detail: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".tmp-*")
	if err != nil {
		return storagedriver.Error{DriverName: driverName, Detail: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return storagedriver.Error{DriverName: driverName, Detail: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return storagedriver.Error{DriverName: driverName, Detail: err}
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		os.Remove(tmpName)
		return storagedriver.Error{DriverName: driverName, Detail: err}
	}
	return nil
}

// Stat reports whether a regular file exists at path.
func (d *Driver) Stat(ctx context.Context, path string) (bool, error) {
	if err := checkPath(path); err != nil {
		return false, err
	}
	fi, err := os.Stat(d.fullPath(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, storagedriver.Error{DriverName: driverName, Detail: err}
	}
	return fi.Mode().IsRegular(), nil
}

// List returns the base names of the direct descendants of path.
func (d *Driver) List(ctx context.Context, path string) ([]string, error) {
	if path != "/" {
		if err := checkPath(path); err != nil {
			return nil, err
		}
	}
	entries, err := os.ReadDir(d.fullPath(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storagedriver.PathNotFoundError{Path: path, DriverName: driverName}
		}
		return nil, storagedriver.Error{DriverName: driverName, Detail: err}
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".tmp-") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Delete recursively deletes all objects stored at path and its subpaths.
func (d *Driver) Delete(ctx context.Context, path string) error {
	if err := checkPath(path); err != nil {
		return err
	}
	fullPath := d.fullPath(path)
	if _, err := os.Stat(fullPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return storagedriver.PathNotFoundError{Path: path, DriverName: driverName}
		}
		return storagedriver.Error{DriverName: driverName, Detail: err}
	}
	if err := os.RemoveAll(fullPath); err != nil {
		return storagedriver.Error{DriverName: driverName, Detail: err}
	}
	return nil
}

// Walk visits every regular file stored under path in lexicographic order.
func (d *Driver) Walk(ctx context.Context, path string, fn storagedriver.WalkFn) error {
	if path != "/" {
		if err := checkPath(path); err != nil {
			return err
		}
	}
	root := d.fullPath(path)
	return filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == root {
				return nil
			}
			return storagedriver.Error{DriverName: driverName, Detail: err}
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(d.rootDirectory, p)
		if err != nil {
			return storagedriver.Error{DriverName: driverName, Detail: err}
		}
		return fn("/" + filepath.ToSlash(rel))
	})
}

func checkPath(path string) error {
	if !storagedriver.PathRegexp.MatchString(path) {
		return storagedriver.InvalidPathError{Path: path, DriverName: driverName}
	}
	return nil
}
