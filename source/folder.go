package source

import (
	"context"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/resourcex/resourcex/archive"
)

// maxFolderFileSize bounds the size of a single loaded file.
const maxFolderFileSize = 16 << 20

// FolderLoader loads a resource's file tree from a directory.
type FolderLoader struct {
	fs afero.Fs
}

var (
	_ Loader            = &FolderLoader{}
	_ FreshnessReporter = &FolderLoader{}
)

// NewFolderLoader builds a folder loader over the given filesystem; a nil
// argument uses the host filesystem.
func NewFolderLoader(filesystem afero.Fs) *FolderLoader {
	if filesystem == nil {
		filesystem = afero.NewOsFs()
	}
	return &FolderLoader{fs: filesystem}
}

// Name identifies the loader.
func (l *FolderLoader) Name() string {
	return "folder"
}

// CanLoad reports whether src names an existing directory.
func (l *FolderLoader) CanLoad(src string) bool {
	fi, err := l.fs.Stat(src)
	return err == nil && fi.IsDir()
}

// Load reads every regular file under src into a package. Dotfiles and
// dot-directories are skipped.
func (l *FolderLoader) Load(ctx context.Context, src string) (*Source, error) {
	pkg := archive.NewPackage()
	err := afero.Walk(l.fs, src, func(p string, fi fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if base := filepath.Base(p); strings.HasPrefix(base, ".") && p != src {
			if fi.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !fi.Mode().IsRegular() || fi.Size() > maxFolderFileSize {
			return nil
		}

		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		content, err := afero.ReadFile(l.fs, p)
		if err != nil {
			return err
		}
		pkg.Add(filepath.ToSlash(rel), content)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Source{Origin: src, Files: pkg}, nil
}

// IsFresh reports whether no file under src was modified after cachedAt.
func (l *FolderLoader) IsFresh(ctx context.Context, src string, cachedAt time.Time) (bool, error) {
	fresh := true
	err := afero.Walk(l.fs, src, func(p string, fi fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(filepath.Base(p), ".") && p != src {
			if fi.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if fi.ModTime().After(cachedAt) {
			fresh = false
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return fresh, nil
}

// BaseName returns the directory base name of a source path, normalized
// for use as a resource name.
func BaseName(src string) string {
	base := path.Base(filepath.ToSlash(filepath.Clean(src)))
	base = strings.ToLower(base)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '-'
		}
	}, base)
}
