// Package archive packs resource packages into gzip-compressed tar archives
// and back. Archives are deterministic: entries are written in filename
// order with fixed ownership, permissions and modification time, so the
// same package always produces the same entry stream.
//
// The digest of an archive is defined over its contents rather than its
// compressed bytes: it is the SHA-256 of the filename-sorted concatenation
// of "name:digest\n" lines, where digest is the content digest of the named
// file. Two archives holding identical files are therefore identical in
// digest regardless of the gzip implementation that produced them.
package archive

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/opencontainers/go-digest"
)

// ContentType is the media type served for packed archives.
const ContentType = "application/gzip"

// ErrInsecurePath is returned by Unpack when an archive entry escapes the
// package root through an absolute path or a ".." element.
var ErrInsecurePath = errors.New("archive entry path escapes the package root")

// Pack serializes p into a gzip-compressed ustar archive. Entries are
// written sorted by name with mode 0644, uid and gid 0 and the Unix epoch
// as modification time. Names exceeding the ustar length limit fail.
func Pack(p *Package) ([]byte, error) {
	names := p.Names()
	sort.Strings(names)

	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)

	for _, name := range names {
		content, _ := p.Get(name)
		hdr := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     name,
			Size:     int64(len(content)),
			Mode:     0644,
			ModTime:  time.Unix(0, 0),
			Format:   tar.FormatUSTAR,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("writing header for %q: %w", name, err)
		}
		if _, err := tw.Write(content); err != nil {
			return nil, fmt.Errorf("writing content for %q: %w", name, err)
		}
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gzw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unpack reads a gzip-compressed tar archive back into a Package. Only
// regular files are kept; directories, links and device entries are
// dropped. Entry paths must stay within the package root.
func Unpack(data []byte) (*Package, error) {
	gzr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("reading gzip stream: %w", err)
	}
	defer gzr.Close()

	p := NewPackage()
	tr := tar.NewReader(gzr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name, err := cleanEntryName(hdr.Name)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", hdr.Name, err)
		}
		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("reading entry %q: %w", hdr.Name, err)
		}
		p.Add(name, content)
	}
	return p, nil
}

// cleanEntryName normalizes a tar entry name to a package-relative path.
// "." and empty segments collapse away; anything that would resolve above
// the package root is rejected.
func cleanEntryName(name string) (string, error) {
	if strings.HasPrefix(name, "/") {
		return "", ErrInsecurePath
	}
	name = path.Clean(name)
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, "../") {
		return "", ErrInsecurePath
	}
	return name, nil
}

// Digest computes the content-defined digest of p. It is equivalent to
// DigestOfFiles(DigestFiles(p)).
func Digest(p *Package) digest.Digest {
	return DigestOfFiles(DigestFiles(p))
}

// DigestOfFiles computes the archive digest from a set of per-file content
// digests, as stored in a manifest's files map.
func DigestOfFiles(files map[string]digest.Digest) digest.Digest {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	digester := digest.Canonical.Digester()
	for _, name := range names {
		fmt.Fprintf(digester.Hash(), "%s:%s\n", name, files[name])
	}
	return digester.Digest()
}
