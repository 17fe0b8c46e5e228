package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/resourcex/resourcex/archive"
)

// maxArchiveDownload bounds the size of a downloaded archive.
const maxArchiveDownload = 128 << 20

// HTTPSLoader downloads a gzipped tar archive from an HTTPS URL and loads
// its file tree.
type HTTPSLoader struct {
	client *http.Client
}

var _ Loader = &HTTPSLoader{}

// NewHTTPSLoader builds an HTTPS archive loader; a nil client uses
// http.DefaultClient.
func NewHTTPSLoader(client *http.Client) *HTTPSLoader {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSLoader{client: client}
}

// Name identifies the loader.
func (l *HTTPSLoader) Name() string {
	return "https-archive"
}

// CanLoad reports whether src is an HTTPS URL.
func (l *HTTPSLoader) CanLoad(src string) bool {
	return strings.HasPrefix(src, "https://")
}

// Load downloads the archive at src and unpacks it.
func (l *HTTPSLoader) Load(ctx context.Context, src string) (*Source, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("downloading %s: unexpected status %s", src, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArchiveDownload))
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", src, err)
	}
	pkg, err := archive.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpacking %s: %w", src, err)
	}
	return &Source{Origin: src, Files: pkg}, nil
}
