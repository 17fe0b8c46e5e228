// Package client implements the HTTP client of the registry's v1 API. It
// is the transport used by the resolution pipeline for mirror and origin
// fetches, and by tooling that publishes resources.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/resourcex/resourcex"
	"github.com/resourcex/resourcex/archive"
	"github.com/resourcex/resourcex/locator"
	"github.com/resourcex/resourcex/registry/api/errcode"
	v1 "github.com/resourcex/resourcex/registry/api/v1"
)

// maxManifestSize bounds manifest response reads.
const maxManifestSize = 4 << 20

// TransportError is returned when a registry request fails for any reason
// other than the resource being absent.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (err TransportError) Error() string {
	if err.StatusCode != 0 {
		return fmt.Sprintf("registry request %s: status %d: %v", err.URL, err.StatusCode, err.Err)
	}
	return fmt.Sprintf("registry request %s: %v", err.URL, err.Err)
}

func (err TransportError) Unwrap() error {
	return err.Err
}

// Client talks to one registry endpoint.
type Client struct {
	endpoint   string
	urls       *v1.URLBuilder
	httpClient *http.Client
}

// New builds a client for the registry at endpoint. A nil httpClient uses
// http.DefaultClient.
func New(endpoint string, httpClient *http.Client) (*Client, error) {
	urls, err := v1.NewURLBuilder(endpoint)
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{endpoint: endpoint, urls: urls, httpClient: httpClient}, nil
}

// Endpoint returns the registry endpoint this client talks to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// GetManifest fetches the wire manifest for id.
func (c *Client) GetManifest(ctx context.Context, id locator.Locator) (*v1.Manifest, error) {
	url := c.urls.BuildResourceURL(id)
	resp, err := c.do(ctx, http.MethodGet, url, id)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var wireManifest v1.Manifest
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxManifestSize)).Decode(&wireManifest); err != nil {
		return nil, TransportError{URL: url, Err: fmt.Errorf("undecodable manifest: %w", err)}
	}
	return &wireManifest, nil
}

// GetContent fetches the archive bytes for id.
func (c *Client) GetContent(ctx context.Context, id locator.Locator) ([]byte, error) {
	url := c.urls.BuildContentURL(id)
	resp, err := c.do(ctx, http.MethodGet, url, id)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, TransportError{URL: url, Err: err}
	}
	return content, nil
}

// Fetch retrieves the complete resource for id: manifest, then content,
// then a consistency check of the archive against the manifest's file
// digests.
func (c *Client) Fetch(ctx context.Context, id locator.Locator) (*resourcex.Resource, error) {
	wireManifest, err := c.GetManifest(ctx, id)
	if err != nil {
		return nil, err
	}
	content, err := c.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}

	pkg, err := archive.Unpack(content)
	if err != nil {
		return nil, resourcex.ErrCorruptState{Locator: id, Reason: err.Error()}
	}
	res, err := resourcex.NewResource(wireManifest.Definition, pkg)
	if err != nil {
		return nil, err
	}
	if len(wireManifest.Files) > 0 && archive.DigestOfFiles(wireManifest.Files) != res.Manifest.Archive.Digest {
		return nil, resourcex.ErrCorruptState{
			Locator: id,
			Reason:  "fetched archive does not match manifest file digests",
		}
	}
	return res, nil
}

// Has reports whether the registry stores a resource for id.
func (c *Client) Has(ctx context.Context, id locator.Locator) (bool, error) {
	resp, err := c.do(ctx, http.MethodHead, c.urls.BuildResourceURL(id), id)
	if err != nil {
		if resourcex.IsResourceUnknown(err) {
			return false, nil
		}
		return false, err
	}
	resp.Body.Close()
	return true, nil
}

// Delete removes the manifest for id from the registry.
func (c *Client) Delete(ctx context.Context, id locator.Locator) error {
	resp, err := c.do(ctx, http.MethodDelete, c.urls.BuildResourceURL(id), id)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Publish uploads a complete resource.
func (c *Client) Publish(ctx context.Context, res *resourcex.Resource) error {
	if err := res.Complete(); err != nil {
		return err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField(v1.PublishFieldLocator, res.Identifier.String()); err != nil {
		return err
	}

	manifestPart, err := writer.CreateFormFile(v1.PublishFieldManifest, "manifest.json")
	if err != nil {
		return err
	}
	wireManifest := v1.Manifest{
		Definition: res.Manifest.Definition,
		Files:      res.Manifest.Archive.Files,
	}
	if err := json.NewEncoder(manifestPart).Encode(wireManifest); err != nil {
		return err
	}

	contentPart, err := writer.CreateFormFile(v1.PublishFieldContent, "archive.tar.gz")
	if err != nil {
		return err
	}
	if _, err := contentPart.Write(res.Archive); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	url := c.urls.BuildPublishURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return responseError(url, res.Identifier, resp)
	}
	return nil
}

// Search queries the registry's manifests.
func (c *Client) Search(ctx context.Context, query string, limit, offset int) (*v1.SearchResponse, error) {
	url := c.urls.BuildSearchURL(query, limit, offset)
	resp, err := c.do(ctx, http.MethodGet, url, locator.Locator{})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var searchResp v1.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, TransportError{URL: url, Err: err}
	}
	return &searchResp, nil
}

// do performs a request and normalizes error responses. Responses with a
// success status are returned unread; the caller owns the body.
func (c *Client) do(ctx context.Context, method, url string, id locator.Locator) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Context cancellation and deadlines surface as-is so the
		// caller can distinguish them from transport failures.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, TransportError{URL: url, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	return nil, responseError(url, id, resp)
}

// responseError maps a non-2xx response onto a domain error. A 404, with
// or without a decodable envelope, means the resource is unknown.
func responseError(url string, id locator.Locator, resp *http.Response) error {
	var wireErr errcode.Error
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxManifestSize)).Decode(&wireErr)

	if resp.StatusCode == http.StatusNotFound {
		return resourcex.ErrResourceUnknown{Locator: id}
	}
	if decodeErr == nil {
		return TransportError{URL: url, StatusCode: resp.StatusCode, Err: wireErr}
	}
	return TransportError{
		URL:        url,
		StatusCode: resp.StatusCode,
		Err:        errors.New(http.StatusText(resp.StatusCode)),
	}
}

// IsTransportError reports whether err is a transport-level failure, the
// kind the resolution pipeline treats as "try the next tier".
func IsTransportError(err error) bool {
	var transportErr TransportError
	return errors.As(err, &transportErr)
}
