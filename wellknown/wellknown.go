// Package wellknown implements registry endpoint discovery through the
// /.well-known/resourcex document: given a domain, it resolves the URL of
// the registry serving that domain's resources.
package wellknown

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/maypok86/otter"
	"golang.org/x/sync/singleflight"
)

// Path is the well-known URI path serving the discovery document.
const Path = "/.well-known/resourcex"

// maxDocumentSize bounds the discovery document read.
const maxDocumentSize = 64 << 10

// discoveryTimeout bounds a single well-known fetch. The fetch runs on a
// context detached from the caller, so the bound is what stops it.
const discoveryTimeout = 30 * time.Second

// Document is the discovery document served under Path. Registries lists
// registry endpoint URLs in preference order.
type Document struct {
	Version    string   `json:"version,omitempty"`
	Registries []string `json:"registries"`
}

// ErrEmptyRegistries is returned when a discovery document lists no
// registries.
var ErrEmptyRegistries = errors.New("well-known document lists no registries")

// DiscoveryFailedError is returned when the discovery document cannot be
// fetched or decoded.
type DiscoveryFailedError struct {
	Domain string
	Reason error
}

func (err DiscoveryFailedError) Error() string {
	return fmt.Sprintf("discovering registry for %s: %v", err.Domain, err.Reason)
}

func (err DiscoveryFailedError) Unwrap() error {
	return err.Reason
}

// Discoverer resolves domains to registry endpoints, memoizing successful
// lookups for its lifetime. Concurrent lookups of the same domain are
// collapsed into one request.
type Discoverer struct {
	client    *http.Client
	scheme    string
	cache     otter.Cache[string, string]
	loadGroup singleflight.Group
}

// NewDiscoverer builds a discoverer using the given HTTP client; a nil
// client uses http.DefaultClient.
func NewDiscoverer(client *http.Client) *Discoverer {
	if client == nil {
		client = http.DefaultClient
	}
	cache, err := otter.MustBuilder[string, string](1024).
		WithTTL(time.Hour).
		Build()
	if err != nil {
		panic(err)
	}
	return &Discoverer{client: client, scheme: "https", cache: cache}
}

// DiscoverEndpoint returns the registry endpoint URL for domain: the
// first entry of the domain's well-known document. Cancelling ctx abandons
// this caller's wait; the underlying fetch keeps running so that other
// callers collapsed onto the same flight still get a result.
func (d *Discoverer) DiscoverEndpoint(ctx context.Context, domain string) (string, error) {
	if endpoint, ok := d.cache.Get(domain); ok {
		return endpoint, nil
	}

	ch := d.loadGroup.DoChan(domain, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discoveryTimeout)
		defer cancel()

		endpoint, err := d.fetch(fetchCtx, domain)
		if err != nil {
			return "", err
		}
		d.cache.Set(domain, endpoint)
		return endpoint, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (d *Discoverer) fetch(ctx context.Context, domain string) (string, error) {
	url := fmt.Sprintf("%s://%s%s", d.scheme, domain, Path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", DiscoveryFailedError{Domain: domain, Reason: err}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", DiscoveryFailedError{Domain: domain, Reason: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", DiscoveryFailedError{
			Domain: domain,
			Reason: fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	var doc Document
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDocumentSize)).Decode(&doc); err != nil {
		return "", DiscoveryFailedError{Domain: domain, Reason: err}
	}
	if len(doc.Registries) == 0 {
		return "", ErrEmptyRegistries
	}
	return doc.Registries[0], nil
}

// Handler serves a discovery document, letting a registry deployment
// advertise its own endpoints.
func Handler(doc Document) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(doc); err != nil {
			http.Error(w, "encoding discovery document", http.StatusInternalServerError)
		}
	})
}
