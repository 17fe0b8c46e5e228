// Package resolver implements multi-tier resource resolution. A reference
// is tried against the development link index, then the local
// content-addressable store, then — for remote locators only — the
// configured mirror and finally the origin registry found through
// well-known discovery. Remote hits are written back to the local store so
// later resolutions succeed offline.
package resolver

import (
	"context"
	"errors"
	"net/http"
	"time"

	prometheus "github.com/docker/go-metrics"

	"github.com/resourcex/resourcex"
	"github.com/resourcex/resourcex/archive"
	"github.com/resourcex/resourcex/client"
	"github.com/resourcex/resourcex/internal/dcontext"
	"github.com/resourcex/resourcex/links"
	"github.com/resourcex/resourcex/locator"
	"github.com/resourcex/resourcex/metrics"
	"github.com/resourcex/resourcex/source"
	"github.com/resourcex/resourcex/wellknown"
)

// defaultFetchTimeout bounds a single remote fetch attempt.
const defaultFetchTimeout = 30 * time.Second

var (
	resolutionCounter = metrics.ResolverNamespace.NewLabeledCounter("resolutions",
		"The number of successful resolutions by tier", "tier")
	ingestCounter = metrics.ResolverNamespace.NewCounter("ingests",
		"The number of sources ingested into the local store")
)

func init() {
	prometheus.Register(metrics.ResolverNamespace)
}

// ErrNoExecutor is returned by Execute when the resolver was built without
// an executor.
var ErrNoExecutor = errors.New("no executor configured")

// Options tunes a Resolver beyond its required collaborators.
type Options struct {
	// Mirror is the endpoint URL of a pull-through mirror tried before
	// origin discovery. Empty disables the mirror tier.
	Mirror string

	// HTTPClient is used for all remote fetches. Nil uses
	// http.DefaultClient.
	HTTPClient *http.Client

	// FetchTimeout bounds each remote fetch attempt. Zero applies a
	// 30 second default.
	FetchTimeout time.Duration

	// Executor runs resolved resources. Nil leaves Execute unavailable.
	Executor resourcex.Executor
}

// Resolver resolves references through the tiered lookup chain. It is safe
// for concurrent use.
type Resolver struct {
	cas        resourcex.Registry
	index      *links.Index
	pipeline   *source.Pipeline
	discoverer *wellknown.Discoverer

	mirror       string
	httpClient   *http.Client
	fetchTimeout time.Duration
	executor     resourcex.Executor
}

// New builds a resolver over the local store. index may be nil to disable
// the link tier and discoverer may be nil to use a default one.
func New(cas resourcex.Registry, index *links.Index, pipeline *source.Pipeline, discoverer *wellknown.Discoverer, opts Options) *Resolver {
	if discoverer == nil {
		discoverer = wellknown.NewDiscoverer(opts.HTTPClient)
	}
	fetchTimeout := opts.FetchTimeout
	if fetchTimeout == 0 {
		fetchTimeout = defaultFetchTimeout
	}
	return &Resolver{
		cas:          cas,
		index:        index,
		pipeline:     pipeline,
		discoverer:   discoverer,
		mirror:       opts.Mirror,
		httpClient:   opts.HTTPClient,
		fetchTimeout: fetchTimeout,
		executor:     opts.Executor,
	}
}

// Get resolves ref to a complete resource.
func (r *Resolver) Get(ctx context.Context, ref string) (*resourcex.Resource, error) {
	id, err := locator.Parse(ref)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, id)
}

func (r *Resolver) get(ctx context.Context, id locator.Locator) (*resourcex.Resource, error) {
	logger := dcontext.GetLoggerWithField(ctx, "locator", id)

	// A link shadows everything else, and its directory is re-read on
	// every resolution so edits are visible without re-publishing.
	if r.index != nil {
		path, ok, err := r.index.Lookup(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			res, err := r.pipeline.Resolve(ctx, path)
			if err != nil {
				return nil, err
			}
			resolutionCounter.WithValues("link").Inc()
			dcontext.GetLoggerWithFields(ctx, map[string]any{
				"locator": id,
				"path":    path,
			}).Debug("resolved through link")
			return res, nil
		}
	}

	res, err := r.cas.Get(ctx, id)
	if err == nil {
		resolutionCounter.WithValues("local").Inc()
		return res, nil
	}
	if !resourcex.IsResourceUnknown(err) {
		return nil, err
	}

	// Local and localhost locators never leave the machine.
	if id.IsLocal() || id.IsLocalhost() {
		return nil, resourcex.ErrResourceUnknown{Locator: id}
	}

	if r.mirror != "" {
		res, err := r.fetch(ctx, r.mirror, id)
		if err == nil {
			r.writeBack(ctx, res)
			resolutionCounter.WithValues("mirror").Inc()
			return res, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// A mirror miss or an unreachable mirror falls through to the
		// origin; anything else is a real failure.
		if !resourcex.IsResourceUnknown(err) && !client.IsTransportError(err) {
			return nil, err
		}
		logger.Debugf("mirror %s fetch failed, trying origin: %v", r.mirror, err)
	}

	endpoint, err := r.discoverer.DiscoverEndpoint(ctx, id.Registry)
	if err != nil {
		return nil, err
	}
	res, err = r.fetch(ctx, endpoint, id)
	if err != nil {
		return nil, err
	}
	r.writeBack(ctx, res)
	resolutionCounter.WithValues("origin").Inc()
	return res, nil
}

// fetch retrieves id from the registry at endpoint. The registry prefix is
// stripped from the request since a registry serves its own resources
// unprefixed; the fetched resource is re-bound to the registry before it
// is returned.
func (r *Resolver) fetch(ctx context.Context, endpoint string, id locator.Locator) (*resourcex.Resource, error) {
	c, err := client.New(endpoint, r.httpClient)
	if err != nil {
		return nil, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	res, err := c.Fetch(fetchCtx, id.WithRegistry(""))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, client.TransportError{URL: endpoint, Err: err}
		}
		return nil, err
	}

	res.Manifest.Definition.Registry = id.Registry
	res.Identifier = res.Manifest.Definition.Locator()
	return res, nil
}

// writeBack caches a remotely fetched resource in the local store. The
// resource is already in hand, so a failed write-back is logged rather
// than failing the resolution.
func (r *Resolver) writeBack(ctx context.Context, res *resourcex.Resource) {
	if err := r.cas.Put(ctx, res); err != nil {
		dcontext.GetLoggerWithField(ctx, "locator", res.Identifier).
			Warnf("caching fetched resource failed: %v", err)
	}
}

// ResolvedResource is an executable handle on a resolved resource: the
// resource itself plus its unpacked, digest-verified file tree.
type ResolvedResource struct {
	Resource *resourcex.Resource
	Files    *archive.Package

	executor resourcex.Executor
}

// Resolve resolves ref and verifies the resource end to end before
// handing out an executable handle. Resources failing verification are
// rejected here, so an executor never observes corrupted content.
func (r *Resolver) Resolve(ctx context.Context, ref string) (*ResolvedResource, error) {
	res, err := r.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := res.Complete(); err != nil {
		return nil, err
	}
	pkg, err := archive.Unpack(res.Archive)
	if err != nil {
		return nil, resourcex.ErrCorruptState{Locator: res.Identifier, Reason: err.Error()}
	}
	return &ResolvedResource{Resource: res, Files: pkg, executor: r.executor}, nil
}

// Execute runs the resolved resource with args.
func (rr *ResolvedResource) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	if rr.executor == nil {
		return nil, ErrNoExecutor
	}
	return rr.executor.Execute(ctx, &resourcex.Execution{
		Type:     rr.Resource.Manifest.Definition.Type,
		Locator:  rr.Resource.Identifier,
		Manifest: rr.Resource.Manifest,
		Files:    rr.Files,
		Args:     args,
	})
}

// Execute resolves ref and executes it in one step.
func (r *Resolver) Execute(ctx context.Context, ref string, args map[string]interface{}) (interface{}, error) {
	rr, err := r.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return rr.Execute(ctx, args)
}

// Ingest resolves the source reference src through the detection pipeline
// and stores the result locally. When a copy of the same locator is
// already stored and the loader reports the source unchanged since then,
// the stored copy is returned instead and ingested is false.
func (r *Resolver) Ingest(ctx context.Context, src string) (res *resourcex.Resource, ingested bool, err error) {
	res, err = r.pipeline.Resolve(ctx, src)
	if err != nil {
		return nil, false, err
	}

	sm, err := r.cas.GetManifest(ctx, res.Identifier)
	switch {
	case err == nil:
		fresh, freshErr := r.pipeline.IsFresh(ctx, src, sm.UpdatedAt)
		if freshErr == nil && fresh {
			cached, getErr := r.cas.Get(ctx, res.Identifier)
			if getErr == nil {
				dcontext.GetLoggerWithField(ctx, "locator", res.Identifier).
					Debug("source unchanged, keeping stored copy")
				return cached, false, nil
			}
		}
	case !resourcex.IsResourceUnknown(err):
		return nil, false, err
	}

	if err := r.cas.Put(ctx, res); err != nil {
		return nil, false, err
	}
	ingestCounter.Inc()
	return res, true, nil
}
