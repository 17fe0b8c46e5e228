package source

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/afero"

	"github.com/resourcex/resourcex"
	"github.com/resourcex/resourcex/internal/dcontext"
)

// Pipeline chains loaders and detectors into source resolution: load the
// file tree, detect its type, and assemble a complete resource.
type Pipeline struct {
	loaders   []Loader
	detectors []Detector
}

// NewPipeline builds a pipeline with the built-in loaders (folder, HTTPS
// archive) and detectors (resource.json, SKILL.md).
func NewPipeline(filesystem afero.Fs, httpClient *http.Client) *Pipeline {
	return &Pipeline{
		loaders: []Loader{
			NewFolderLoader(filesystem),
			NewHTTPSLoader(httpClient),
		},
		detectors: []Detector{
			DefinitionDetector{},
			SkillDetector{},
		},
	}
}

// WithLoaders prepends additional loaders to the chain.
func (p *Pipeline) WithLoaders(loaders ...Loader) *Pipeline {
	p.loaders = append(loaders, p.loaders...)
	return p
}

// WithDetectors prepends additional detectors to the chain.
func (p *Pipeline) WithDetectors(detectors ...Detector) *Pipeline {
	p.detectors = append(detectors, p.detectors...)
	return p
}

// Load runs the loader chain for src. The first loader claiming the
// reference wins.
func (p *Pipeline) Load(ctx context.Context, src string) (*Source, Loader, error) {
	for _, loader := range p.loaders {
		if !loader.CanLoad(src) {
			continue
		}
		loaded, err := loader.Load(ctx, src)
		if err != nil {
			return nil, nil, err
		}
		return loaded, loader, nil
	}
	return nil, nil, NoLoaderError{Source: src}
}

// Detect runs the detector chain over a loaded source. The first non-nil
// detection wins.
func (p *Pipeline) Detect(src *Source) (*Detection, error) {
	for _, detector := range p.detectors {
		detection, err := detector.Detect(src)
		if err != nil {
			return nil, err
		}
		if detection != nil {
			return detection, nil
		}
	}
	return nil, UndetectableError{Source: src.Origin}
}

// Resolve turns a source reference into a complete resource: the loaded
// file tree minus the detection's excluded files, packed and described by
// the detected definition.
func (p *Pipeline) Resolve(ctx context.Context, src string) (*resourcex.Resource, error) {
	loaded, loader, err := p.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	dcontext.GetLoggerWithFields(ctx, map[string]any{
		"source": src,
		"loader": loader.Name(),
	}).Debug("source loaded")

	detection, err := p.Detect(loaded)
	if err != nil {
		return nil, err
	}

	def := resourcex.Definition{
		Name:        detection.Name,
		Type:        detection.Type,
		Tag:         detection.Tag,
		Description: detection.Description,
		Author:      detection.Author,
		License:     detection.License,
		Keywords:    detection.Keywords,
		Repository:  detection.Repository,
	}

	excluded := make(map[string]struct{}, len(detection.ExcludeFromContent))
	for _, name := range detection.ExcludeFromContent {
		excluded[name] = struct{}{}
	}
	pkg := loaded.Files
	if len(excluded) > 0 {
		pkg = loaded.Files.Without(func(name string) bool {
			_, drop := excluded[name]
			return drop
		})
	}

	return resourcex.NewResource(def, pkg)
}

// IsFresh reports whether a copy of src ingested at cachedAt is still
// current. Sources whose loader cannot report freshness are never fresh.
func (p *Pipeline) IsFresh(ctx context.Context, src string, cachedAt time.Time) (bool, error) {
	for _, loader := range p.loaders {
		if !loader.CanLoad(src) {
			continue
		}
		if reporter, ok := loader.(FreshnessReporter); ok {
			return reporter.IsFresh(ctx, src, cachedAt)
		}
		return false, nil
	}
	return false, NoLoaderError{Source: src}
}
