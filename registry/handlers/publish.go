package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/resourcex/resourcex"
	"github.com/resourcex/resourcex/archive"
	"github.com/resourcex/resourcex/internal/dcontext"
	"github.com/resourcex/resourcex/locator"
	v1 "github.com/resourcex/resourcex/registry/api/v1"
)

// maxPublishMemory bounds the in-memory portion of a parsed multipart
// publish request; larger file parts spill to disk.
const maxPublishMemory = 32 << 20

// publish handles POST /publish: a multipart request carrying the
// locator, the manifest JSON and the gzipped archive.
func (app *App) publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxPublishMemory); err != nil {
		app.serveError(w, r, v1.ErrorCodeManifestInvalid.WithMessagef("undecodable multipart request: %v", err))
		return
	}

	rawLocator := r.FormValue(v1.PublishFieldLocator)
	if rawLocator == "" {
		app.serveError(w, r, v1.ErrorCodeLocatorRequired.WithDefaultMessage())
		return
	}
	id, err := locatorFromPublish(rawLocator)
	if err != nil {
		app.serveError(w, r, err)
		return
	}

	wireManifest, err := app.publishManifest(r)
	if err != nil {
		app.serveError(w, r, err)
		return
	}
	content, err := app.publishContent(r)
	if err != nil {
		app.serveError(w, r, err)
		return
	}

	pkg, err := archive.Unpack(content)
	if err != nil {
		app.serveError(w, r, v1.ErrorCodeManifestInvalid.WithMessagef("undecodable archive: %v", err))
		return
	}

	// The server is the registry: the stored definition carries no
	// registry prefix, and the locator is authoritative for identity.
	def := wireManifest.Definition
	def.Registry = ""
	def.Path = id.Path
	def.Name = id.Name
	def.Tag = id.Tag

	res, err := resourcex.NewResource(def, pkg)
	if err != nil {
		app.serveError(w, r, v1.ErrorCodeManifestInvalid.WithMessage(err.Error()))
		return
	}

	// When the client sent per-file digests, they must agree with the
	// uploaded content.
	if len(wireManifest.Files) > 0 {
		if archive.DigestOfFiles(wireManifest.Files) != res.Manifest.Archive.Digest {
			app.serveError(w, r, v1.ErrorCodeManifestInvalid.WithMessage("manifest file digests do not match uploaded content"))
			return
		}
	}

	if app.options.ImmutableTags {
		exists, err := app.registry.Manifests().Has(ctx, res.Identifier)
		if err != nil {
			app.serveError(w, r, err)
			return
		}
		if exists {
			app.serveError(w, r, v1.ErrorCodeVersionExists.WithMessagef("%s is already published", res.Identifier))
			return
		}
	}

	if err := app.registry.Put(ctx, res); err != nil {
		app.serveError(w, r, err)
		return
	}

	dcontext.GetLoggerWithField(ctx, "resource", res.Identifier).Info("resource published")
	if err := serveJSON(w, http.StatusCreated, v1.PublishResponse{Locator: id.String()}); err != nil {
		dcontext.GetLogger(ctx).WithError(err).Error("serving publish response")
	}
}

func locatorFromPublish(raw string) (locator.Locator, error) {
	id, err := locator.Parse(raw)
	if err != nil {
		return locator.Locator{}, v1.ErrorCodeLocatorInvalid.WithMessage(err.Error())
	}
	return id.WithRegistry(""), nil
}

func (app *App) publishManifest(r *http.Request) (*v1.Manifest, error) {
	file, _, err := r.FormFile(v1.PublishFieldManifest)
	if err != nil {
		return nil, v1.ErrorCodeManifestRequired.WithDefaultMessage()
	}
	defer file.Close()

	var wireManifest v1.Manifest
	if err := json.NewDecoder(file).Decode(&wireManifest); err != nil {
		return nil, v1.ErrorCodeManifestInvalid.WithMessagef("undecodable manifest: %v", err)
	}
	return &wireManifest, nil
}

func (app *App) publishContent(r *http.Request) ([]byte, error) {
	file, _, err := r.FormFile(v1.PublishFieldContent)
	if err != nil {
		return nil, v1.ErrorCodeContentRequired.WithDefaultMessage()
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return content, nil
}
