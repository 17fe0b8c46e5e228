package handlers

import (
	"net/http"

	"github.com/resourcex/resourcex/internal/dcontext"
	v1 "github.com/resourcex/resourcex/registry/api/v1"
)

// resource handles GET, HEAD and DELETE on /resource/{locator}.
func (app *App) resource(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := requestLocator(r)
	if err != nil {
		app.serveError(w, r, err)
		return
	}

	switch r.Method {
	case http.MethodHead:
		exists, err := app.registry.Has(ctx, id)
		if err != nil {
			app.serveError(w, r, err)
			return
		}
		if !exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)

	case http.MethodGet:
		sm, err := app.registry.GetManifest(ctx, id)
		if err != nil {
			app.serveError(w, r, err)
			return
		}
		wireManifest := v1.Manifest{Definition: sm.Definition, Files: sm.Files}
		if err := serveJSON(w, http.StatusOK, wireManifest); err != nil {
			dcontext.GetLogger(ctx).WithError(err).Error("serving manifest")
		}

	case http.MethodDelete:
		exists, err := app.registry.Has(ctx, id)
		if err != nil {
			app.serveError(w, r, err)
			return
		}
		if !exists {
			app.serveError(w, r, v1.ErrorCodeResourceNotFound.WithDefaultMessage())
			return
		}
		if err := app.registry.Remove(ctx, id); err != nil {
			app.serveError(w, r, err)
			return
		}
		dcontext.GetLoggerWithField(ctx, "resource", id).Info("resource removed")
		w.WriteHeader(http.StatusNoContent)
	}
}
