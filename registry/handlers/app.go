// Package handlers implements the registry's HTTP application: the
// publish, resource, content and search endpoints of the v1 API.
package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/resourcex/resourcex/internal/dcontext"
	v1 "github.com/resourcex/resourcex/registry/api/v1"
	"github.com/resourcex/resourcex/registry/storage"
)

// Options configure optional application behavior.
type Options struct {
	// ImmutableTags makes publishing over an existing (name, tag) pair
	// fail with VERSION_EXISTS instead of overwriting it.
	ImmutableTags bool
}

// App is the registry HTTP application. It owns the registry it serves
// and dispatches API requests to the endpoint handlers.
type App struct {
	registry *storage.Registry
	options  Options
	router   *mux.Router

	// instanceID identifies this instance of the application in logs.
	instanceID string
}

// NewApp builds the application around a storage registry.
func NewApp(registry *storage.Registry, options Options) *App {
	app := &App{
		registry:   registry,
		options:    options,
		router:     v1.Router(),
		instanceID: uuid.NewString(),
	}

	app.register(v1.RouteNamePublish, app.publish)
	app.register(v1.RouteNameResource, app.resource)
	app.register(v1.RouteNameContent, app.content)
	app.register(v1.RouteNameSearch, app.search)

	return app
}

func (app *App) register(routeName string, handler http.HandlerFunc) {
	app.router.GetRoute(routeName).Handler(handler)
}

// ServeHTTP installs a request-scoped logger on the context and
// dispatches to the route handlers.
func (app *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := app.context(r)
	dcontext.GetLogger(ctx).Debug("request started")
	app.router.ServeHTTP(w, r.WithContext(ctx))
}

func (app *App) context(r *http.Request) context.Context {
	logger := dcontext.GetLoggerWithFields(r.Context(), map[string]any{
		"http.request.id":     uuid.NewString(),
		"http.request.method": r.Method,
		"http.request.uri":    r.RequestURI,
		"instance.id":         app.instanceID,
	})
	return dcontext.WithLogger(r.Context(), logger)
}
