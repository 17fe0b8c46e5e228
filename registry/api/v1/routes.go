// Package v1 describes the resource registry's HTTP API: route names and
// paths, URL construction and the API-specific error codes.
package v1

import "github.com/gorilla/mux"

// Prefix is the path prefix under which all API routes are mounted.
const Prefix = "/api/v1"

// Route names, used to look up routes on a router and to build URLs.
const (
	RouteNamePublish  = "publish"
	RouteNameResource = "resource"
	RouteNameContent  = "content"
	RouteNameSearch   = "search"
)

// Router builds a gorilla/mux router with the v1 API routes registered
// under Prefix. Handlers are attached by the registry application.
func Router() *mux.Router {
	router := mux.NewRouter().UseEncodedPath()
	v1 := router.PathPrefix(Prefix).Subrouter()

	v1.Path("/publish").Methods("POST").Name(RouteNamePublish)
	v1.Path("/search").Methods("GET").Name(RouteNameSearch)

	// Locators contain slashes (registry and path segments), so the
	// variable spans the rest of the request path.
	v1.Path("/resource/{locator:.+}").Methods("GET", "HEAD", "DELETE").Name(RouteNameResource)
	v1.Path("/content/{locator:.+}").Methods("GET").Name(RouteNameContent)

	return router
}
