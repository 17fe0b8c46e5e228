package handlers

import (
	"net/http"
	"strconv"

	"github.com/resourcex/resourcex"
	"github.com/resourcex/resourcex/internal/dcontext"
	v1 "github.com/resourcex/resourcex/registry/api/v1"
)

// defaultSearchLimit caps search responses when the client sends no limit.
const defaultSearchLimit = 50

// search handles GET /search?q=...&limit=...&offset=...
func (app *App) search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := r.URL.Query()

	opts := resourcex.SearchOptions{
		Query: params.Get("q"),
		Limit: defaultSearchLimit,
	}
	// Unparsable paging values fall back to the defaults rather than
	// failing the request.
	if limit, err := strconv.Atoi(params.Get("limit")); err == nil && limit >= 0 {
		opts.Limit = limit
	}
	if offset, err := strconv.Atoi(params.Get("offset")); err == nil && offset >= 0 {
		opts.Offset = offset
	}

	manifests, total, err := app.registry.List(ctx, opts)
	if err != nil {
		app.serveError(w, r, err)
		return
	}

	response := v1.SearchResponse{Results: make([]v1.SearchResult, 0, len(manifests)), Total: total}
	for _, sm := range manifests {
		response.Results = append(response.Results, v1.SearchResult{
			Locator:  sm.Locator().String(),
			Registry: sm.Registry,
			Path:     sm.Path,
			Name:     sm.Name,
			Type:     sm.Type,
			Tag:      sm.Tag,
		})
	}
	if err := serveJSON(w, http.StatusOK, response); err != nil {
		dcontext.GetLogger(ctx).WithError(err).Error("serving search response")
	}
}
