package handlers

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/resourcex/resourcex/archive"
	"github.com/resourcex/resourcex/internal/dcontext"
)

// content handles GET /content/{locator}: it streams the resource's
// archive bytes.
func (app *App) content(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := requestLocator(r)
	if err != nil {
		app.serveError(w, r, err)
		return
	}

	res, err := app.registry.Get(ctx, id)
	if err != nil {
		app.serveError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", archive.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="archive.tar.gz"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Archive)))
	if _, err := bytes.NewReader(res.Archive).WriteTo(w); err != nil {
		dcontext.GetLogger(ctx).WithError(err).Warn("streaming archive interrupted")
	}
}
