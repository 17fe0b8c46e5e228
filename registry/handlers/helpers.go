package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/resourcex/resourcex"
	"github.com/resourcex/resourcex/internal/dcontext"
	"github.com/resourcex/resourcex/locator"
	"github.com/resourcex/resourcex/registry/api/errcode"
	v1 "github.com/resourcex/resourcex/registry/api/v1"
	storagedriver "github.com/resourcex/resourcex/registry/storage/driver"
)

// requestLocator parses the locator route variable, stripping any
// client-side registry prefix: on the server every resource is local.
func requestLocator(r *http.Request) (locator.Locator, error) {
	id, err := locator.Parse(mux.Vars(r)["locator"])
	if err != nil {
		return locator.Locator{}, err
	}
	return id.WithRegistry(""), nil
}

// serveError maps domain errors onto wire error codes and serves the
// envelope.
func (app *App) serveError(w http.ResponseWriter, r *http.Request, err error) {
	var wireErr error
	switch {
	case isErrorCoder(err):
		wireErr = err
	case locator.IsParseError(err):
		wireErr = v1.ErrorCodeLocatorInvalid.WithMessage(err.Error())
	case resourcex.IsResourceUnknown(err):
		wireErr = v1.ErrorCodeResourceNotFound.WithDefaultMessage()
	case isInvalidPathError(err):
		// A locator that parsed but cannot map onto a storage path is the
		// client's problem, not a backend failure.
		wireErr = v1.ErrorCodeLocatorInvalid.WithMessage(err.Error())
	case isStorageError(err):
		dcontext.GetLogger(r.Context()).WithError(err).Error("storage failure")
		wireErr = errcode.ErrorCodeStorage.WithDefaultMessage()
	default:
		dcontext.GetLogger(r.Context()).WithError(err).Error("request failed")
		wireErr = errcode.ErrorCodeInternal.WithDefaultMessage()
	}

	if err := errcode.ServeJSON(w, wireErr); err != nil {
		dcontext.GetLogger(r.Context()).WithError(err).Error("serving error envelope")
	}
}

func isErrorCoder(err error) bool {
	var coder errcode.ErrorCoder
	return errors.As(err, &coder)
}

func isInvalidPathError(err error) bool {
	var pathErr storagedriver.InvalidPathError
	return errors.As(err, &pathErr)
}

func isStorageError(err error) bool {
	var driverErr storagedriver.Error
	return errors.As(err, &driverErr)
}

// serveJSON writes v as a JSON response body with the given status.
func serveJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
