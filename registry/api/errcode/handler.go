package errcode

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ServeJSON serves err in the wire envelope. It handles ErrorCoder values
// directly; any other error is wrapped as an internal error.
func ServeJSON(w http.ResponseWriter, err error) error {
	w.Header().Set("Content-Type", "application/json")

	var wireErr Error
	var coder ErrorCoder
	switch {
	case errors.As(err, &wireErr):
	case errors.As(err, &coder):
		wireErr = coder.ErrorCode().WithDefaultMessage()
	default:
		wireErr = ErrorCodeInternal.WithMessage(err.Error())
	}

	status := wireErr.Code.Descriptor().HTTPStatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(wireErr)
}
