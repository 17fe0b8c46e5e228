// Package errcode defines the wire error model shared by the registry
// server and its clients: error codes with stable string values, default
// messages and HTTP status codes, serialized as a single-object JSON
// envelope {"error": ..., "code": ...}.
package errcode

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ErrorCoder is the base interface for ErrorCode and Error allowing
// users of each to just call ErrorCode to get the real ID of each.
type ErrorCoder interface {
	ErrorCode() ErrorCode
}

// ErrorCode represents the error type. The errors are serialized via
// strings and the integer format may change and should *never* be
// exported.
type ErrorCode int

var _ error = ErrorCode(0)

// ErrorCode just returns itself.
func (ec ErrorCode) ErrorCode() ErrorCode {
	return ec
}

// Error implements the error interface.
func (ec ErrorCode) Error() string {
	return strings.ToLower(strings.ReplaceAll(ec.String(), "_", " "))
}

// Descriptor returns the descriptor registered for this error code.
func (ec ErrorCode) Descriptor() ErrorDescriptor {
	d, ok := errorCodeToDescriptors[ec]
	if !ok {
		return ErrorCodeUnknown.Descriptor()
	}
	return d
}

// String returns the canonical identifier for this error code.
func (ec ErrorCode) String() string {
	return ec.Descriptor().Value
}

// Message returns the message registered for this error code.
func (ec ErrorCode) Message() string {
	return ec.Descriptor().Message
}

// MarshalText encodes the receiver into UTF-8-encoded text and returns
// the result.
func (ec ErrorCode) MarshalText() (text []byte, err error) {
	return []byte(ec.String()), nil
}

// UnmarshalText decodes the form generated by MarshalText.
func (ec *ErrorCode) UnmarshalText(text []byte) error {
	desc, ok := idToDescriptors[string(text)]
	if !ok {
		desc = ErrorCodeUnknown.Descriptor()
	}
	*ec = desc.code
	return nil
}

// WithMessage creates a new Error struct based on the passed-in info and
// overrides the Message property.
func (ec ErrorCode) WithMessage(message string) Error {
	return Error{
		Code:    ec,
		Message: message,
	}
}

// WithMessagef formats a message for a new Error based on the code.
func (ec ErrorCode) WithMessagef(format string, args ...any) Error {
	return ec.WithMessage(fmt.Sprintf(format, args...))
}

// WithDefaultMessage creates a new Error struct carrying the code's
// registered default message.
func (ec ErrorCode) WithDefaultMessage() Error {
	return ec.WithMessage(ec.Message())
}

// Error provides a wrapper around ErrorCode with extra message.
type Error struct {
	Code    ErrorCode
	Message string
}

var _ error = Error{}

// ErrorCode returns the ID/Value of this Error.
func (e Error) ErrorCode() ErrorCode {
	return e.Code
}

// Error returns a human readable representation of the error.
func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code.Error(), e.Message)
}

// envelope is the wire form of an Error.
type envelope struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// MarshalJSON writes the single-object wire envelope.
func (e Error) MarshalJSON() ([]byte, error) {
	message := e.Message
	if message == "" {
		message = e.Code.Message()
	}
	return json.Marshal(envelope{Error: message, Code: e.Code.String()})
}

// UnmarshalJSON reads the single-object wire envelope.
func (e *Error) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	if err := e.Code.UnmarshalText([]byte(env.Code)); err != nil {
		return err
	}
	e.Message = env.Error
	return nil
}

// ErrorDescriptor provides relevant information about a given error code.
type ErrorDescriptor struct {
	// Code is the error code that this descriptor describes.
	code ErrorCode

	// Value provides a unique, string key, often captilized with
	// underscores, to identify the error code. This value is used as the
	// keyed value when serializing api errors.
	Value string

	// Message is a short, human readable description of the error
	// condition included in API responses.
	Message string

	// Description provides a complete account of the errors purpose,
	// suitable for use in documentation.
	Description string

	// HTTPStatusCode provides the http status code that is associated
	// with this error condition.
	HTTPStatusCode int
}
