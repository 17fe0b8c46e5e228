package errcode

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
)

var (
	errorCodeToDescriptors = map[ErrorCode]ErrorDescriptor{}
	idToDescriptors        = map[string]ErrorDescriptor{}
	groupToDescriptors     = map[string][]ErrorDescriptor{}
)

var (
	// ErrorCodeUnknown is a generic error that can be used as a last
	// resort if there is no situation-specific error message that can be
	// used.
	ErrorCodeUnknown = register("errcode", ErrorDescriptor{
		Value:   "UNKNOWN",
		Message: "unknown error",
		Description: `Generic error returned when the error does not have an
		API classification.`,
		HTTPStatusCode: http.StatusInternalServerError,
	})

	// ErrorCodeUnauthorized is returned if a request requires
	// authentication.
	ErrorCodeUnauthorized = register("errcode", ErrorDescriptor{
		Value:          "UNAUTHORIZED",
		Message:        "authentication required",
		Description:    `The request lacked valid authentication credentials.`,
		HTTPStatusCode: http.StatusUnauthorized,
	})

	// ErrorCodeForbidden is returned if a client does not have sufficient
	// permission to perform an action.
	ErrorCodeForbidden = register("errcode", ErrorDescriptor{
		Value:          "FORBIDDEN",
		Message:        "requested access to the resource is denied",
		Description:    `Access to the requested operation was denied.`,
		HTTPStatusCode: http.StatusForbidden,
	})

	// ErrorCodeInternal is returned when an unexpected server-side
	// failure prevented the request from completing.
	ErrorCodeInternal = register("errcode", ErrorDescriptor{
		Value:          "INTERNAL_ERROR",
		Message:        "internal error",
		Description:    `The request failed due to an unexpected server-side condition.`,
		HTTPStatusCode: http.StatusInternalServerError,
	})

	// ErrorCodeStorage is returned when the storage backend failed.
	ErrorCodeStorage = register("errcode", ErrorDescriptor{
		Value:          "STORAGE_ERROR",
		Message:        "storage backend failure",
		Description:    `The storage backend reported a failure while serving the request.`,
		HTTPStatusCode: http.StatusInternalServerError,
	})
)

var (
	nextCode     = 1000
	registerLock sync.Mutex
)

// Register will make the passed-in error known to the environment.
func Register(group string, descriptor ErrorDescriptor) ErrorCode {
	return register(group, descriptor)
}

// register will make the passed-in error known to the environment.
func register(group string, descriptor ErrorDescriptor) ErrorCode {
	registerLock.Lock()
	defer registerLock.Unlock()

	descriptor.code = ErrorCode(nextCode)

	if _, ok := idToDescriptors[descriptor.Value]; ok {
		panic(fmt.Sprintf("ErrorValue %q is already registered", descriptor.Value))
	}

	groupToDescriptors[group] = append(groupToDescriptors[group], descriptor)
	errorCodeToDescriptors[descriptor.code] = descriptor
	idToDescriptors[descriptor.Value] = descriptor

	nextCode++
	return descriptor.code
}

// ParseErrorCode returns the value by the string error code.
// `ErrorCodeUnknown` will be returned if the error is not known.
func ParseErrorCode(value string) ErrorCode {
	desc, ok := idToDescriptors[value]
	if ok {
		return desc.code
	}
	return ErrorCodeUnknown
}

// GetGroupNames returns the list of Error group names that are registered.
func GetGroupNames() []string {
	keys := []string{}
	for k := range groupToDescriptors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetErrorCodeGroup returns the named group of error descriptors.
func GetErrorCodeGroup(name string) []ErrorDescriptor {
	return groupToDescriptors[name]
}

// GetErrorAllDescriptors returns a slice of all ErrorDescriptors that are
// registered, irrespective of what group they're in.
func GetErrorAllDescriptors() []ErrorDescriptor {
	result := []ErrorDescriptor{}
	for _, group := range GetGroupNames() {
		result = append(result, GetErrorCodeGroup(group)...)
	}
	return result
}
