package v1

import (
	"net/http"

	"github.com/resourcex/resourcex/registry/api/errcode"
)

const errGroup = "resourcex.api.v1"

var (
	// ErrorCodeLocatorRequired is returned when a publish request lacks
	// the locator field.
	ErrorCodeLocatorRequired = errcode.Register(errGroup, errcode.ErrorDescriptor{
		Value:          "LOCATOR_REQUIRED",
		Message:        "locator field is required",
		Description:    `The publish request did not carry the multipart "locator" field.`,
		HTTPStatusCode: http.StatusBadRequest,
	})

	// ErrorCodeManifestRequired is returned when a publish request lacks
	// the manifest file.
	ErrorCodeManifestRequired = errcode.Register(errGroup, errcode.ErrorDescriptor{
		Value:          "MANIFEST_REQUIRED",
		Message:        "manifest file is required",
		Description:    `The publish request did not carry the multipart "manifest" file.`,
		HTTPStatusCode: http.StatusBadRequest,
	})

	// ErrorCodeContentRequired is returned when a publish request lacks
	// the content file.
	ErrorCodeContentRequired = errcode.Register(errGroup, errcode.ErrorDescriptor{
		Value:          "CONTENT_REQUIRED",
		Message:        "content file is required",
		Description:    `The publish request did not carry the multipart "content" file.`,
		HTTPStatusCode: http.StatusBadRequest,
	})

	// ErrorCodeLocatorInvalid is returned when a locator fails to parse.
	ErrorCodeLocatorInvalid = errcode.Register(errGroup, errcode.ErrorDescriptor{
		Value:          "INVALID_LOCATOR",
		Message:        "invalid locator",
		Description:    `The provided locator could not be parsed.`,
		HTTPStatusCode: http.StatusBadRequest,
	})

	// ErrorCodeManifestInvalid is returned when an uploaded manifest is
	// undecodable or inconsistent with the uploaded content.
	ErrorCodeManifestInvalid = errcode.Register(errGroup, errcode.ErrorDescriptor{
		Value:          "INVALID_MANIFEST",
		Message:        "invalid manifest",
		Description:    `The uploaded manifest was undecodable or did not match the uploaded content.`,
		HTTPStatusCode: http.StatusBadRequest,
	})

	// ErrorCodeResourceNotFound is returned when no resource exists for a
	// locator.
	ErrorCodeResourceNotFound = errcode.Register(errGroup, errcode.ErrorDescriptor{
		Value:          "RESOURCE_NOT_FOUND",
		Message:        "resource not found",
		Description:    `No resource is stored under the requested locator.`,
		HTTPStatusCode: http.StatusNotFound,
	})

	// ErrorCodeVersionExists is returned when publishing over an existing
	// (name, tag) pair on a registry with immutable tags.
	ErrorCodeVersionExists = errcode.Register(errGroup, errcode.ErrorDescriptor{
		Value:          "VERSION_EXISTS",
		Message:        "resource version already exists",
		Description:    `A manifest is already stored under the requested name and tag and the registry forbids overwrites.`,
		HTTPStatusCode: http.StatusConflict,
	})
)
