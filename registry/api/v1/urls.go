package v1

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/resourcex/resourcex/locator"
)

// URLBuilder constructs API URLs against a registry endpoint. The zero
// value is not usable; obtain instances through NewURLBuilder.
type URLBuilder struct {
	root string
}

// NewURLBuilder returns a builder for the registry rooted at endpoint,
// which may carry a scheme and an optional path prefix.
func NewURLBuilder(endpoint string) (*URLBuilder, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	return &URLBuilder{root: parsed.String() + Prefix}, nil
}

// BuildPublishURL constructs the URL of the publish endpoint.
func (ub *URLBuilder) BuildPublishURL() string {
	return ub.root + "/publish"
}

// BuildResourceURL constructs the manifest URL for a locator.
func (ub *URLBuilder) BuildResourceURL(id locator.Locator) string {
	return ub.root + "/resource/" + id.String()
}

// BuildContentURL constructs the archive content URL for a locator.
func (ub *URLBuilder) BuildContentURL(id locator.Locator) string {
	return ub.root + "/content/" + id.String()
}

// BuildSearchURL constructs the search URL. A zero limit or offset is
// omitted from the query.
func (ub *URLBuilder) BuildSearchURL(query string, limit, offset int) string {
	values := url.Values{}
	if query != "" {
		values.Set("q", query)
	}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		values.Set("offset", strconv.Itoa(offset))
	}
	u := ub.root + "/search"
	if encoded := values.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}
