// Package locator provides a general type to represent names of resources
// held in a registry, including the registry host itself.
//
// Grammar
//
//	locator    := [registry '/'] [path '/'] name [':' tag]
//	registry   := hostname | hostname ':' port-number | "localhost"
//	path       := segment ['/' segment]*
//	name       := segment
//	segment    := /[A-Za-z0-9._-]+/
//	tag        := /[A-Za-z0-9._-]+/
//
// The registry component is recognized structurally: a leading segment is a
// registry iff it contains a dot, contains a colon, or equals "localhost".
// Everything else in the prefix is path. Characters outside the segment
// alphabet, '@' included, are rejected anywhere in a locator; the alphabet
// matches what the storage path layout can hold.
package locator

import (
	"errors"
	"strings"
)

// DefaultTag is the tag assumed when a locator carries none.
const DefaultTag = "latest"

var (
	// ErrEmpty is returned when parsing an empty string.
	ErrEmpty = errors.New("locator must not be empty")

	// ErrInvalidCharacter is returned when a locator contains a character
	// outside the segment alphabet, such as '@' or whitespace, or an empty
	// segment.
	ErrInvalidCharacter = errors.New("locator contains an invalid character")

	// ErrEmptyTag is returned when a trailing ':' carries no tag.
	ErrEmptyTag = errors.New("locator tag must not be empty")

	// ErrEmptyName is returned when the name component is missing.
	ErrEmptyName = errors.New("locator name must not be empty")
)

// Locator is a parsed resource name of the form
// [registry/][path/]name[:tag]. The zero value is not a valid locator;
// obtain instances through Parse or populate Name explicitly.
type Locator struct {
	// Registry is the host (optionally host:port) the resource belongs to.
	// Empty for purely local resources.
	Registry string

	// Path holds the slash-joined namespace segments between the registry
	// and the name. Empty when the resource sits at the registry root.
	Path string

	// Name is the resource name. Never empty on a parsed locator.
	Name string

	// Tag selects a concrete version. Defaults to DefaultTag when the
	// source string carries none.
	Tag string
}

// Parse parses s into a Locator. The tag defaults to DefaultTag when
// omitted. Errors are one of ErrEmpty, ErrInvalidCharacter, ErrEmptyTag or
// ErrEmptyName; use IsParseError to classify an error from this package.
func Parse(s string) (Locator, error) {
	if s == "" {
		return Locator{}, ErrEmpty
	}
	if strings.IndexFunc(s, isInvalidRune) >= 0 {
		return Locator{}, ErrInvalidCharacter
	}

	prefix, tail := "", s
	if i := strings.LastIndex(s, "/"); i >= 0 {
		prefix, tail = s[:i], s[i+1:]
	}

	name, tag := tail, DefaultTag
	if i := strings.LastIndex(tail, ":"); i >= 0 {
		name, tag = tail[:i], tail[i+1:]
		if tag == "" {
			return Locator{}, ErrEmptyTag
		}
	}
	if name == "" {
		return Locator{}, ErrEmptyName
	}

	l := Locator{Name: name, Tag: tag}
	if prefix == "" && !strings.HasPrefix(s, "/") {
		return l, nil
	}

	segments := strings.Split(prefix, "/")
	for _, segment := range segments {
		if segment == "" {
			return Locator{}, ErrInvalidCharacter
		}
	}
	if isRegistry(segments[0]) {
		l.Registry = segments[0]
		l.Path = strings.Join(segments[1:], "/")
	} else {
		l.Path = prefix
	}
	return l, nil
}

// isInvalidRune reports whether r falls outside the locator alphabet.
// '/' and ':' are structural and validated positionally by Parse.
func isInvalidRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	case r == '.', r == '_', r == '-', r == '/', r == ':':
		return false
	}
	return true
}

// isRegistry reports whether a leading locator segment names a registry
// rather than the first path element. The segment cannot contain '/' at
// this point, so a colon always marks a host:port pair.
func isRegistry(segment string) bool {
	return strings.Contains(segment, ".") ||
		strings.Contains(segment, ":") ||
		segment == "localhost"
}

// String returns the canonical string form, omitting the tag when it is
// DefaultTag. Parse(l.String()) yields l back for any parsed locator.
func (l Locator) String() string {
	var b strings.Builder
	if l.Registry != "" {
		b.WriteString(l.Registry)
		b.WriteByte('/')
	}
	if l.Path != "" {
		b.WriteString(l.Path)
		b.WriteByte('/')
	}
	b.WriteString(l.Name)
	if l.Tag != "" && l.Tag != DefaultTag {
		b.WriteByte(':')
		b.WriteString(l.Tag)
	}
	return b.String()
}

// WithRegistry returns a copy of l bound to the given registry. An empty
// argument detaches the locator from any registry.
func (l Locator) WithRegistry(registry string) Locator {
	l.Registry = registry
	return l
}

// WithTag returns a copy of l pointing at the given tag.
func (l Locator) WithTag(tag string) Locator {
	l.Tag = tag
	return l
}

// IsLocal reports whether the locator names a resource with no registry.
func (l Locator) IsLocal() bool {
	return l.Registry == ""
}

// IsLocalhost reports whether the locator's registry host is localhost,
// with or without a port.
func (l Locator) IsLocalhost() bool {
	host := l.Registry
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	return host == "localhost"
}

// IsParseError reports whether err was produced by Parse.
func IsParseError(err error) bool {
	return errors.Is(err, ErrEmpty) ||
		errors.Is(err, ErrInvalidCharacter) ||
		errors.Is(err, ErrEmptyTag) ||
		errors.Is(err, ErrEmptyName)
}
