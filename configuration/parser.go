package configuration

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

// Version is a "major.minor" configuration format version. A major bump
// signals an incompatible layout; minor bumps are additive.
type Version string

// MajorMinorVersion builds a Version from its two components.
func MajorMinorVersion(major, minor uint) Version {
	return Version(fmt.Sprintf("%d.%d", major, minor))
}

func (version Version) major() (uint, error) {
	majorPart, _, _ := strings.Cut(string(version), ".")
	major, err := strconv.ParseUint(majorPart, 10, 0)
	return uint(major), err
}

// Major returns the major component of the version.
func (version Version) Major() uint {
	major, _ := version.major()
	return major
}

func (version Version) minor() (uint, error) {
	_, minorPart, _ := strings.Cut(string(version), ".")
	minor, err := strconv.ParseUint(minorPart, 10, 0)
	return uint(minor), err
}

// Minor returns the minor component of the version.
func (version Version) Minor() uint {
	minor, _ := version.minor()
	return minor
}

// Parser decodes a versioned YAML document into a destination struct and
// then applies environment variable overrides found under its prefix. Only
// one format version is supported at a time; documents declaring any other
// version are rejected before decoding.
type Parser struct {
	prefix  string
	version Version
	env     map[string]string
}

// NewParser returns a Parser accepting documents of the given version.
// Override variables are named PREFIX_FIELD[_SUBFIELD...], uppercased; the
// environment is snapshotted at construction time.
func NewParser(prefix string, version Version) *Parser {
	p := Parser{
		prefix:  strings.ToUpper(prefix),
		version: version,
		env:     make(map[string]string),
	}
	for _, pair := range os.Environ() {
		k, v, _ := strings.Cut(pair, "=")
		p.env[k] = v
	}
	return &p
}

// Parse decodes in into v, which must be a pointer to a struct carrying
// yaml tags. The document's version field must match the parser's version.
// Any field may then be overridden from the environment, with the variable
// value itself parsed as YAML: v.Abc from PREFIX_ABC, v.Abc.Xyz from
// PREFIX_ABC_XYZ, and map keys appended the same way.
func (p *Parser) Parse(in []byte, v interface{}) error {
	var versioned struct {
		Version Version
	}
	if err := yaml.Unmarshal(in, &versioned); err != nil {
		return err
	}
	if versioned.Version != p.version {
		return fmt.Errorf("unsupported version: %q", versioned.Version)
	}

	if err := yaml.Unmarshal(in, v); err != nil {
		return err
	}
	return p.overwriteFields(reflect.ValueOf(v), p.prefix)
}

// overwriteFields walks v recursively, replacing any struct field or map
// entry whose derived variable name is set in the captured environment.
func (p *Parser) overwriteFields(v reflect.Value, prefix string) error {
	for v.Kind() == reflect.Ptr {
		v = reflect.Indirect(v)
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			field := v.Type().Field(i)
			name := strings.ToUpper(prefix + "_" + field.Name)
			if raw, ok := p.env[name]; ok {
				replacement := reflect.New(field.Type)
				if err := yaml.Unmarshal([]byte(raw), replacement.Interface()); err != nil {
					return err
				}
				v.Field(i).Set(reflect.Indirect(replacement))
			}
			if err := p.overwriteFields(v.Field(i), name); err != nil {
				return err
			}
		}
	case reflect.Map:
		return p.overwriteMap(v, prefix)
	}
	return nil
}

// overwriteMap recurses into map-valued entries and, for leaf maps, adds
// or replaces entries named PREFIX_KEY. Keys are lowercased on the way in,
// mirroring the yaml convention of lowercase field names.
func (p *Parser) overwriteMap(m reflect.Value, prefix string) error {
	if m.Type().Elem().Kind() == reflect.Map {
		for _, k := range m.MapKeys() {
			name := strings.ToUpper(fmt.Sprintf("%s_%s", prefix, k))
			if err := p.overwriteMap(m.MapIndex(k), name); err != nil {
				return err
			}
		}
		return nil
	}

	entryPattern := regexp.MustCompile(fmt.Sprintf("^%s_([A-Z0-9]+)$", regexp.QuoteMeta(strings.ToUpper(prefix))))
	for name, raw := range p.env {
		submatches := entryPattern.FindStringSubmatch(name)
		if submatches == nil {
			continue
		}
		value := reflect.New(m.Type().Elem())
		if err := yaml.Unmarshal([]byte(raw), value.Interface()); err != nil {
			return err
		}
		m.SetMapIndex(reflect.ValueOf(strings.ToLower(submatches[1])), reflect.Indirect(value))
	}
	return nil
}
