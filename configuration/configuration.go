// Package configuration parses the registry's versioned YAML
// configuration, with environment variable overrides under the RESOURCEX
// prefix.
package configuration

import (
	"fmt"
	"io"
	"strings"
)

// Configuration is a versioned registry configuration, intended to be
// provided by a yaml file, and optionally modified by environment
// variables.
//
// Note that yaml field names should always be lowercase.
type Configuration struct {
	// Version is the version which defines the format of the rest of the
	// configuration.
	Version Version `yaml:"version"`

	// Log supports setting various parameters related to the logging
	// subsystem.
	Log struct {
		// Level is the granularity at which registry operations are
		// logged.
		Level Loglevel `yaml:"level,omitempty"`

		// Formatter overrides the default formatter with another. Options
		// include "text" and "json".
		Formatter string `yaml:"formatter,omitempty"`

		// Fields allows users to specify static string fields to include
		// in the logger context.
		Fields map[string]interface{} `yaml:"fields,omitempty"`
	} `yaml:"log"`

	// Storage is the configuration for the registry's storage driver.
	Storage Storage `yaml:"storage"`

	// HTTP contains configuration parameters for the registry's http
	// interface.
	HTTP struct {
		// Addr specifies the bind address for the registry instance.
		Addr string `yaml:"addr,omitempty"`

		// Prefix specifies a URL path prefix for the http interface.
		// This can be used to serve the registry under a specific path
		// rather than at the root of the domain (e.g., "/registry").
		Prefix string `yaml:"prefix,omitempty"`

		// Debug configures the http debug interface, if specified. This
		// can include services such as pprof, expvar and metrics.
		Debug struct {
			// Addr specifies the bind address for the debug server.
			Addr string `yaml:"addr,omitempty"`
		} `yaml:"debug,omitempty"`
	} `yaml:"http,omitempty"`

	// Registry tunes the behavior of the resource store itself.
	Registry struct {
		// ImmutableTags rejects publishes over an existing (name, tag)
		// pair instead of overwriting it.
		ImmutableTags bool `yaml:"immutabletags,omitempty"`
	} `yaml:"registry,omitempty"`

	// WellKnown configures the discovery document the instance serves
	// under /.well-known/resourcex.
	WellKnown struct {
		// Registries lists the endpoint URLs advertised for this
		// deployment, in preference order. Empty disables the document.
		Registries []string `yaml:"registries,omitempty"`
	} `yaml:"wellknown,omitempty"`

	// Resolver configures outbound resolution when the instance is used
	// as a pull-through node.
	Resolver struct {
		// Mirror is the endpoint URL of a mirror registry tried before
		// origin discovery.
		Mirror string `yaml:"mirror,omitempty"`
	} `yaml:"resolver,omitempty"`
}

// CurrentVersion is the most recent Version that can be parsed.
var CurrentVersion = MajorMinorVersion(0, 1)

// UnmarshalYAML implements the yaml.Unmarshaler interface. Unmarshals a
// string of the form X.Y into a Version, validating that X and Y can
// represent uints.
func (version *Version) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var versionString string
	if err := unmarshal(&versionString); err != nil {
		return err
	}

	newVersion := Version(versionString)
	if _, err := newVersion.major(); err != nil {
		return err
	}
	if _, err := newVersion.minor(); err != nil {
		return err
	}

	*version = newVersion
	return nil
}

// Loglevel is the level at which operations are logged. This can be
// error, warn, info, or debug.
type Loglevel string

// UnmarshalYAML implements the yaml.Umarshaler interface, lowercasing the
// string and validating that it represents a valid loglevel.
func (loglevel *Loglevel) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var loglevelString string
	if err := unmarshal(&loglevelString); err != nil {
		return err
	}

	loglevelString = strings.ToLower(loglevelString)
	switch loglevelString {
	case "error", "warn", "info", "debug":
	default:
		return fmt.Errorf("invalid loglevel %s, must be one of [error, warn, info, debug]", loglevelString)
	}

	*loglevel = Loglevel(loglevelString)
	return nil
}

// Parameters defines a key-value parameters mapping
type Parameters map[string]interface{}

// Storage defines the configuration for registry object storage
type Storage map[string]Parameters

// Type returns the storage driver type, such as filesystem or inmemory
func (storage Storage) Type() string {
	// Return only key in this map
	for k := range storage {
		return k
	}
	return ""
}

// Parameters returns the Parameters map for a Storage configuration
func (storage Storage) Parameters() Parameters {
	return storage[storage.Type()]
}

// UnmarshalYAML implements the yaml.Unmarshaler interface. Unmarshals a
// single item map into a Storage or a string into a Storage type with no
// parameters.
func (storage *Storage) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var storageMap map[string]Parameters
	err := unmarshal(&storageMap)
	if err == nil {
		if len(storageMap) > 1 {
			types := make([]string, 0, len(storageMap))
			for k := range storageMap {
				types = append(types, k)
			}
			return fmt.Errorf("must provide exactly one storage type, provided: %v", types)
		}
		*storage = storageMap
		return nil
	}

	var storageType string
	err = unmarshal(&storageType)
	if err == nil {
		*storage = Storage{storageType: Parameters{}}
		return nil
	}

	return err
}

// MarshalYAML implements the yaml.Marshaler interface
func (storage Storage) MarshalYAML() (interface{}, error) {
	if storage.Parameters() == nil {
		return storage.Type(), nil
	}
	return map[string]Parameters(storage), nil
}

// Parse parses an input configuration yaml document into a Configuration
// struct.
//
// Environment variables may be used to override configuration parameters
// other than version, following the scheme below:
// Configuration.Abc may be replaced by the value of RESOURCEX_ABC,
// Configuration.Abc.Xyz may be replaced by the value of RESOURCEX_ABC_XYZ,
// and so forth.
func Parse(rd io.Reader) (*Configuration, error) {
	in, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}

	config := new(Configuration)
	if err := NewParser("resourcex", CurrentVersion).Parse(in, config); err != nil {
		return nil, err
	}

	if config.Storage.Type() == "" {
		return nil, fmt.Errorf("no storage configuration provided")
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.HTTP.Addr == "" {
		config.HTTP.Addr = ":5858"
	}
	return config, nil
}
