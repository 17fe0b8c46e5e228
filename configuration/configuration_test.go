package configuration

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v2"
)

// configYamlV0_1 is a Version 0.1 yaml document representing configStruct
const configYamlV0_1 = `
version: 0.1
log:
  level: info
  formatter: json
  fields:
    service: registry
    environment: development
storage:
  filesystem:
    rootdirectory: /var/lib/resourcex
http:
  addr: :5858
  prefix: /registry
  debug:
    addr: localhost:5959
registry:
  immutabletags: true
wellknown:
  registries:
    - https://registry.example.com
resolver:
  mirror: https://mirror.example.com
`

// inmemoryConfigYamlV0_1 is a Version 0.1 yaml document specifying an
// inmemory storage driver with no parameters
const inmemoryConfigYamlV0_1 = `
version: 0.1
log:
  level: info
storage: inmemory
`

type ConfigSuite struct {
	suite.Suite
	expectedConfig *Configuration
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) SetupTest() {
	s.expectedConfig = copyConfig(configStruct)
}

// TestParseSimple validates that configYamlV0_1 can be parsed into a struct
// matching configStruct
func (s *ConfigSuite) TestParseSimple() {
	config, err := Parse(bytes.NewReader([]byte(configYamlV0_1)))
	s.Require().NoError(err)
	s.Require().Equal(s.expectedConfig, config)
}

// TestParseInmemory validates that configuration yaml with storage provided
// as a string can be parsed into a Configuration struct with no storage
// parameters
func (s *ConfigSuite) TestParseInmemory() {
	config, err := Parse(bytes.NewReader([]byte(inmemoryConfigYamlV0_1)))
	s.Require().NoError(err)
	s.Require().Equal(Storage{"inmemory": Parameters{}}, config.Storage)
	s.Require().Equal(":5858", config.HTTP.Addr, "default http addr applies")
}

// TestParseWithSameEnvStorage validates that providing environment variables
// that match the given storage type will only include environment-overridden
// parameters
func (s *ConfigSuite) TestParseWithSameEnvStorage() {
	s.expectedConfig.Storage = Storage{"filesystem": Parameters{"rootdirectory": "/tmp/testroot"}}
	s.T().Setenv("RESOURCEX_STORAGE_FILESYSTEM_ROOTDIRECTORY", "/tmp/testroot")

	config, err := Parse(bytes.NewReader([]byte(configYamlV0_1)))
	s.Require().NoError(err)
	s.Require().Equal(s.expectedConfig.Storage, config.Storage)
}

// TestParseWithDifferentEnvStorageType validates that providing an environment
// variable that changes the storage type will be reflected in the parsed
// Configuration struct
func (s *ConfigSuite) TestParseWithDifferentEnvStorageType() {
	s.T().Setenv("RESOURCEX_STORAGE", "inmemory")

	config, err := Parse(bytes.NewReader([]byte(configYamlV0_1)))
	s.Require().NoError(err)
	s.Require().Equal(Storage{"inmemory": Parameters{}}, config.Storage)
}

// TestParseWithExtraneousEnvStorageParams validates that environment variables
// for scalar fields override the yaml values
func (s *ConfigSuite) TestParseScalarEnvOverrides() {
	s.T().Setenv("RESOURCEX_HTTP_ADDR", ":6000")
	s.T().Setenv("RESOURCEX_LOG_LEVEL", "debug")
	s.T().Setenv("RESOURCEX_REGISTRY_IMMUTABLETAGS", "false")

	config, err := Parse(bytes.NewReader([]byte(configYamlV0_1)))
	s.Require().NoError(err)
	s.Require().Equal(":6000", config.HTTP.Addr)
	s.Require().Equal(Loglevel("debug"), config.Log.Level)
	s.Require().False(config.Registry.ImmutableTags)
}

// TestParseInvalidLoglevel validates that the parser will fail to parse a
// configuration if the loglevel is malformed
func (s *ConfigSuite) TestParseInvalidLoglevel() {
	invalidConfigYaml := "version: 0.1\nlog:\n  level: derp\nstorage: inmemory"
	_, err := Parse(bytes.NewReader([]byte(invalidConfigYaml)))
	s.Require().Error(err)

	s.T().Setenv("RESOURCEX_LOG_LEVEL", "derp")
	_, err = Parse(bytes.NewReader([]byte(configYamlV0_1)))
	s.Require().Error(err)
}

// TestParseWithoutStorageValidation validates that the parser will fail to
// parse a configuration if no storage is provided
func (s *ConfigSuite) TestParseWithoutStorage() {
	_, err := Parse(bytes.NewReader([]byte("version: 0.1\nlog:\n  level: info")))
	s.Require().Error(err)
}

// TestParseWithMultipleStorageTypes validates that the parser will fail to
// parse a configuration with more than one storage type
func (s *ConfigSuite) TestParseWithMultipleStorageTypes() {
	multiStorage := `
version: 0.1
storage:
  inmemory:
  filesystem:
    rootdirectory: /tmp
`
	_, err := Parse(bytes.NewReader([]byte(multiStorage)))
	s.Require().Error(err)
	s.Require().Contains(err.Error(), "exactly one storage type")
}

// TestParseInvalidVersion validates that the parser will fail to parse a
// newer configuration version than the current
func (s *ConfigSuite) TestParseInvalidVersion() {
	s.expectedConfig.Version = MajorMinorVersion(CurrentVersion.Major(), CurrentVersion.Minor()+1)
	configBytes, err := yaml.Marshal(s.expectedConfig)
	s.Require().NoError(err)
	_, err = Parse(bytes.NewReader(configBytes))
	s.Require().Error(err)
	s.Require().True(strings.Contains(err.Error(), "unsupported version"))
}

// configStruct is a canonical, parsed example configuration, matching
// configYamlV0_1
var configStruct = func() Configuration {
	var config Configuration
	config.Version = "0.1"
	config.Log.Level = "info"
	config.Log.Formatter = "json"
	config.Log.Fields = map[string]interface{}{
		"service":     "registry",
		"environment": "development",
	}
	config.Storage = Storage{
		"filesystem": Parameters{"rootdirectory": "/var/lib/resourcex"},
	}
	config.HTTP.Addr = ":5858"
	config.HTTP.Prefix = "/registry"
	config.HTTP.Debug.Addr = "localhost:5959"
	config.Registry.ImmutableTags = true
	config.WellKnown.Registries = []string{"https://registry.example.com"}
	config.Resolver.Mirror = "https://mirror.example.com"
	return config
}()

func copyConfig(config Configuration) *Configuration {
	configCopy := config

	configCopy.Storage = Storage{config.Storage.Type(): Parameters{}}
	for k, v := range config.Storage.Parameters() {
		configCopy.Storage.Parameters()[k] = v
	}
	configCopy.Log.Fields = make(map[string]interface{}, len(config.Log.Fields))
	for k, v := range config.Log.Fields {
		configCopy.Log.Fields[k] = v
	}
	configCopy.WellKnown.Registries = append([]string(nil), config.WellKnown.Registries...)
	return &configCopy
}
