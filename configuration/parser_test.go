package configuration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type localConfiguration struct {
	Version Version `yaml:"version"`
	Log     struct {
		Formatter string `yaml:"formatter,omitempty"`
	} `yaml:"log"`
	Storage Storage `yaml:"storage"`
}

const localConfigYaml = `version: "0.1"
log:
  formatter: "text"
storage:
  inmemory:
    capacity: 16
`

func parseLocal(t *testing.T, prefix string) localConfiguration {
	t.Helper()
	var config localConfiguration
	require.NoError(t, NewParser(prefix, "0.1").Parse([]byte(localConfigYaml), &config))
	return config
}

func TestParserPlain(t *testing.T) {
	config := parseLocal(t, "testprefix")
	assert.Equal(t, Version("0.1"), config.Version)
	assert.Equal(t, "text", config.Log.Formatter)
	assert.Equal(t, "inmemory", config.Storage.Type())
}

func TestParserEnvOverride(t *testing.T) {
	t.Setenv("TESTREG_LOG_FORMATTER", "json")

	// The parser snapshots the environment at construction time, so the
	// override must be set before NewParser runs.
	config := parseLocal(t, "testreg")
	assert.Equal(t, "json", config.Log.Formatter)
}

func TestParserEnvOverrideStorageParameter(t *testing.T) {
	t.Setenv("TESTSTORE_STORAGE_INMEMORY_CAPACITY", "64")

	config := parseLocal(t, "teststore")
	assert.Equal(t, 64, config.Storage.Parameters()["capacity"])
}

func TestParserUnsupportedVersion(t *testing.T) {
	var config localConfiguration
	err := NewParser("nover", "0.2").Parse([]byte(localConfigYaml), &config)
	assert.ErrorContains(t, err, "unsupported version")
}
