package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	// The token is optional and usually arrives through the environment
	// alone, with no .env file present.
	t.Setenv("GITHUB_TOKEN", "ghp_test_token")
	t.Setenv("DATA_DIR", "/tmp/collected")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "ghp_test_token", cfg.GithubToken)
	assert.Equal(t, "/tmp/collected", cfg.DataDir)
	assert.Equal(t, "debug", cfg.LogLevel)
}
