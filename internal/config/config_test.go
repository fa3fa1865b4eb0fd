package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxConcurrentDownloads)
	assert.Equal(t, 4, cfg.DefaultThreads)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadReadsFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_concurrent_downloads: 7\ndefault_threads: 2\nlog_level: debug\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxConcurrentDownloads)
	assert.Equal(t, 2, cfg.DefaultThreads)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_threads: 2\n"), 0o644))
	t.Setenv("HLSDL_DEFAULT_THREADS", "9")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.DefaultThreads)
}

func TestLoadMalformedFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: valid: yaml: [["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDefaultPathUsesAppName(t *testing.T) {
	assert.Contains(t, DefaultPath(), "hlsdl")
}
