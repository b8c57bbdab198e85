package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Space/internal/config"
)

// chdir switches the working directory for the duration of the test,
// mirroring testing.T.Chdir, which needs Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Errorf("restore working directory: %v", err)
		}
	})
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), []byte(content), 0o644))
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CONFIG_ENV", "test")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 60, cfg.TickLimit)
	assert.Equal(t, time.Second, cfg.TickInterval)
}

func TestLoadReadsFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "mode: debug\nport: 9999\ntick_limit: 5\n")
	chdir(t, dir)
	t.Setenv("CONFIG_ENV", "test")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Mode)
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, 5, cfg.TickLimit)
	assert.Equal(t, int64(32768), cfg.ReadLimit, "unset keys keep their defaults")
}

func TestLoadMalformedFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "mode: [unclosed\nport 9999\n")
	chdir(t, dir)
	t.Setenv("CONFIG_ENV", "test")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, 8080, cfg.Port)
}
