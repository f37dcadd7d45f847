package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("PORT", "")
	t.Setenv("DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("SESSION_TTL", "")
	t.Setenv("DEFAULT_SCENE_DURATION", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5, cfg.DefaultSceneDuration)
	assert.DirExists(t, filepath.Join(dir, "data"))
	assert.DirExists(t, filepath.Join(dir, "logs"))
}

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("PORT", "9090")
	t.Setenv("DATA_DIR", filepath.Join(dir, "exports"))
	t.Setenv("LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("DEBUG_MODE", "false")
	t.Setenv("USE_SAMPLE_SCRIPT", "0")
	t.Setenv("SESSION_TTL", "45m")
	t.Setenv("DEFAULT_SCENE_DURATION", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.False(t, cfg.DebugMode)
	assert.False(t, cfg.UseSampleScript)
	assert.Equal(t, 45*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 8, cfg.DefaultSceneDuration)
}

func TestLoadRejectsOutOfRangeDuration(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("DEFAULT_SCENE_DURATION", "42")

	_, err := Load()
	assert.Error(t, err)
}

func TestMalformedValuesFallBack(t *testing.T) {
	t.Setenv("SOME_INT", "abc")
	t.Setenv("SOME_DURATION", "soon")

	assert.Equal(t, 7, getEnvInt("SOME_INT", 7))
	assert.Equal(t, time.Minute, getEnvDuration("SOME_DURATION", time.Minute))
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}
