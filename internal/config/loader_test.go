package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/atinylittleshell/ctxref/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(core.HomeEnv, dir)
	core.ResetPaths()
	t.Cleanup(core.ResetPaths)
	return dir
}

func TestDefaultConfig(t *testing.T) {
	home := setupHome(t)
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, filepath.Join(home, "functions.sh"), cfg.FunctionsFile)
	assert.Equal(t, []string{".git", ".project"}, cfg.ProjectMarkers)
	assert.False(t, cfg.IncludeGitStatus)
}

func TestLoadFromString(t *testing.T) {
	setupHome(t)
	loader := NewLoader(zap.NewNop())

	t.Run("overrides defaults", func(t *testing.T) {
		result := loader.LoadFromString(`
logLevel: debug
projectMarkers: [go.mod]
model: gpt-4o
includeGitStatus: true
`)
		assert.Empty(t, result.Errors)
		assert.Equal(t, "debug", result.Config.LogLevel)
		assert.Equal(t, []string{"go.mod"}, result.Config.ProjectMarkers)
		assert.Equal(t, "gpt-4o", result.Config.Model)
		assert.True(t, result.Config.IncludeGitStatus)
		assert.NotEmpty(t, result.Config.SystemPrompt)
	})

	t.Run("empty source keeps defaults", func(t *testing.T) {
		result := loader.LoadFromString("   \n")
		assert.Empty(t, result.Errors)
		assert.Equal(t, DefaultConfig(), result.Config)
	})

	t.Run("parse error keeps defaults", func(t *testing.T) {
		result := loader.LoadFromString("logLevel: [unclosed")
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0].Error(), "parse error")
		assert.Equal(t, "info", result.Config.LogLevel)
	})

	t.Run("invalid log level", func(t *testing.T) {
		result := loader.LoadFromString("logLevel: loud\nmodel: x")
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "info", result.Config.LogLevel)
		assert.Equal(t, "x", result.Config.Model)
	})

	t.Run("empty markers fall back", func(t *testing.T) {
		result := loader.LoadFromString("projectMarkers: []")
		assert.Equal(t, []string{".git", ".project"}, result.Config.ProjectMarkers)
	})
}

func TestLoadFromFile(t *testing.T) {
	home := setupHome(t)
	loader := NewLoader(nil)

	t.Run("missing file", func(t *testing.T) {
		result, err := loader.LoadFromFile(filepath.Join(home, "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), result.Config)
	})

	t.Run("expands the home directory", func(t *testing.T) {
		path := filepath.Join(home, "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("functionsFile: ~/fns.sh\n"), 0644))

		result, err := loader.LoadFromFile(path)
		require.NoError(t, err)
		userHome, err := os.UserHomeDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(userHome, "fns.sh"), result.Config.FunctionsFile)
	})

	t.Run("unreadable path", func(t *testing.T) {
		_, err := loader.LoadFromFile(home)
		assert.Error(t, err)
	})
}
