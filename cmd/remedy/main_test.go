package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remedy/internal/config"
)

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["diagnose"])
	assert.True(t, names["fix"])
}

func TestLoadConfig_WorkspaceOverride(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "remedy.yaml"),
		[]byte("recovery:\n  max_attempts: 5\n"), 0o644))

	configPath = ""
	workspace = root
	t.Cleanup(func() { configPath, workspace = "", "" })

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, root, cfg.WorkspaceRoot)
	assert.Equal(t, 5, cfg.Recovery.MaxAttempts)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	configPath = ""
	workspace = t.TempDir()
	t.Cleanup(func() { configPath, workspace = "", "" })

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Recovery.MaxAttempts)
}

func TestNewContext_UnknownScope(t *testing.T) {
	cfg, err := loadConfigDefaults(t)
	require.NoError(t, err)

	_, err = newContext(cfg, "does-not-exist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown package")
	assert.Contains(t, err.Error(), "sdk")
}

func loadConfigDefaults(t *testing.T) (*config.Config, error) {
	t.Helper()
	configPath = ""
	workspace = t.TempDir()
	t.Cleanup(func() { configPath, workspace = "", "" })
	return loadConfig()
}
