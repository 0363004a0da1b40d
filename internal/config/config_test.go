package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 3, cfg.Recovery.MaxAttempts)
	assert.Equal(t, []string{"bun", "install"}, cfg.Manager.Install)
	assert.Contains(t, cfg.Ports, 8899, "solana validator RPC port")
	assert.Equal(t, "test", cfg.Env.Defaults["NODE_ENV"])
	assert.Equal(t, "devnet", cfg.Env.Defaults["SOLANA_NETWORK"])
	assert.Len(t, cfg.Packages, 6)
	require.NoError(t, cfg.validate())
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "remedy.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Recovery.MaxAttempts, cfg.Recovery.MaxAttempts)
}

func TestLoad_MergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "remedy.yaml")
	data := `
workspace_root: /srv/mono
ports: [4000]
recovery:
  max_attempts: 5
  strategy_pause: 250ms
packages:
  - name: sdk
    path: packages/sdk
    test_glob: "tests/*.test.ts"
    timeout: 90s
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/mono", cfg.WorkspaceRoot)
	assert.Equal(t, []int{4000}, cfg.Ports)
	assert.Equal(t, 5, cfg.Recovery.MaxAttempts)

	pause, err := cfg.Recovery.StrategyPauseDuration()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, pause)

	require.Len(t, cfg.Packages, 1)
	d, err := cfg.Packages[0].TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	// Untouched sections keep their defaults.
	assert.Equal(t, []string{"bun", "install"}, cfg.Manager.Install)
}

func TestLoad_RejectsBadDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "remedy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("recovery:\n  test_timeout: forever\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad duration")
}

func TestLoad_RejectsNonPositiveAttempts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "remedy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("recovery:\n  max_attempts: 0\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestPackageByName(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg.PackageByName("sdk"))
	assert.NotNil(t, cfg.PackageByName("packages/sdk"))
	assert.Nil(t, cfg.PackageByName("nope"))
}

func TestDurationDefaults(t *testing.T) {
	var r RecoveryConfig
	d, err := r.TestTimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, d)

	p, err := r.StrategyPauseDuration()
	require.NoError(t, err)
	assert.Equal(t, time.Second, p)

	var pc PackageConfig
	pd, err := pc.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, pd)
}
