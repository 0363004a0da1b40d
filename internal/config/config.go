// Package config holds all remedy configuration: the target workspace, the
// package manager command set, the reclaimable port list, recovery loop
// limits, and the diagnostics package matrix. Configuration is loaded from a
// YAML file (remedy.yaml) merged over built-in defaults, so the tool works
// out of the box inside the platform monorepo it was written for.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up in the workspace root.
const DefaultFileName = "remedy.yaml"

// Config is the root configuration.
type Config struct {
	// WorkspaceRoot is the monorepo root. Empty means the current directory.
	WorkspaceRoot string `yaml:"workspace_root"`

	// Manager configures package manager and build tool invocations.
	Manager ManagerConfig `yaml:"manager"`

	// Ports is the fixed set of TCP ports the port reclaimer frees.
	Ports []int `yaml:"ports"`

	// Env configures environment normalization.
	Env EnvConfig `yaml:"env"`

	// Recovery configures the orchestration loop.
	Recovery RecoveryConfig `yaml:"recovery"`

	// Diagnose configures the matrix runner.
	Diagnose DiagnoseConfig `yaml:"diagnose"`

	// Packages is the static package matrix for diagnostics and the
	// package-scoped remediation strategies.
	Packages []PackageConfig `yaml:"packages"`
}

// ManagerConfig holds the external commands remedy shells out to, each as an
// argv vector so no shell quoting is involved.
type ManagerConfig struct {
	Install    []string `yaml:"install"`     // e.g. [bun, install]
	CacheClean []string `yaml:"cache_clean"` // e.g. [bun, pm, cache, rm]
	Build      []string `yaml:"build"`       // e.g. [bun, run, build]
	Test       []string `yaml:"test"`        // per-package test command
	TestE2E    []string `yaml:"test_e2e"`    // whole-suite test command
}

// EnvConfig configures the environment normalizer.
type EnvConfig struct {
	// File is a dotenv file loaded (without overriding) before defaults
	// are applied. Relative to the workspace root.
	File string `yaml:"file"`

	// Defaults are variables set only when currently unset.
	Defaults map[string]string `yaml:"defaults"`
}

// RecoveryConfig bounds the recovery loop.
type RecoveryConfig struct {
	// MaxAttempts caps test-run/classify/remediate cycles.
	MaxAttempts int `yaml:"max_attempts"`

	// StrategyPause separates successive strategy executions, giving a
	// freshly killed process time to release its socket.
	StrategyPause string `yaml:"strategy_pause"`

	// TestTimeout bounds one test-suite invocation.
	TestTimeout string `yaml:"test_timeout"`

	// MaxOutputBytes caps captured test output per run.
	MaxOutputBytes int64 `yaml:"max_output_bytes"`
}

// DiagnoseConfig configures the matrix runner's reporting.
type DiagnoseConfig struct {
	// ReportDir is where JSON reports are written. Empty disables reports.
	ReportDir string `yaml:"report_dir"`

	// TailLines is how many trailing output lines to print for failed
	// packages.
	TailLines int `yaml:"tail_lines"`
}

// PackageConfig describes one entry of the package matrix.
type PackageConfig struct {
	Name string `yaml:"name"`

	// Path is the package directory, relative to the workspace root.
	Path string `yaml:"path"`

	// TestGlob locates test files relative to Path; a package with no
	// matching files is skipped, not failed.
	TestGlob string `yaml:"test_glob"`

	// Timeout bounds this package's test command.
	Timeout string `yaml:"timeout"`

	// BuildDirs are build output directories removed by the build-refresh
	// strategy, relative to Path.
	BuildDirs []string `yaml:"build_dirs"`

	// DataDirs are local test-database/state directories removed by
	// fix --reset-db, relative to Path.
	DataDirs []string `yaml:"data_dirs"`
}

// Default returns the built-in configuration for the platform monorepo.
func Default() *Config {
	return &Config{
		Manager: ManagerConfig{
			Install:    []string{"bun", "install"},
			CacheClean: []string{"bun", "pm", "cache", "rm"},
			Build:      []string{"bun", "run", "build"},
			Test:       []string{"bun", "test"},
			TestE2E:    []string{"bun", "run", "test:e2e"},
		},
		Ports: []int{3000, 3001, 8080, 8899, 8900},
		Env: EnvConfig{
			File: ".env.test",
			Defaults: map[string]string{
				"NODE_ENV":       "test",
				"SOLANA_NETWORK": "devnet",
			},
		},
		Recovery: RecoveryConfig{
			MaxAttempts:    3,
			StrategyPause:  "1s",
			TestTimeout:    "10m",
			MaxOutputBytes: 2 << 20,
		},
		Diagnose: DiagnoseConfig{
			ReportDir: ".",
			TailLines: 15,
		},
		Packages: []PackageConfig{
			{Name: "core", Path: "packages/core", TestGlob: "tests/*.test.ts", Timeout: "5m", BuildDirs: []string{"dist"}},
			{Name: "sdk", Path: "packages/sdk", TestGlob: "tests/*.test.ts", Timeout: "3m", BuildDirs: []string{"dist"}},
			{Name: "cli", Path: "packages/cli", TestGlob: "tests/*.test.ts", Timeout: "3m", BuildDirs: []string{"dist"}},
			{Name: "mcp-server", Path: "packages/mcp-server", TestGlob: "tests/*.test.ts", Timeout: "4m", BuildDirs: []string{"dist"}},
			{Name: "api-server", Path: "packages/api-server", TestGlob: "tests/*.test.ts", Timeout: "4m", BuildDirs: []string{"dist"}, DataDirs: []string{".db"}},
			{Name: "frontend", Path: "packages/frontend", TestGlob: "tests/*.test.ts", Timeout: "5m", BuildDirs: []string{".next", "dist"}},
		},
	}
}

// Load reads path and merges it over Default(). A missing file is not an
// error: the defaults are returned unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Recovery.MaxAttempts <= 0 {
		return fmt.Errorf("recovery.max_attempts must be positive")
	}
	if _, err := c.Recovery.TestTimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.Recovery.StrategyPauseDuration(); err != nil {
		return err
	}
	for _, p := range c.Packages {
		if p.Name == "" || p.Path == "" {
			return fmt.Errorf("every package needs a name and a path")
		}
		if _, err := p.TimeoutDuration(); err != nil {
			return fmt.Errorf("package %s: %w", p.Name, err)
		}
	}
	return nil
}

// TestTimeoutDuration parses Recovery.TestTimeout, defaulting to 10m.
func (r RecoveryConfig) TestTimeoutDuration() (time.Duration, error) {
	return parseDuration(r.TestTimeout, 10*time.Minute)
}

// StrategyPauseDuration parses Recovery.StrategyPause, defaulting to 1s.
func (r RecoveryConfig) StrategyPauseDuration() (time.Duration, error) {
	return parseDuration(r.StrategyPause, time.Second)
}

// TimeoutDuration parses the package timeout, defaulting to 5m.
func (p PackageConfig) TimeoutDuration() (time.Duration, error) {
	return parseDuration(p.Timeout, 5*time.Minute)
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("bad duration %q: %w", s, err)
	}
	return d, nil
}

// PackageByName finds a matrix entry by name or path. Returns nil when the
// scope does not match any configured package.
func (c *Config) PackageByName(nameOrPath string) *PackageConfig {
	for i := range c.Packages {
		if c.Packages[i].Name == nameOrPath || c.Packages[i].Path == nameOrPath {
			return &c.Packages[i]
		}
	}
	return nil
}
