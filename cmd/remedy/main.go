package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"remedy/internal/config"
	"remedy/internal/ports"
	"remedy/internal/proc"
	"remedy/internal/recovery"
	"remedy/internal/ux"
)

var (
	// Global flags
	verbose    bool
	configPath string
	workspace  string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "remedy",
	Short: "remedy - E2E test failure diagnosis and recovery",
	Long: `remedy keeps the platform monorepo's test suites green.

It runs the E2E suite, classifies failures from the captured output
(port conflicts, missing dependencies, stale builds, ...), applies the
matching remediation strategies in cheapest-first order, and re-runs the
suite, up to a bounded number of attempts.

Commands:
  run        recovery loop: test, diagnose, remediate, retry
  diagnose   test every package once and report a pass/fail matrix
  fix        apply individual remediations directly`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: <workspace>/remedy.yaml)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Monorepo root (default: current directory)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(fixCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the config file against the workspace flag and applies
// the workspace override.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		root := workspace
		if root == "" {
			root = "."
		}
		path = filepath.Join(root, config.DefaultFileName)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if workspace != "" {
		cfg.WorkspaceRoot = workspace
	}
	return cfg, nil
}

// newContext assembles the strategy context with the live process runner and
// platform port backend.
func newContext(cfg *config.Config, scope string) (*recovery.Context, error) {
	rc := &recovery.Context{
		Config:    cfg,
		Runner:    proc.NewHostRunner(logger),
		Reclaimer: ports.NewReclaimer(logger),
		Console:   ux.NewConsole(os.Stdout),
		Logger:    logger,
	}
	if scope != "" {
		rc.Scope = cfg.PackageByName(scope)
		if rc.Scope == nil {
			return nil, fmt.Errorf("unknown package %q (configured: %s)", scope, packageNames(cfg))
		}
	}
	return rc, nil
}

func packageNames(cfg *config.Config) string {
	names := ""
	for i, p := range cfg.Packages {
		if i > 0 {
			names += ", "
		}
		names += p.Name
	}
	return names
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
