package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"remedy/internal/classify"
	"remedy/internal/recovery"
)

var maxAttempts int

// runCmd drives the full recovery loop.
var runCmd = &cobra.Command{
	Use:   "run [package]",
	Short: "Run tests with automatic failure recovery",
	Long: `Runs the E2E suite (or a single package's tests) and, on failure,
classifies the output and applies every remediation strategy whose
threshold the failure severity reaches, then re-runs the tests.

The loop stops as soon as the tests pass, or after the attempt budget
is spent (exit code 1).

Examples:
  remedy run              # whole suite via the e2e command
  remedy run sdk          # only packages/sdk
  remedy run --max-attempts 5`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecovery,
}

func init() {
	runCmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "Override the configured attempt budget")
}

func runRecovery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if maxAttempts > 0 {
		cfg.Recovery.MaxAttempts = maxAttempts
	}

	scope := ""
	if len(args) == 1 {
		scope = args[0]
	}
	rc, err := newContext(cfg, scope)
	if err != nil {
		return err
	}

	orch, err := recovery.NewOrchestrator(rc, classify.NewClassifier(logger), recovery.Catalog())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	summary, err := orch.Run(ctx)
	logger.Info("recovery finished",
		zap.String("run_id", summary.RunID),
		zap.Bool("passed", summary.Passed),
		zap.Int("test_runs", summary.TestRuns),
		zap.Int("attempts", len(summary.Attempts)))

	return err
}
