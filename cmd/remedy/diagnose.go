package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"remedy/internal/diagnose"
	"remedy/internal/proc"
	"remedy/internal/ux"
)

var noReport bool

// diagnoseCmd runs the package matrix without remediation.
var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Test every package once and report a pass/fail matrix",
	Long: `Runs each configured package's test command exactly once, with no
remediation, and prints a pass/fail/skip breakdown with the tail of
every failed package's output.

Packages whose directory or test files are missing are skipped, not
failed. A JSON report is written next to the workspace unless
--no-report is given. Exit code is 1 when any package fails.`,
	Args: cobra.NoArgs,
	RunE: runDiagnose,
}

func init() {
	diagnoseCmd.Flags().BoolVar(&noReport, "no-report", false, "Skip writing the JSON report file")
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	console := ux.NewConsole(cmd.OutOrStdout())
	runner := diagnose.NewRunner(cfg, proc.NewHostRunner(logger), console, logger)

	ctx, cancel := signalContext()
	defer cancel()

	report, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	if !noReport {
		path, err := diagnose.WriteReport(cfg.Diagnose.ReportDir, report)
		if err != nil {
			logger.Warn("could not write report", zap.Error(err))
		} else if path != "" {
			console.Info("report written to %s", path)
		}
	}

	if !report.Healthy() {
		return fmt.Errorf("%d of %d packages failed", report.Failed, report.Total)
	}
	return nil
}
