// Package diagnose runs the per-package test matrix and produces a
// machine-readable report. Unlike the recovery loop it never remediates:
// every configured package is tested exactly once and the results are
// aggregated into pass/fail/skip counts.
package diagnose

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"remedy/internal/config"
	"remedy/internal/proc"
	"remedy/internal/ux"
)

// Status is the outcome of one package's test run.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// PackageOutcome records one matrix cell.
type PackageOutcome struct {
	Package  string        `json:"package"`
	Path     string        `json:"path"`
	Status   Status        `json:"status"`
	Duration time.Duration `json:"duration_ns"`
	ExitCode int           `json:"exit_code"`

	// Reason explains a skip (missing directory, no test files).
	Reason string `json:"reason,omitempty"`

	// Output is the combined test output, kept for failed packages only.
	Output string `json:"-"`
}

// Report aggregates the matrix.
type Report struct {
	RunID     string           `json:"run_id"`
	StartedAt time.Time        `json:"started_at"`
	Duration  time.Duration    `json:"duration_ns"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Skipped   int              `json:"skipped"`
	Total     int              `json:"total"`
	Packages  []PackageOutcome `json:"packages"`

	// SuccessRate is passed/total as a rounded percentage. Skipped packages
	// count against it: a package that cannot run is not a success.
	SuccessRate int `json:"success_rate"`
}

// Healthy reports whether the matrix had no failures.
func (r *Report) Healthy() bool { return r.Failed == 0 }

// Runner executes the diagnostics matrix.
type Runner struct {
	cfg     *config.Config
	runner  proc.Runner
	console *ux.Console
	logger  *zap.Logger
}

// NewRunner wires a matrix runner.
func NewRunner(cfg *config.Config, runner proc.Runner, console *ux.Console, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, runner: runner, console: console, logger: logger}
}

func (d *Runner) root() string {
	if d.cfg.WorkspaceRoot != "" {
		return d.cfg.WorkspaceRoot
	}
	return "."
}

// Run tests every configured package once and returns the aggregated report.
// Individual package failures are recorded, never returned as errors; the
// only error cases are context cancellation and report writing.
func (d *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	d.console.Header("Diagnostics matrix")

	for _, pkg := range d.cfg.Packages {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		outcome := d.testPackage(ctx, pkg)
		report.Packages = append(report.Packages, outcome)

		switch outcome.Status {
		case StatusPassed:
			report.Passed++
			d.console.Success("%s (%s)", pkg.Name, outcome.Duration.Round(time.Millisecond))
		case StatusSkipped:
			report.Skipped++
			d.console.Warn("%s skipped: %s", pkg.Name, outcome.Reason)
		case StatusFailed:
			report.Failed++
			d.console.Fail("%s (exit %d)", pkg.Name, outcome.ExitCode)
			d.console.Tail(outcome.Output, d.cfg.Diagnose.TailLines)
		}
	}

	report.Total = len(report.Packages)
	report.Duration = time.Since(report.StartedAt)
	report.SuccessRate = successRate(report.Passed, report.Total)

	d.printSummary(report)
	return report, nil
}

// testPackage runs one matrix cell. Missing directories and empty test globs
// are skips, not failures: the matrix describes the full monorepo even when a
// checkout is partial.
func (d *Runner) testPackage(ctx context.Context, pkg config.PackageConfig) PackageOutcome {
	outcome := PackageOutcome{Package: pkg.Name, Path: pkg.Path}
	dir := filepath.Join(d.root(), pkg.Path)

	if _, err := os.Stat(dir); err != nil {
		outcome.Status = StatusSkipped
		outcome.Reason = "package directory missing"
		return outcome
	}

	if pkg.TestGlob != "" {
		matches, err := filepath.Glob(filepath.Join(dir, pkg.TestGlob))
		if err != nil || len(matches) == 0 {
			outcome.Status = StatusSkipped
			outcome.Reason = "no test files match " + pkg.TestGlob
			return outcome
		}
	}

	argv := d.cfg.Manager.Test
	if len(argv) == 0 {
		outcome.Status = StatusSkipped
		outcome.Reason = "no test command configured"
		return outcome
	}

	timeout, err := pkg.TimeoutDuration()
	if err != nil {
		timeout = 0
	}

	d.console.Step("testing %s (%s)", pkg.Name, strings.Join(argv, " "))
	start := time.Now()
	res, err := d.runner.Run(ctx, proc.Command{
		Binary:         argv[0],
		Args:           argv[1:],
		Dir:            dir,
		Timeout:        timeout,
		MaxOutputBytes: d.cfg.Recovery.MaxOutputBytes,
	})
	outcome.Duration = time.Since(start)

	if err != nil {
		outcome.Status = StatusFailed
		outcome.ExitCode = -1
		outcome.Output = err.Error()
		return outcome
	}

	outcome.ExitCode = res.ExitCode
	if res.Failed() {
		outcome.Status = StatusFailed
		outcome.Output = res.Output
		d.logger.Warn("package tests failed",
			zap.String("package", pkg.Name),
			zap.Int("exit_code", res.ExitCode),
			zap.Bool("killed", res.Killed))
		return outcome
	}

	outcome.Status = StatusPassed
	return outcome
}

// successRate rounds passed/total to a whole percentage. Zero packages is
// vacuously 100%.
func successRate(passed, total int) int {
	if total == 0 {
		return 100
	}
	return int(float64(passed)/float64(total)*100 + 0.5)
}

func (d *Runner) printSummary(r *Report) {
	d.console.Header("Summary")
	d.console.Info("%d passed, %d failed, %d skipped of %d packages",
		r.Passed, r.Failed, r.Skipped, r.Total)
	if r.Healthy() {
		d.console.Success("success rate: %d%%", r.SuccessRate)
	} else {
		d.console.Fail("success rate: %d%%", r.SuccessRate)
	}
}
