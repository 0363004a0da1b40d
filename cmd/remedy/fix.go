package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"remedy/internal/classify"
	"remedy/internal/config"
	"remedy/internal/proc"
	"remedy/internal/recovery"
)

var (
	diagnoseOnly  bool
	cleanCache    bool
	reinstallDeps bool
	rebuild       bool
	resetDB       bool
	verifyAfter   bool
)

// fixCmd applies remediations directly, outside the recovery loop.
var fixCmd = &cobra.Command{
	Use:   "fix [package]",
	Short: "Apply remediations directly, without the retry loop",
	Long: `Applies the port and environment fixes, plus any remediation selected
by flag, exactly once. Use this when you already know what is wrong,
or --diagnose-only to see what the recovery loop would do without
changing anything.

Examples:
  remedy fix                       # free ports, normalize environment
  remedy fix --clean-cache --rebuild
  remedy fix sdk --reinstall-deps --verify
  remedy fix --diagnose-only`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFix,
}

func init() {
	fixCmd.Flags().BoolVar(&diagnoseOnly, "diagnose-only", false, "Classify the current failure without fixing anything")
	fixCmd.Flags().BoolVar(&cleanCache, "clean-cache", false, "Clear the package manager cache")
	fixCmd.Flags().BoolVar(&reinstallDeps, "reinstall-deps", false, "Remove node_modules and reinstall")
	fixCmd.Flags().BoolVar(&rebuild, "rebuild", false, "Remove build output and rebuild")
	fixCmd.Flags().BoolVar(&resetDB, "reset-db", false, "Remove local test database directories")
	fixCmd.Flags().BoolVar(&verifyAfter, "verify", false, "Re-run the tests once after fixing")
}

func runFix(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	scope := ""
	if len(args) == 1 {
		scope = args[0]
	}
	rc, err := newContext(cfg, scope)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if diagnoseOnly {
		return diagnoseCurrentFailure(ctx, rc)
	}

	catalog := recovery.Catalog()
	selected := []recovery.Strategy{
		recovery.FindStrategy(catalog, recovery.NameQuickPortFix),
		recovery.FindStrategy(catalog, recovery.NameEnvironmentReset),
	}
	if cleanCache {
		selected = append(selected, recovery.FindStrategy(catalog, recovery.NameCacheClean))
	}
	if reinstallDeps {
		selected = append(selected, recovery.FindStrategy(catalog, recovery.NameDependencyFix))
	}
	if rebuild {
		selected = append(selected, recovery.FindStrategy(catalog, recovery.NameBuildRefresh))
	}

	pause, err := cfg.Recovery.StrategyPauseDuration()
	if err != nil {
		return err
	}

	rc.Console.Header("Applying fixes")
	results := recovery.NewExecutor(pause, logger).RunAll(ctx, selected, rc)

	if resetDB {
		if err := resetDataDirs(rc); err != nil {
			rc.Console.Warn("database reset failed: %v", err)
		}
	}

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	if failed > 0 {
		rc.Console.Warn("%d of %d fixes failed", failed, len(results))
	}

	if verifyAfter {
		return verifyFixes(ctx, rc)
	}
	if failed > 0 {
		return fmt.Errorf("%d fix(es) failed", failed)
	}
	return nil
}

// diagnoseCurrentFailure runs the tests once and reports what the recovery
// loop would do, without executing any strategy.
func diagnoseCurrentFailure(ctx context.Context, rc *recovery.Context) error {
	res, err := runScopedTests(ctx, rc)
	if err != nil {
		return err
	}
	if res.ExitCode == 0 && !res.Killed && res.Err == "" {
		rc.Console.Success("tests pass, nothing to fix")
		return nil
	}

	cls := classify.NewClassifier(logger).Classify(res.Output)
	rc.Console.Header("Diagnosis")
	for _, m := range cls.Matches {
		rc.Console.Info("%s (severity %d)", m.Reason, m.Severity)
	}
	rc.Console.Info("strategies that would run:")
	for _, s := range recovery.Applicable(recovery.Catalog(), cls.MaxSeverity()) {
		rc.Console.Detail("- %s: %s", s.Name(), s.Description())
	}
	return nil
}

// verifyFixes runs the scoped test command once and reports the result.
func verifyFixes(ctx context.Context, rc *recovery.Context) error {
	rc.Console.Header("Verification")
	res, err := runScopedTests(ctx, rc)
	if err != nil {
		return err
	}
	if res.ExitCode == 0 && !res.Killed && res.Err == "" {
		rc.Console.Success("tests pass")
		return nil
	}
	rc.Console.Fail("tests still failing (exit %d)", res.ExitCode)
	rc.Console.Tail(res.Output, rc.Config.Diagnose.TailLines)
	return fmt.Errorf("verification failed")
}

func runScopedTests(ctx context.Context, rc *recovery.Context) (*proc.Result, error) {
	argv := rc.Config.Manager.TestE2E
	dir := rc.Root()
	timeout, err := rc.Config.Recovery.TestTimeoutDuration()
	if err != nil {
		return nil, err
	}
	if rc.Scope != nil {
		argv = rc.Config.Manager.Test
		dir = filepath.Join(rc.Root(), rc.Scope.Path)
		if d, derr := rc.Scope.TimeoutDuration(); derr == nil {
			timeout = d
		}
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("no test command configured")
	}
	rc.Console.Step("running %s", strings.Join(argv, " "))
	return rc.Runner.Run(ctx, proc.Command{
		Binary:         argv[0],
		Args:           argv[1:],
		Dir:            dir,
		Timeout:        timeout,
		MaxOutputBytes: rc.Config.Recovery.MaxOutputBytes,
	})
}

// resetDataDirs removes every configured data directory in scope. Missing
// directories are fine; the goal is a clean slate.
func resetDataDirs(rc *recovery.Context) error {
	packages := rc.Config.Packages
	if rc.Scope != nil {
		packages = []config.PackageConfig{*rc.Scope}
	}
	var lastErr error
	removed := 0
	start := time.Now()
	for _, pkg := range packages {
		for _, dd := range pkg.DataDirs {
			dir := filepath.Join(rc.Root(), pkg.Path, dd)
			if _, err := os.Stat(dir); err != nil {
				continue
			}
			if err := os.RemoveAll(dir); err != nil {
				rc.Console.Warn("%s: %v", dir, err)
				lastErr = err
				continue
			}
			removed++
			rc.Console.Info("removed %s", dir)
		}
	}
	logger.Info("database reset",
		zap.Int("removed", removed),
		zap.Duration("duration", time.Since(start)))
	return lastErr
}
