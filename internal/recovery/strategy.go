// Package recovery implements the automated test-failure recovery engine:
// the strategy catalog, the per-strategy executor, and the orchestration
// loop that runs tests, classifies failures, and applies bounded rounds of
// remediation.
package recovery

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"remedy/internal/classify"
	"remedy/internal/config"
	"remedy/internal/ports"
	"remedy/internal/proc"
	"remedy/internal/ux"
)

// Strategy is one named remediation action. Strategies are registered in a
// static catalog and invoked through this contract; nothing is located by
// file path at runtime.
type Strategy interface {
	// Name is the stable display name recorded in attempt summaries.
	Name() string

	// Description is a one-line operator-facing explanation.
	Description() string

	// Threshold is the minimum failure severity (1..5) at which this
	// strategy applies.
	Threshold() classify.Severity

	// Execute performs the remediation. An error marks the strategy as
	// failed in the attempt record; it never aborts the attempt.
	Execute(ctx context.Context, rc *Context) error
}

// Context carries everything a strategy may touch. Strategies themselves are
// stateless; each operates only on its own package directories or the port
// list.
type Context struct {
	Config    *config.Config
	Runner    proc.Runner
	Reclaimer *ports.Reclaimer
	Console   *ux.Console
	Logger    *zap.Logger

	// Scope restricts package-level strategies to a single package.
	// Nil means every configured package.
	Scope *config.PackageConfig
}

// Root returns the workspace root directory.
func (rc *Context) Root() string {
	if rc.Config.WorkspaceRoot != "" {
		return rc.Config.WorkspaceRoot
	}
	return "."
}

// scopedPackages returns the packages a package-level strategy operates on.
func (rc *Context) scopedPackages() []config.PackageConfig {
	if rc.Scope != nil {
		return []config.PackageConfig{*rc.Scope}
	}
	return rc.Config.Packages
}

// packageDir resolves a package path against the workspace root.
func (rc *Context) packageDir(p config.PackageConfig) string {
	return filepath.Join(rc.Root(), p.Path)
}

// runStep runs one external command and converts a non-zero exit, kill, or
// spawn failure into an error carrying the command line.
func (rc *Context) runStep(ctx context.Context, argv []string, dir string, timeout time.Duration) error {
	if len(argv) == 0 {
		return fmt.Errorf("no command configured")
	}
	res, err := rc.Runner.Run(ctx, proc.Command{
		Binary:  argv[0],
		Args:    argv[1:],
		Dir:     dir,
		Timeout: timeout,
	})
	if err != nil {
		return err
	}
	if res.Failed() {
		if res.Err != "" {
			return fmt.Errorf("%s: %s", argv[0], res.Err)
		}
		if res.Killed {
			return fmt.Errorf("%s: killed (%s)", argv[0], res.KillReason)
		}
		return fmt.Errorf("%s exited with code %d", argv[0], res.ExitCode)
	}
	return nil
}

// Applicable selects every catalog strategy whose threshold does not exceed
// the failure's maximum severity, preserving catalog order. Catalog order,
// not severity order of the failure, determines execution: cheap
// remediations always run before expensive ones.
func Applicable(catalog []Strategy, maxSeverity classify.Severity) []Strategy {
	var out []Strategy
	for _, s := range catalog {
		if s.Threshold() <= maxSeverity {
			out = append(out, s)
		}
	}
	return out
}

// FindStrategy returns the catalog strategy with the given name, or nil.
func FindStrategy(catalog []Strategy, name string) Strategy {
	for _, s := range catalog {
		if s.Name() == name {
			return s
		}
	}
	return nil
}
