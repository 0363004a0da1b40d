package recovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"remedy/internal/classify"
)

// DependencyFix reinstalls a package's dependencies from scratch: removes
// the install artifacts (absence is not an error) and re-runs the install
// command. A missing package directory is a skip, not a failure.
type DependencyFix struct{}

func (DependencyFix) Name() string        { return NameDependencyFix }
func (DependencyFix) Description() string { return "remove install artifacts and reinstall dependencies" }

func (DependencyFix) Threshold() classify.Severity { return thresholdDependencyFix }

func (DependencyFix) Execute(ctx context.Context, rc *Context) error {
	var lastErr error
	for _, pkg := range rc.scopedPackages() {
		dir := rc.packageDir(pkg)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			rc.Logger.Debug("package directory missing, skipping",
				zap.String("package", pkg.Name), zap.String("dir", dir))
			continue
		}

		if err := os.RemoveAll(filepath.Join(dir, "node_modules")); err != nil {
			lastErr = fmt.Errorf("%s: remove node_modules: %w", pkg.Name, err)
			rc.Console.Warn("could not remove install artifacts for %s: %v", pkg.Name, err)
			continue
		}

		rc.Console.Step("reinstalling dependencies for %s", pkg.Name)
		if err := rc.runStep(ctx, rc.Config.Manager.Install, dir, 0); err != nil {
			lastErr = fmt.Errorf("%s: %w", pkg.Name, err)
			rc.Console.Warn("install failed for %s: %v", pkg.Name, err)
			continue
		}
		rc.Logger.Info("dependencies reinstalled", zap.String("package", pkg.Name))
	}
	return lastErr
}
