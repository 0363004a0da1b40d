package recovery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"remedy/internal/classify"
	"remedy/internal/config"
)

// BuildRefresh removes stale build output and re-runs each package's build
// script. Packages without a build script (or without a package manifest at
// all) are skipped, not failed.
type BuildRefresh struct{}

func (BuildRefresh) Name() string        { return NameBuildRefresh }
func (BuildRefresh) Description() string { return "remove stale build output and rebuild packages" }

func (BuildRefresh) Threshold() classify.Severity { return thresholdBuildRefresh }

func (BuildRefresh) Execute(ctx context.Context, rc *Context) error {
	var lastErr error
	for _, pkg := range rc.scopedPackages() {
		dir := rc.packageDir(pkg)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			rc.Logger.Debug("package directory missing, skipping",
				zap.String("package", pkg.Name), zap.String("dir", dir))
			continue
		}
		if !hasBuildScript(dir) {
			rc.Logger.Debug("no build script, skipping", zap.String("package", pkg.Name))
			continue
		}

		if err := removeBuildDirs(dir, pkg); err != nil {
			lastErr = fmt.Errorf("%s: %w", pkg.Name, err)
			rc.Console.Warn("could not remove build output for %s: %v", pkg.Name, err)
			continue
		}

		rc.Console.Step("rebuilding %s", pkg.Name)
		if err := rc.runStep(ctx, rc.Config.Manager.Build, dir, 0); err != nil {
			lastErr = fmt.Errorf("%s: %w", pkg.Name, err)
			rc.Console.Warn("build failed for %s: %v", pkg.Name, err)
			continue
		}
		rc.Logger.Info("package rebuilt", zap.String("package", pkg.Name))
	}
	return lastErr
}

func removeBuildDirs(dir string, pkg config.PackageConfig) error {
	outDirs := pkg.BuildDirs
	if len(outDirs) == 0 {
		outDirs = []string{"dist"}
	}
	for _, out := range outDirs {
		if err := os.RemoveAll(filepath.Join(dir, out)); err != nil {
			return fmt.Errorf("remove %s: %w", out, err)
		}
	}
	return nil
}

// hasBuildScript reports whether the package manifest declares a build
// script. An unreadable or malformed manifest counts as no script.
func hasBuildScript(dir string) bool {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return false
	}
	var manifest struct {
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return false
	}
	_, ok := manifest.Scripts["build"]
	return ok
}
