package recovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"remedy/internal/classify"
)

// EnvironmentReset normalizes the process environment for test runs: it
// loads the workspace dotenv file when present, then fills in the required
// defaults (test mode, target network) for variables that are still unset.
// Variables already set are never overridden.
type EnvironmentReset struct{}

func (EnvironmentReset) Name() string        { return NameEnvironmentReset }
func (EnvironmentReset) Description() string { return "set missing test-mode environment variables" }

func (EnvironmentReset) Threshold() classify.Severity { return thresholdEnvironmentReset }

func (EnvironmentReset) Execute(_ context.Context, rc *Context) error {
	if file := rc.Config.Env.File; file != "" {
		path := filepath.Join(rc.Root(), file)
		if _, err := os.Stat(path); err == nil {
			// godotenv.Load does not override existing variables.
			if err := godotenv.Load(path); err != nil {
				return fmt.Errorf("load %s: %w", file, err)
			}
			rc.Logger.Debug("loaded dotenv file", zap.String("path", path))
		}
	}

	for key, value := range rc.Config.Env.Defaults {
		if os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
		rc.Logger.Info("set missing environment variable",
			zap.String("key", key), zap.String("value", value))
	}
	return nil
}
