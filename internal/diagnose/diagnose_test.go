package diagnose

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"remedy/internal/config"
	"remedy/internal/proc"
	"remedy/internal/ux"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// dirRunner fails any command whose working directory contains a configured
// fragment and passes everything else.
type dirRunner struct {
	failDirs []string
	commands []proc.Command
}

func (r *dirRunner) Run(_ context.Context, cmd proc.Command) (*proc.Result, error) {
	r.commands = append(r.commands, cmd)
	for _, frag := range r.failDirs {
		if strings.Contains(cmd.Dir, frag) {
			return &proc.Result{ExitCode: 1, Output: "FAIL tests/agent.test.ts\nexpected 200, got 500"}, nil
		}
	}
	return &proc.Result{ExitCode: 0, Output: "12 pass"}, nil
}

// seedWorkspace creates package dirs for every configured package except the
// named ones, and a matching test file in each created dir.
func seedWorkspace(t *testing.T, cfg *config.Config, omit ...string) string {
	t.Helper()
	root := t.TempDir()
	cfg.WorkspaceRoot = root

	omitted := map[string]bool{}
	for _, name := range omit {
		omitted[name] = true
	}
	for _, pkg := range cfg.Packages {
		if omitted[pkg.Name] {
			continue
		}
		dir := filepath.Join(root, pkg.Path, "tests")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "smoke.test.ts"), []byte("test"), 0o644))
	}
	return root
}

func newTestRunner(cfg *config.Config, runner proc.Runner) *Runner {
	return NewRunner(cfg, runner, ux.NewConsole(io.Discard), zap.NewNop())
}

func TestRun_MatrixCounts(t *testing.T) {
	cfg := config.Default()
	require.Len(t, cfg.Packages, 6)

	// frontend has no directory at all, api-server's tests fail.
	seedWorkspace(t, cfg, "frontend")
	runner := &dirRunner{failDirs: []string{"api-server"}}

	report, err := newTestRunner(cfg, runner).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, report.Passed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 6, report.Total)
	assert.Equal(t, 67, report.SuccessRate)
	assert.False(t, report.Healthy())
	assert.NotEmpty(t, report.RunID)

	// The skipped package never spawned a process.
	assert.Len(t, runner.commands, 5)
}

func TestRun_AllHealthy(t *testing.T) {
	cfg := config.Default()
	seedWorkspace(t, cfg)

	report, err := newTestRunner(cfg, &dirRunner{}).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Healthy())
	assert.Equal(t, 100, report.SuccessRate)
	assert.Equal(t, 6, report.Passed)
}

func TestRun_EmptyGlobIsSkipNotFailure(t *testing.T) {
	cfg := config.Default()
	root := seedWorkspace(t, cfg)

	// core exists but holds no test files.
	coreTests := filepath.Join(root, "packages/core/tests")
	require.NoError(t, os.RemoveAll(coreTests))
	require.NoError(t, os.MkdirAll(coreTests, 0o755))

	report, err := newTestRunner(cfg, &dirRunner{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped)
	assert.True(t, report.Healthy(), "skips never make the matrix unhealthy")

	for _, o := range report.Packages {
		if o.Package == "core" {
			assert.Equal(t, StatusSkipped, o.Status)
			assert.Contains(t, o.Reason, "no test files")
		}
	}
}

func TestRun_FailedPackageKeepsOutput(t *testing.T) {
	cfg := config.Default()
	seedWorkspace(t, cfg)
	runner := &dirRunner{failDirs: []string{"sdk"}}

	report, err := newTestRunner(cfg, runner).Run(context.Background())
	require.NoError(t, err)

	for _, o := range report.Packages {
		switch o.Package {
		case "sdk":
			assert.Equal(t, StatusFailed, o.Status)
			assert.Contains(t, o.Output, "expected 200")
		default:
			assert.Empty(t, o.Output, "%s: output retained only for failures", o.Package)
		}
	}
}

func TestRun_CancelledContext(t *testing.T) {
	cfg := config.Default()
	seedWorkspace(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestRunner(cfg, &dirRunner{}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSuccessRate(t *testing.T) {
	assert.Equal(t, 100, successRate(0, 0))
	assert.Equal(t, 100, successRate(6, 6))
	assert.Equal(t, 67, successRate(4, 6))
	assert.Equal(t, 33, successRate(2, 6))
	assert.Equal(t, 0, successRate(0, 6))
	assert.Equal(t, 50, successRate(1, 2))
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	report := &Report{
		RunID:       "run-1",
		StartedAt:   time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		Passed:      4,
		Failed:      1,
		Skipped:     1,
		Total:       6,
		SuccessRate: 67,
	}

	path, err := WriteReport(dir, report)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "remedy-report-20260314-092653.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "run-1", got["run_id"])
	assert.Equal(t, float64(67), got["success_rate"])

	latest, err := LatestReport(dir)
	require.NoError(t, err)
	assert.Equal(t, path, latest)
}

func TestWriteReport_DisabledByEmptyDir(t *testing.T) {
	path, err := WriteReport("", &Report{})
	require.NoError(t, err)
	assert.Empty(t, path)
}
