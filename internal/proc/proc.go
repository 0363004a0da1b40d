// Package proc is the process-execution substrate for remedy. Every external
// collaborator (test suites, package manager, build tooling, OS process
// utilities) is invoked through a Runner, which captures combined output with
// a bounded buffer and enforces a per-command timeout.
package proc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxOutputBytes caps captured combined output per command. Output
// beyond the cap is discarded and the result is marked truncated.
const DefaultMaxOutputBytes int64 = 2 << 20 // 2 MiB

// DefaultTimeout applies when a Command does not specify its own.
const DefaultTimeout = 5 * time.Minute

// Command specifies a single subprocess invocation.
type Command struct {
	// Binary is the executable to run (e.g. "bun", "lsof").
	Binary string

	// Args are the command-line arguments.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env holds extra KEY=VALUE pairs appended to the inherited environment.
	Env []string

	// Timeout bounds wall-clock execution time. Zero means DefaultTimeout.
	Timeout time.Duration

	// MaxOutputBytes overrides the runner's output cap. Zero means default.
	MaxOutputBytes int64
}

// String renders the command for display and logging.
func (c Command) String() string {
	s := c.Binary
	for _, a := range c.Args {
		s += " " + a
	}
	return s
}

// Result is the outcome of a subprocess invocation. A command that ran and
// exited non-zero is not an infrastructure error: Err stays empty and
// ExitCode carries the status.
type Result struct {
	// ExitCode is the process exit status, -1 when unavailable.
	ExitCode int

	// Output is the combined stdout+stderr, possibly truncated.
	Output string

	// Duration is wall-clock execution time.
	Duration time.Duration

	// Killed reports that the process was forcibly terminated (timeout or
	// cancellation).
	Killed bool

	// KillReason explains why the process was killed.
	KillReason string

	// Truncated reports that Output hit the capture cap.
	Truncated bool

	// TruncatedBytes counts discarded output bytes.
	TruncatedBytes int64

	// Err holds an infrastructure-level failure (binary not found, spawn
	// failure). Empty for commands that merely exited non-zero.
	Err string
}

// Failed reports whether the invocation should be treated as a failure:
// non-zero exit, a kill, or an infrastructure error.
func (r *Result) Failed() bool {
	return r.ExitCode != 0 || r.Killed || r.Err != ""
}

// Runner executes commands. The recovery engine and the diagnostics matrix
// share one Runner so tests can script outcomes.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// HostRunner runs commands directly on the host via os/exec.
type HostRunner struct {
	defaultTimeout time.Duration
	maxOutputBytes int64
	logger         *zap.Logger
}

// NewHostRunner creates a HostRunner with default limits.
func NewHostRunner(logger *zap.Logger) *HostRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HostRunner{
		defaultTimeout: DefaultTimeout,
		maxOutputBytes: DefaultMaxOutputBytes,
		logger:         logger,
	}
}

// Run executes cmd, waiting until it exits or its timeout fires. A timed-out
// process is killed and reported via Killed/KillReason. The returned error is
// reserved for invalid commands; execution failures are folded into Result.
func (r *HostRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, fmt.Errorf("proc: binary is required")
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}
	maxOutput := cmd.MaxOutputBytes
	if maxOutput <= 0 {
		maxOutput = r.maxOutputBytes
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	execCmd := exec.CommandContext(execCtx, cmd.Binary, cmd.Args...)
	execCmd.Dir = cmd.Dir
	execCmd.Env = append(os.Environ(), cmd.Env...)

	// One writer for both streams keeps interleaving order and a single cap.
	var buf bytes.Buffer
	limited := &limitedWriter{w: &buf, max: maxOutput}
	execCmd.Stdout = limited
	execCmd.Stderr = limited

	r.logger.Debug("running command",
		zap.String("command", cmd.String()),
		zap.String("dir", cmd.Dir),
		zap.Duration("timeout", timeout))

	started := time.Now()
	err := execCmd.Run()
	res := &Result{
		ExitCode:       0,
		Output:         buf.String(),
		Duration:       time.Since(started),
		Truncated:      limited.truncated,
		TruncatedBytes: limited.discarded,
	}

	switch {
	case err == nil:
	case execCtx.Err() == context.DeadlineExceeded:
		res.ExitCode = -1
		res.Killed = true
		res.KillReason = fmt.Sprintf("timeout after %s", timeout)
		r.logger.Warn("command killed on timeout",
			zap.String("command", cmd.Binary), zap.Duration("timeout", timeout))
	case execCtx.Err() == context.Canceled:
		res.ExitCode = -1
		res.Killed = true
		res.KillReason = "context canceled"
	default:
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
			res.Err = err.Error()
			r.logger.Error("command failed to start",
				zap.String("command", cmd.Binary), zap.Error(err))
		}
	}

	if res.Truncated {
		r.logger.Warn("command output truncated",
			zap.String("command", cmd.Binary),
			zap.Int64("discarded_bytes", res.TruncatedBytes))
	}

	r.logger.Debug("command finished",
		zap.String("command", cmd.Binary),
		zap.Int("exit_code", res.ExitCode),
		zap.Duration("duration", res.Duration),
		zap.Int("output_bytes", len(res.Output)))

	return res, nil
}

// limitedWriter caps total bytes written, discarding the overflow so a
// pathological test run cannot grow memory without bound.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
	discarded int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)

	if lw.written >= lw.max {
		lw.truncated = true
		lw.discarded += int64(n)
		return n, nil
	}

	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		lw.discarded += int64(n) - remaining
		written, err := lw.w.Write(p[:remaining])
		lw.written += int64(written)
		// Report the full length so os/exec does not surface a short write.
		return n, err
	}

	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}
