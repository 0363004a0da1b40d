package recovery

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StrategyResult records one strategy execution inside an attempt.
type StrategyResult struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Executor runs strategies one at a time. Execution errors are captured and
// reported, never propagated: a failing strategy does not abort the rest of
// the attempt. A fixed pause separates successive strategies so a freshly
// killed process has time to release its resources.
type Executor struct {
	pause  time.Duration
	logger *zap.Logger
}

// NewExecutor creates an executor with the given inter-strategy pause.
func NewExecutor(pause time.Duration, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{pause: pause, logger: logger}
}

// Run executes a single strategy and reports its outcome.
func (e *Executor) Run(ctx context.Context, s Strategy, rc *Context) StrategyResult {
	rc.Console.Step("%s: %s", s.Name(), s.Description())
	start := time.Now()

	err := s.Execute(ctx, rc)
	if err != nil {
		e.logger.Warn("strategy failed",
			zap.String("strategy", s.Name()),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		rc.Console.Warn("%s failed: %v", s.Name(), err)
		return StrategyResult{Name: s.Name(), Success: false, Error: err.Error()}
	}

	e.logger.Info("strategy succeeded",
		zap.String("strategy", s.Name()),
		zap.Duration("duration", time.Since(start)))
	rc.Console.Success("%s done", s.Name())
	return StrategyResult{Name: s.Name(), Success: true}
}

// RunAll executes strategies in the given order with the configured pause
// between them, honoring context cancellation during the pauses.
func (e *Executor) RunAll(ctx context.Context, strategies []Strategy, rc *Context) []StrategyResult {
	results := make([]StrategyResult, 0, len(strategies))
	for i, s := range strategies {
		results = append(results, e.Run(ctx, s, rc))
		if i == len(strategies)-1 || e.pause <= 0 {
			continue
		}
		select {
		case <-time.After(e.pause):
		case <-ctx.Done():
			return results
		}
	}
	return results
}
