package recovery

import (
	"context"

	"remedy/internal/classify"
)

// FullRecovery is the most disruptive strategy: it reclaims ports, clears
// the cache, reinstalls dependencies, and rebuilds across the whole
// workspace regardless of scope. Individual step failures are reported but
// do not stop the remaining steps.
type FullRecovery struct{}

func (FullRecovery) Name() string        { return NameFullRecovery }
func (FullRecovery) Description() string { return "reclaim ports, clear cache, reinstall and rebuild everything" }

func (FullRecovery) Threshold() classify.Severity { return thresholdFullRecovery }

func (FullRecovery) Execute(ctx context.Context, rc *Context) error {
	// Operate on every package even when the run is scoped.
	wide := *rc
	wide.Scope = nil

	var lastErr error
	for _, s := range []Strategy{QuickPortFix{}, CacheClean{}, DependencyFix{}, BuildRefresh{}} {
		if err := s.Execute(ctx, &wide); err != nil {
			rc.Console.Warn("%s step failed during full recovery: %v", s.Name(), err)
			lastErr = err
		}
	}
	return lastErr
}
