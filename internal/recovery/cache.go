package recovery

import (
	"context"

	"remedy/internal/classify"
)

// CacheClean clears the package manager's global cache.
type CacheClean struct{}

func (CacheClean) Name() string        { return NameCacheClean }
func (CacheClean) Description() string { return "clear the package manager global cache" }

func (CacheClean) Threshold() classify.Severity { return thresholdCacheClean }

func (CacheClean) Execute(ctx context.Context, rc *Context) error {
	return rc.runStep(ctx, rc.Config.Manager.CacheClean, rc.Root(), 0)
}
