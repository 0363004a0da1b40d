package recovery

import (
	"context"

	"remedy/internal/classify"
)

// QuickPortFix frees the configured service ports. It is the cheapest
// remediation and applies to every failure, which occasionally clears masked
// secondary problems before the expensive strategies run.
type QuickPortFix struct{}

func (QuickPortFix) Name() string        { return NameQuickPortFix }
func (QuickPortFix) Description() string { return "terminate processes holding the test service ports" }

func (QuickPortFix) Threshold() classify.Severity { return thresholdQuickPortFix }

func (QuickPortFix) Execute(ctx context.Context, rc *Context) error {
	return rc.Reclaimer.Reclaim(ctx, rc.Config.Ports)
}
