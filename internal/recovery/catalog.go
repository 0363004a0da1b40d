package recovery

import "remedy/internal/classify"

// Strategy display names, stable across attempt records and summaries.
const (
	NameQuickPortFix     = "Quick Port Fix"
	NameEnvironmentReset = "Environment Reset"
	NameCacheClean       = "Cache Clean"
	NameDependencyFix    = "Dependency Fix"
	NameBuildRefresh     = "Build Refresh"
	NameFullRecovery     = "Full Recovery"
)

// Catalog returns the fixed, ordered strategy list, ascending by severity
// threshold. The orchestrator executes applicable strategies in this order.
func Catalog() []Strategy {
	return []Strategy{
		QuickPortFix{},
		EnvironmentReset{},
		CacheClean{},
		DependencyFix{},
		BuildRefresh{},
		FullRecovery{},
	}
}

// compile-time interface checks
var (
	_ Strategy = QuickPortFix{}
	_ Strategy = EnvironmentReset{}
	_ Strategy = CacheClean{}
	_ Strategy = DependencyFix{}
	_ Strategy = BuildRefresh{}
	_ Strategy = FullRecovery{}
)

// thresholds, kept together so the catalog ordering is obvious.
const (
	thresholdQuickPortFix     = classify.SeverityTrivial
	thresholdEnvironmentReset = classify.SeverityTrivial
	thresholdCacheClean       = classify.SeverityLow
	thresholdDependencyFix    = classify.SeverityModerate
	thresholdBuildRefresh     = classify.SeverityHigh
	thresholdFullRecovery     = classify.SeverityCritical
)
