package recovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remedy/internal/classify"
)

func catalogNames(strategies []Strategy) []string {
	names := make([]string, 0, len(strategies))
	for _, s := range strategies {
		names = append(names, s.Name())
	}
	return names
}

func TestCatalog_OrderAndThresholds(t *testing.T) {
	catalog := Catalog()
	require.Len(t, catalog, 6)

	assert.Equal(t, []string{
		NameQuickPortFix,
		NameEnvironmentReset,
		NameCacheClean,
		NameDependencyFix,
		NameBuildRefresh,
		NameFullRecovery,
	}, catalogNames(catalog))

	// Ascending severity thresholds.
	prev := classify.Severity(0)
	for _, s := range catalog {
		assert.GreaterOrEqual(t, s.Threshold(), prev, "catalog must be ordered by threshold")
		assert.GreaterOrEqual(t, int(s.Threshold()), 1)
		assert.LessOrEqual(t, int(s.Threshold()), 5)
		prev = s.Threshold()
	}
}

func TestApplicable_SelectionBySeverity(t *testing.T) {
	catalog := Catalog()

	tests := []struct {
		severity classify.Severity
		want     []string
	}{
		{1, []string{NameQuickPortFix, NameEnvironmentReset}},
		{2, []string{NameQuickPortFix, NameEnvironmentReset, NameCacheClean}},
		{3, []string{NameQuickPortFix, NameEnvironmentReset, NameCacheClean, NameDependencyFix}},
		{4, []string{NameQuickPortFix, NameEnvironmentReset, NameCacheClean, NameDependencyFix, NameBuildRefresh}},
		{5, catalogNames(catalog)},
	}

	for _, tt := range tests {
		got := Applicable(catalog, tt.severity)
		assert.Equal(t, tt.want, catalogNames(got), "severity %d", tt.severity)
	}
}

// Selection is monotonic: raising the severity only ever adds strategies.
func TestApplicable_MonotonicInSeverity(t *testing.T) {
	catalog := Catalog()

	for s1 := classify.Severity(1); s1 <= 5; s1++ {
		for s2 := s1; s2 <= 5; s2++ {
			lower := catalogNames(Applicable(catalog, s1))
			higher := catalogNames(Applicable(catalog, s2))
			require.LessOrEqual(t, len(lower), len(higher))
			// lower must be a prefix of higher since catalog order is kept.
			assert.Equal(t, lower, higher[:len(lower)], "S1=%d S2=%d", s1, s2)
		}
	}
}

func TestFindStrategy(t *testing.T) {
	catalog := Catalog()
	assert.NotNil(t, FindStrategy(catalog, NameCacheClean))
	assert.Nil(t, FindStrategy(catalog, "No Such Strategy"))
}

func TestApplicable_ZeroSeveritySelectsNothing(t *testing.T) {
	assert.Empty(t, Applicable(Catalog(), 0))
}
