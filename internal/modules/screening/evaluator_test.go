package screening

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amanahlabs/tazkiyah/internal/domain"
)

func TestEvaluateRatiosAllPresent(t *testing.T) {
	std := aaoifiV1()
	facts := cleanFacts("US0378331005")

	results, missing := EvaluateRatios(&facts, std)

	assert.Empty(t, missing)
	require.Len(t, results, len(std.Rules))
	for _, rr := range results {
		assert.True(t, rr.Passed, "ratio %s should pass", rr.RatioName)
	}
}

func TestEvaluateRatiosMissingFactIsNeverASilentPass(t *testing.T) {
	std := aaoifiV1()
	facts := cleanFacts("US0378331005")
	delete(facts.Ratios, domain.RatioCashInterestToAssets)

	results, missing := EvaluateRatios(&facts, std)

	require.Len(t, missing, 1)
	assert.Equal(t, domain.RatioCashInterestToAssets, missing[0].Ratio)

	// The missing ratio produces no result row at all, passed or failed.
	for _, rr := range results {
		assert.NotEqual(t, domain.RatioCashInterestToAssets, rr.RatioName)
	}
	assert.Len(t, results, len(std.Rules)-1)
}

func TestEvaluateRatiosCollectsEveryMissingFact(t *testing.T) {
	std := aaoifiV1()
	facts := cleanFacts("US0378331005")
	delete(facts.Ratios, domain.RatioDebtToAssets)
	delete(facts.Ratios, domain.RatioReceivablesToAssets)

	_, missing := EvaluateRatios(&facts, std)

	require.Len(t, missing, 2, "evaluation should continue past the first missing fact")
	names := []string{missing[0].Ratio, missing[1].Ratio}
	assert.Contains(t, names, domain.RatioDebtToAssets)
	assert.Contains(t, names, domain.RatioReceivablesToAssets)
}

func TestEvaluateRatiosFailedRatio(t *testing.T) {
	std := aaoifiV1()
	facts := cleanFacts("US0378331005")
	facts.Ratios[domain.RatioDebtToAssets] = 0.45 // threshold 0.30

	results, missing := EvaluateRatios(&facts, std)

	assert.Empty(t, missing)
	failed := 0
	for _, rr := range results {
		if rr.RatioName == domain.RatioDebtToAssets {
			assert.False(t, rr.Passed)
			assert.InDelta(t, 0.45, rr.Observed, 1e-9)
			assert.InDelta(t, 0.30, rr.Threshold, 1e-9)
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}
