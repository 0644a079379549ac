package screening

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amanahlabs/tazkiyah/internal/domain"
)

func passedResults() []domain.RatioResult {
	return []domain.RatioResult{
		{RatioName: domain.RatioDebtToAssets, Observed: 0.2, Threshold: 0.3, Passed: true},
		{RatioName: domain.RatioNonCompliantIncome, Observed: 0.02, Threshold: 0.05, Passed: true},
	}
}

func TestClassifyDecisionTable(t *testing.T) {
	tests := []struct {
		name     string
		results  []domain.RatioResult
		active   []Trigger
		missing  []*domain.MissingFactError
		expected domain.VerdictStatus
	}{
		{
			name:     "all passed no triggers",
			results:  passedResults(),
			expected: domain.VerdictCompliant,
		},
		{
			name:    "major trigger dominates",
			results: passedResults(),
			active: []Trigger{
				{Severity: domain.SeverityMajor, Materiality: domain.MaterialityHigh, ReviewStatus: domain.ReviewUnreviewed},
			},
			expected: domain.VerdictNonCompliant,
		},
		{
			name:    "warning trigger needs review",
			results: passedResults(),
			active: []Trigger{
				{Severity: domain.SeverityWarning, Materiality: domain.MaterialityLow, ReviewStatus: domain.ReviewUnreviewed},
			},
			expected: domain.VerdictReviewNeeded,
		},
		{
			name:     "missing fact needs review",
			results:  passedResults(),
			missing:  []*domain.MissingFactError{{Ratio: domain.RatioCashInterestToAssets}},
			expected: domain.VerdictReviewNeeded,
		},
		{
			name: "failed ratio without trigger needs review",
			results: []domain.RatioResult{
				{RatioName: domain.RatioDebtToAssets, Observed: 0.35, Threshold: 0.3, Passed: false},
			},
			expected: domain.VerdictReviewNeeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := Classify(tt.results, tt.active, tt.missing)
			assert.Equal(t, tt.expected, status)
		})
	}
}

func TestScoreWeighting(t *testing.T) {
	active := []Trigger{
		{Severity: domain.SeverityMajor, Materiality: domain.MaterialityHigh, ReviewStatus: domain.ReviewUnreviewed},   // 40 x 1.0
		{Severity: domain.SeverityWarning, Materiality: domain.MaterialityMedium, ReviewStatus: domain.ReviewUnreviewed}, // 15 x 0.6
		{Severity: domain.SeverityInfo, Materiality: domain.MaterialityLow, ReviewStatus: domain.ReviewUnreviewed},     // 2 x 0.3
	}

	score := Score(active)
	assert.InDelta(t, 100-40-9-0.6, score, 1e-9)
}

func TestScoreIgnoresReviewedTriggers(t *testing.T) {
	active := []Trigger{
		{Severity: domain.SeverityMajor, Materiality: domain.MaterialityHigh, ReviewStatus: domain.ReviewReviewed},
		{Severity: domain.SeverityWarning, Materiality: domain.MaterialityHigh, ReviewStatus: domain.ReviewUnreviewed},
	}

	score := Score(active)
	assert.InDelta(t, 85, score, 1e-9)
}

func TestScoreFlooredAtZero(t *testing.T) {
	var active []Trigger
	for i := 0; i < 5; i++ {
		active = append(active, Trigger{
			Severity:     domain.SeverityMajor,
			Materiality:  domain.MaterialityHigh,
			ReviewStatus: domain.ReviewUnreviewed,
		})
	}

	assert.Equal(t, 0.0, Score(active))
}

func TestClassifyScoreDoesNotOverrideStatus(t *testing.T) {
	// A single low-weight info trigger leaves the score near 100 but the
	// status is still review_needed until it is dispositioned.
	active := []Trigger{
		{Severity: domain.SeverityInfo, Materiality: domain.MaterialityLow, ReviewStatus: domain.ReviewUnreviewed},
	}

	status, score := Classify(passedResults(), active, nil)
	assert.Equal(t, domain.VerdictReviewNeeded, status)
	assert.InDelta(t, 99.4, score, 1e-9)
}
