package screening

import (
	"github.com/amanahlabs/tazkiyah/internal/domain"
)

// Classify aggregates ratio results, active triggers and missing facts
// into a verdict status and advisory score.
//
// Decision table:
//
//	major-severity trigger present           -> non_compliant
//	warning trigger, failed ratio or missing -> review_needed
//	all ratios passed, no triggers           -> compliant
//
// The score never overrides the decision table for the status field.
func Classify(results []domain.RatioResult, active []Trigger, missing []*domain.MissingFactError) (domain.VerdictStatus, float64) {
	score := Score(active)

	for _, t := range active {
		if t.Severity == domain.SeverityMajor {
			return domain.VerdictNonCompliant, score
		}
	}

	if len(missing) > 0 || len(active) > 0 {
		return domain.VerdictReviewNeeded, score
	}
	for _, rr := range results {
		if !rr.Passed {
			return domain.VerdictReviewNeeded, score
		}
	}

	return domain.VerdictCompliant, score
}

// Score computes the advisory compliance score:
// 100 - sum(severity weight x materiality weight) over unreviewed
// triggers, floored at 0.
func Score(active []Trigger) float64 {
	score := 100.0
	for _, t := range active {
		if t.ReviewStatus != domain.ReviewUnreviewed {
			continue
		}
		score -= t.Severity.Weight() * t.Materiality.Weight()
	}
	if score < 0 {
		return 0
	}
	return score
}
