package screening

import (
	"github.com/amanahlabs/tazkiyah/internal/domain"
	"github.com/amanahlabs/tazkiyah/internal/modules/standards"
)

// EvaluateRatios compares a facts record against every threshold rule of
// a standard, in the order the standard declares them. A ratio whose
// input fact is absent yields a MissingFactError; evaluation continues
// so the verdict can name every missing fact at once. A missing fact is
// never a silent pass.
func EvaluateRatios(facts *FinancialFacts, std *standards.Standard) ([]domain.RatioResult, []*domain.MissingFactError) {
	results := make([]domain.RatioResult, 0, len(std.Rules))
	var missing []*domain.MissingFactError

	for _, rule := range std.Rules {
		observed, ok := facts.Ratios[rule.RatioName]
		if !ok {
			missing = append(missing, &domain.MissingFactError{
				Ratio: rule.RatioName,
				Field: rule.RatioName,
			})
			continue
		}
		results = append(results, domain.RatioResult{
			RatioName: rule.RatioName,
			Observed:  observed,
			Threshold: rule.Threshold,
			Passed:    rule.Passes(observed),
		})
	}

	return results, missing
}
