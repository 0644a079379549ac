package screening

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amanahlabs/tazkiyah/internal/domain"
	"github.com/amanahlabs/tazkiyah/internal/modules/standards"
)

// derivativeKeywords classify a haram activity category as derivatives
// involvement rather than a non-compliant subsidiary.
var derivativeKeywords = []string{"derivative", "option", "future", "swap", "forward"}

// interestKeywords mark activity categories that are the source of the
// income-threshold ratio, so a breached income ratio does not double up
// as an activity trigger.
var interestKeywords = []string{"interest", "riba", "conventional lending"}

// severityEscalation is the breach multiple beyond which a failed ratio
// is a major finding instead of a warning. 8% against a 5% threshold
// (1.6x) is already major.
const severityEscalation = 1.5

// DetectTriggers scans ratio results and the business-activity breakdown
// and emits unsaved triggers. Severity is monotonic with breach
// magnitude under a fixed standard: a larger breach never yields a
// lower severity tier.
func DetectTriggers(results []domain.RatioResult, facts *FinancialFacts, std *standards.Standard) []Trigger {
	now := time.Now()
	var triggers []Trigger

	newTrigger := func(typ domain.TriggerType, severity domain.TriggerSeverity, materiality domain.Materiality, percent, amount float64, detail string) Trigger {
		return Trigger{
			ID:               uuid.New().String(),
			ISIN:             facts.ISIN,
			Type:             typ,
			Severity:         severity,
			Materiality:      materiality,
			Percent:          percent,
			Amount:           amount,
			Detail:           detail,
			StandardCode:     std.Code,
			StandardVersion:  std.Version,
			FactsFingerprint: facts.Fingerprint,
			DetectedAt:       now,
			ReviewStatus:     domain.ReviewUnreviewed,
		}
	}

	incomeBreached := false
	for _, rr := range results {
		if rr.Passed {
			continue
		}

		severity := domain.SeverityWarning
		if rr.Threshold > 0 && rr.Observed > severityEscalation*rr.Threshold {
			severity = domain.SeverityMajor
		}

		if rr.RatioName == std.IncomeRatioName {
			incomeBreached = true
			triggers = append(triggers, newTrigger(
				domain.TriggerInterestIncomeBreach,
				severity,
				domain.MaterialityHigh,
				rr.Observed*100,
				rr.Observed*facts.Revenue,
				fmt.Sprintf("%s observed %.2f%% against threshold %.2f%%", rr.RatioName, rr.Observed*100, rr.Threshold*100),
			))
			continue
		}

		// Balance-sheet breach: flagged so the classifier sees the
		// failure even though no activity category is involved.
		triggers = append(triggers, newTrigger(
			domain.TriggerEarningsRedFlag,
			severity,
			domain.MaterialityMedium,
			rr.Observed*100,
			0,
			fmt.Sprintf("%s observed %.2f%% against threshold %.2f%%", rr.RatioName, rr.Observed*100, rr.Threshold*100),
		))
	}

	for _, activity := range facts.Activities {
		if activity.Tag != domain.TagHaram || activity.Percent <= 0 {
			continue
		}
		// An interest-like category that already breached the income
		// ratio is not reported twice.
		if incomeBreached && matchesAny(activity.Category, interestKeywords) {
			continue
		}

		typ := domain.TriggerNonCompliantSubsidiary
		if matchesAny(activity.Category, derivativeKeywords) {
			typ = domain.TriggerDerivativesInvolvement
		}

		triggers = append(triggers, newTrigger(
			typ,
			domain.SeverityWarning,
			domain.MaterialityForPercent(activity.Percent),
			activity.Percent,
			activity.Percent/100*facts.Revenue,
			fmt.Sprintf("haram activity %q contributes %.2f%% of revenue", activity.Category, activity.Percent),
		))
	}

	return triggers
}

func matchesAny(category string, keywords []string) bool {
	lower := strings.ToLower(category)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
