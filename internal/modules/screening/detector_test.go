package screening

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amanahlabs/tazkiyah/internal/domain"
)

func detectFor(t *testing.T, facts FinancialFacts) []Trigger {
	t.Helper()
	std := aaoifiV1()
	results, missing := EvaluateRatios(&facts, std)
	require.Empty(t, missing)
	return DetectTriggers(results, &facts, std)
}

func findTrigger(triggers []Trigger, typ domain.TriggerType) *Trigger {
	for i := range triggers {
		if triggers[i].Type == typ {
			return &triggers[i]
		}
	}
	return nil
}

func TestDetectTriggersCleanFactsProduceNone(t *testing.T) {
	triggers := detectFor(t, cleanFacts("US0378331005"))
	assert.Empty(t, triggers)
}

func TestDetectTriggersIncomeBreachWarning(t *testing.T) {
	facts := cleanFacts("US0378331005")
	facts.Ratios[domain.RatioNonCompliantIncome] = 0.06 // threshold 0.05, below 1.5x

	triggers := detectFor(t, facts)

	tr := findTrigger(triggers, domain.TriggerInterestIncomeBreach)
	require.NotNil(t, tr)
	assert.Equal(t, domain.SeverityWarning, tr.Severity)
	assert.Equal(t, domain.MaterialityHigh, tr.Materiality)
	assert.InDelta(t, 6.0, tr.Percent, 1e-9)
	assert.InDelta(t, 0.06*facts.Revenue, tr.Amount, 1e-6)
}

func TestDetectTriggersIncomeBreachEscalatesToMajor(t *testing.T) {
	facts := cleanFacts("US0378331005")
	facts.Ratios[domain.RatioNonCompliantIncome] = 0.08 // 1.6 x 0.05

	triggers := detectFor(t, facts)

	tr := findTrigger(triggers, domain.TriggerInterestIncomeBreach)
	require.NotNil(t, tr)
	assert.Equal(t, domain.SeverityMajor, tr.Severity)
}

func TestDetectTriggersBalanceSheetBreachFlagsRedFlag(t *testing.T) {
	facts := cleanFacts("US0378331005")
	facts.Ratios[domain.RatioDebtToAssets] = 0.35 // threshold 0.30

	triggers := detectFor(t, facts)

	tr := findTrigger(triggers, domain.TriggerEarningsRedFlag)
	require.NotNil(t, tr)
	assert.Equal(t, domain.SeverityWarning, tr.Severity)
	assert.Equal(t, domain.MaterialityMedium, tr.Materiality)
}

func TestDetectTriggersHaramActivityClassification(t *testing.T) {
	facts := cleanFacts("US0378331005")
	facts.Activities = []ActivityShare{
		{Category: "Retail", Tag: domain.TagHalal, Percent: 90},
		{Category: "Equity derivatives desk", Tag: domain.TagHaram, Percent: 6},
		{Category: "Alcohol distribution subsidiary", Tag: domain.TagHaram, Percent: 4},
	}

	triggers := detectFor(t, facts)

	deriv := findTrigger(triggers, domain.TriggerDerivativesInvolvement)
	require.NotNil(t, deriv)
	assert.Equal(t, domain.MaterialityHigh, deriv.Materiality, "6%% of revenue is high materiality")
	assert.InDelta(t, 6.0, deriv.Percent, 1e-9)

	sub := findTrigger(triggers, domain.TriggerNonCompliantSubsidiary)
	require.NotNil(t, sub)
	assert.Equal(t, domain.MaterialityMedium, sub.Materiality)
	assert.InDelta(t, 4.0/100*facts.Revenue, sub.Amount, 1e-6)
}

func TestDetectTriggersDoubtfulActivityDoesNotTrigger(t *testing.T) {
	facts := cleanFacts("US0378331005")
	facts.Activities = []ActivityShare{
		{Category: "Retail", Tag: domain.TagHalal, Percent: 95},
		{Category: "Hotel operations", Tag: domain.TagDoubtful, Percent: 5},
	}

	triggers := detectFor(t, facts)
	assert.Empty(t, triggers, "doubtful activities feed review, not triggers")
}

func TestDetectTriggersInterestActivityNotDoubleCounted(t *testing.T) {
	facts := cleanFacts("US0378331005")
	facts.Ratios[domain.RatioNonCompliantIncome] = 0.07
	facts.Activities = []ActivityShare{
		{Category: "Retail", Tag: domain.TagHalal, Percent: 93},
		{Category: "Interest income on deposits", Tag: domain.TagHaram, Percent: 7},
	}

	triggers := detectFor(t, facts)

	require.NotNil(t, findTrigger(triggers, domain.TriggerInterestIncomeBreach))
	assert.Nil(t, findTrigger(triggers, domain.TriggerNonCompliantSubsidiary),
		"the activity behind the breached income ratio is reported once")
	assert.Len(t, triggers, 1)
}
