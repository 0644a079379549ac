package purification

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/amanahlabs/tazkiyah/internal/domain"
	"github.com/amanahlabs/tazkiyah/internal/modules/portfolio"
	"github.com/amanahlabs/tazkiyah/internal/modules/screening"
	"github.com/amanahlabs/tazkiyah/internal/modules/standards"
)

const daysPerYear = 365

// ratioDisplayNames translate internal ratio identifiers into the
// wording reviewers see in blocking explanations.
var ratioDisplayNames = map[string]string{
	domain.RatioDebtToAssets:         "debt",
	domain.RatioCashInterestToAssets: "cash+interest",
	domain.RatioReceivablesToAssets:  "receivables",
	domain.RatioNonCompliantIncome:   "non-compliant income",
}

func displayRatio(name string) string {
	if label, ok := ratioDisplayNames[name]; ok {
		return label
	}
	return name
}

// ProRatingFactor returns min(1, daysHeld/365) for the holding. The
// holding period ends at the disposal date for closed positions and at
// the evaluation date for open ones. It is never scaled above 1.
func ProRatingFactor(h *portfolio.Holding, evalDate time.Time) float64 {
	end := evalDate
	if h.DisposedAt != nil {
		end = *h.DisposedAt
	}
	days := end.Sub(h.AcquiredAt).Hours() / 24
	if days < 0 {
		days = 0
	}
	factor := days / daysPerYear
	if factor > 1 {
		return 1
	}
	return factor
}

// Calculate computes the purification owed on a holding from its
// security's current verdict. Pure function of its inputs; the caller
// persists the result.
//
// Blocked when the verdict was produced from incomplete facts: a
// purification amount is never derived from a verdict that could not
// observe every ratio.
func Calculate(h *portfolio.Holding, verdict *screening.ComplianceVerdict, std *standards.Standard, evalDate time.Time) (*PurificationResult, error) {
	if len(verdict.MissingFacts) > 0 {
		return nil, &domain.CalculationBlocked{
			HoldingID: h.ID,
			Reason:    fmt.Sprintf("missing %s ratio", displayRatio(verdict.MissingFacts[0])),
		}
	}

	ratio, ok := verdict.ObservedRatio(std.IncomeRatioName)
	if !ok {
		return nil, &domain.CalculationBlocked{
			HoldingID: h.ID,
			Reason:    fmt.Sprintf("missing %s ratio", displayRatio(std.IncomeRatioName)),
		}
	}

	factor := 1.0
	if std.ProRatingApplies {
		factor = ProRatingFactor(h, evalDate)
	}

	decRatio := decimal.NewFromFloat(ratio)
	decFactor := decimal.NewFromFloat(factor)

	// A realized loss owes nothing; it never offsets the dividend side.
	capitalGain := h.CapitalGain
	if capitalGain < 0 {
		capitalGain = 0
	}

	dividend := decimal.NewFromFloat(h.Dividends).Mul(decRatio).Mul(decFactor).Round(2)
	gain := decimal.NewFromFloat(capitalGain).Mul(decRatio).Mul(decFactor).Round(2)
	total := dividend.Add(gain)

	divF, _ := dividend.Float64()
	gainF, _ := gain.Float64()
	totalF, _ := total.Float64()

	return &PurificationResult{
		HoldingID:               h.ID,
		StandardCode:            std.Code,
		StandardVersion:         std.Version,
		VerdictID:               verdict.ID,
		DividendPurification:    divF,
		CapitalGainPurification: gainF,
		Total:                   totalF,
		ProRatingFactor:         factor,
		NonCompliantRatio:       ratio,
		Methodology:             fmt.Sprintf("%s v%d", std.Code, std.Version),
		ComputedAt:              evalDate,
		Status:                  domain.ResultPending,
	}, nil
}
