package standards

import (
	"github.com/amanahlabs/tazkiyah/internal/domain"
)

// Well-known standard codes
const (
	CodeAAOIFI       = "AAOIFI"
	CodeMalaysiaSC   = "MALAYSIA_SC"
	CodeIndonesiaOJK = "INDONESIA_OJK"
)

// SeedStandards returns the built-in v1 rule sets. Thresholds follow the
// published screening methodologies: AAOIFI caps debt and interest-bearing
// holdings at 30% of assets, the Malaysia SC uses 33% balance-sheet
// benchmarks, OJK uses a 45% debt benchmark with a 10% income cap.
func SeedStandards() []Standard {
	return []Standard{
		{
			Code: CodeAAOIFI,
			Rules: []ThresholdRule{
				{RatioName: domain.RatioDebtToAssets, Threshold: 0.30, Direction: DirectionBelow},
				{RatioName: domain.RatioCashInterestToAssets, Threshold: 0.30, Direction: DirectionBelow},
				{RatioName: domain.RatioReceivablesToAssets, Threshold: 0.67, Direction: DirectionBelow},
				{RatioName: domain.RatioNonCompliantIncome, Threshold: 0.05, Direction: DirectionBelow},
			},
			IncomeRatioName:  domain.RatioNonCompliantIncome,
			IncomeThreshold:  0.05,
			ProRatingApplies: true,
		},
		{
			Code: CodeMalaysiaSC,
			Rules: []ThresholdRule{
				{RatioName: domain.RatioDebtToAssets, Threshold: 0.33, Direction: DirectionBelow},
				{RatioName: domain.RatioCashInterestToAssets, Threshold: 0.33, Direction: DirectionBelow},
				{RatioName: domain.RatioNonCompliantIncome, Threshold: 0.05, Direction: DirectionBelow},
			},
			IncomeRatioName:  domain.RatioNonCompliantIncome,
			IncomeThreshold:  0.05,
			ProRatingApplies: false,
		},
		{
			Code: CodeIndonesiaOJK,
			Rules: []ThresholdRule{
				{RatioName: domain.RatioDebtToAssets, Threshold: 0.45, Direction: DirectionBelow},
				{RatioName: domain.RatioNonCompliantIncome, Threshold: 0.10, Direction: DirectionBelow},
			},
			IncomeRatioName:  domain.RatioNonCompliantIncome,
			IncomeThreshold:  0.10,
			ProRatingApplies: false,
		},
	}
}
