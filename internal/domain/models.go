package domain

// Canonical ratio names shared between the standards registry, the ratio
// evaluator and the purification calculator. FinancialFacts records key
// their balance-sheet ratios by these names.
const (
	RatioDebtToAssets         = "debtToAssets"
	RatioCashInterestToAssets = "cashInterestToAssets"
	RatioReceivablesToAssets  = "receivablesToAssets"
	RatioNonCompliantIncome   = "nonCompliantIncomeToRevenue"
)

// RatioResult is the outcome of evaluating one ratio against a
// standard's threshold. Results are ordered as declared by the standard.
type RatioResult struct {
	RatioName string  `json:"ratio_name"`
	Observed  float64 `json:"observed"`
	Threshold float64 `json:"threshold"`
	Passed    bool    `json:"passed"`
}

// Citation records where a financial fact came from in the source
// document set supplied by the ingestion collaborator.
type Citation struct {
	Document  string `json:"document"`
	Reference string `json:"reference"` // page or footnote reference
}

// Actor identifies who performed an audited action. The system actor is
// used for automatic calculations.
const SystemActor = "system"
