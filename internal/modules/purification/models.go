// Package purification computes purification amounts for holdings of
// securities with non-compliant income, and records them in the
// append-only results ledger.
package purification

import (
	"time"

	"github.com/amanahlabs/tazkiyah/internal/domain"
)

// PurificationResult is one computed purification for a holding under a
// pinned standard version. Rows are immutable except for the status
// transition (pending -> approved) and the has_override flag; a
// recomputation appends a new row and moves the latest-result pointer.
type PurificationResult struct {
	ID                      string              `json:"id"`
	HoldingID               string              `json:"holding_id"`
	StandardCode            string              `json:"standard_code"`
	StandardVersion         int                 `json:"standard_version"`
	VerdictID               string              `json:"verdict_id"`
	DividendPurification    float64             `json:"dividend_purification"`
	CapitalGainPurification float64             `json:"capital_gain_purification"`
	Total                   float64             `json:"total"`
	ProRatingFactor         float64             `json:"pro_rating_factor"`
	NonCompliantRatio       float64             `json:"non_compliant_ratio"`
	Methodology             string              `json:"methodology"`
	ComputedAt              time.Time           `json:"computed_at"`
	Status                  domain.ResultStatus `json:"status"`
	HasOverride             bool                `json:"has_override"`
}
