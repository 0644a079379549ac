// Package portfolio manages client portfolios, their holdings, and the
// aggregation read model over purification results.
package portfolio

import "time"

// Portfolio groups holdings under a primary screening standard, with an
// optional jurisdiction overlay standard evaluated side by side.
type Portfolio struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Client          string    `json:"client"`
	PrimaryStandard string    `json:"primary_standard"`
	OverlayStandard string    `json:"overlay_standard,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Holding is a position in a single security. DisposedAt is nil while
// the position is open; dividends and capital gain are cumulative over
// the holding period.
type Holding struct {
	ID          string     `json:"id"`
	PortfolioID string     `json:"portfolio_id"`
	ISIN        string     `json:"isin"`
	AcquiredAt  time.Time  `json:"acquired_at"`
	DisposedAt  *time.Time `json:"disposed_at,omitempty"`
	Dividends   float64    `json:"dividends"`
	CapitalGain float64    `json:"capital_gain"`
	MarketValue float64    `json:"market_value"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Open reports whether the holding has not been disposed
func (h *Holding) Open() bool {
	return h.DisposedAt == nil
}

// PortfolioSummary is the aggregation read model for one portfolio.
// ApprovedTotal and PendingTotal are reported separately and never
// merged: a result awaiting review must not inflate the approved
// purification figure.
type PortfolioSummary struct {
	PortfolioID            string         `json:"portfolio_id"`
	StandardCode           string         `json:"standard_code"`
	HoldingCount           int            `json:"holding_count"`
	ApprovedTotal          float64        `json:"approved_total"`
	PendingTotal           float64        `json:"pending_total"`
	ComplianceDistribution map[string]int `json:"compliance_distribution"`
	WeightedScore          float64        `json:"weighted_score"`
	TotalMarketValue       float64        `json:"total_market_value"`
	GeneratedAt            time.Time      `json:"generated_at"`
}
