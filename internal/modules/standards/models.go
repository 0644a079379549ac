// Package standards provides the versioned Shariah standards registry.
package standards

import (
	"time"
)

// Direction declares which side of the threshold passes
type Direction string

const (
	// DirectionBelow - observed must be strictly less than threshold
	DirectionBelow Direction = "below"
	// DirectionAbove - observed must be strictly greater than threshold
	DirectionAbove Direction = "above"
)

// ThresholdRule maps a ratio name to its threshold and comparison
// direction under a standard. Tolerance widens the pass band; the
// default is zero (strict comparison).
type ThresholdRule struct {
	RatioName string    `json:"ratio_name"`
	Threshold float64   `json:"threshold"`
	Direction Direction `json:"direction"`
	Tolerance float64   `json:"tolerance"`
}

// Passes evaluates an observed value against the rule
func (r ThresholdRule) Passes(observed float64) bool {
	switch r.Direction {
	case DirectionAbove:
		return observed > r.Threshold-r.Tolerance
	default:
		return observed < r.Threshold+r.Tolerance
	}
}

// Standard is a published, immutable rule set. New rules always create a
// new version; an existing version is never mutated.
type Standard struct {
	ID              string          `json:"id"`
	Code            string          `json:"code"` // e.g. AAOIFI, MALAYSIA_SC
	Version         int             `json:"version"`
	Rules           []ThresholdRule `json:"rules"`
	IncomeRatioName string          `json:"income_ratio_name"` // ratio driving purification
	IncomeThreshold float64         `json:"income_threshold"`
	ProRatingApplies bool           `json:"pro_rating_applies"`
	PublishedAt     time.Time       `json:"published_at"`
}

// IncomeRule returns the rule for the standard's income-threshold ratio,
// if declared.
func (s *Standard) IncomeRule() (ThresholdRule, bool) {
	for _, rule := range s.Rules {
		if rule.RatioName == s.IncomeRatioName {
			return rule, true
		}
	}
	return ThresholdRule{}, false
}
