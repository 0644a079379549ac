// Package domain provides core domain models and types.
package domain

import "fmt"

// VerdictStatus represents the compliance classification of a security
// under a specific standard. It is a closed set; any switch over it
// must handle every value.
type VerdictStatus string

const (
	VerdictCompliant    VerdictStatus = "compliant"
	VerdictNonCompliant VerdictStatus = "non_compliant"
	VerdictReviewNeeded VerdictStatus = "review_needed"
)

// Valid reports whether the status is a known value
func (s VerdictStatus) Valid() bool {
	switch s {
	case VerdictCompliant, VerdictNonCompliant, VerdictReviewNeeded:
		return true
	}
	return false
}

// ParseVerdictStatus converts a stored string into a VerdictStatus
func ParseVerdictStatus(raw string) (VerdictStatus, error) {
	s := VerdictStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown verdict status: %q", raw)
	}
	return s, nil
}

// TriggerSeverity represents the severity tier of a detected trigger
type TriggerSeverity string

const (
	SeverityMajor   TriggerSeverity = "major"
	SeverityWarning TriggerSeverity = "warning"
	SeverityInfo    TriggerSeverity = "info"
)

// Valid reports whether the severity is a known value
func (s TriggerSeverity) Valid() bool {
	switch s {
	case SeverityMajor, SeverityWarning, SeverityInfo:
		return true
	}
	return false
}

// Weight returns the scoring weight for this severity tier.
// Weights: major=40, warning=15, info=2.
func (s TriggerSeverity) Weight() float64 {
	switch s {
	case SeverityMajor:
		return 40
	case SeverityWarning:
		return 15
	case SeverityInfo:
		return 2
	}
	return 0
}

// Rank orders severities for monotonicity checks (higher = more severe)
func (s TriggerSeverity) Rank() int {
	switch s {
	case SeverityMajor:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	}
	return 0
}

// Materiality represents the qualitative significance tier of a trigger,
// independent of its numeric severity
type Materiality string

const (
	MaterialityHigh   Materiality = "high"
	MaterialityMedium Materiality = "medium"
	MaterialityLow    Materiality = "low"
)

// Valid reports whether the materiality is a known value
func (m Materiality) Valid() bool {
	switch m {
	case MaterialityHigh, MaterialityMedium, MaterialityLow:
		return true
	}
	return false
}

// Weight returns the scoring weight for this materiality tier.
// Weights: high=1.0, medium=0.6, low=0.3.
func (m Materiality) Weight() float64 {
	switch m {
	case MaterialityHigh:
		return 1.0
	case MaterialityMedium:
		return 0.6
	case MaterialityLow:
		return 0.3
	}
	return 0
}

// MaterialityForPercent maps an activity percentage to a materiality
// tier: high >= 5%, medium 1-5%, low < 1%.
func MaterialityForPercent(percent float64) Materiality {
	switch {
	case percent >= 5:
		return MaterialityHigh
	case percent >= 1:
		return MaterialityMedium
	default:
		return MaterialityLow
	}
}

// ResultStatus represents the approval state of a purification result
type ResultStatus string

const (
	ResultPending      ResultStatus = "pending"
	ResultApproved     ResultStatus = "approved"
	ResultManualReview ResultStatus = "manual_review"
)

// Valid reports whether the status is a known value
func (s ResultStatus) Valid() bool {
	switch s {
	case ResultPending, ResultApproved, ResultManualReview:
		return true
	}
	return false
}

// Approvable reports whether a result in this status may transition to approved
func (s ResultStatus) Approvable() bool {
	return s == ResultPending || s == ResultManualReview
}

// ActivityTag classifies a business-activity revenue category
type ActivityTag string

const (
	TagHalal    ActivityTag = "halal"
	TagHaram    ActivityTag = "haram"
	TagDoubtful ActivityTag = "doubtful"
)

// Valid reports whether the tag is a known value
func (t ActivityTag) Valid() bool {
	switch t {
	case TagHalal, TagHaram, TagDoubtful:
		return true
	}
	return false
}

// TriggerType identifies the kind of compliance trigger detected
type TriggerType string

const (
	TriggerInterestIncomeBreach   TriggerType = "interest-income-breach"
	TriggerDerivativesInvolvement TriggerType = "derivatives-involvement"
	TriggerNonCompliantSubsidiary TriggerType = "non-compliant-subsidiary"
	TriggerEarningsRedFlag        TriggerType = "earnings-red-flag"
)

// ReviewStatus tracks whether a trigger has been reviewed by a human
type ReviewStatus string

const (
	ReviewUnreviewed ReviewStatus = "unreviewed"
	ReviewReviewed   ReviewStatus = "reviewed"
)
