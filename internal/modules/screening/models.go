// Package screening implements the compliance evaluation pipeline:
// ratio evaluation, trigger detection and verdict classification.
package screening

import (
	"time"

	"github.com/amanahlabs/tazkiyah/internal/domain"
)

// ActivityShare is one business-activity revenue category with its
// Shariah tag and share of total revenue. Shares for a facts record sum
// to 100.
type ActivityShare struct {
	Category string             `json:"category"`
	Tag      domain.ActivityTag `json:"tag"`
	Percent  float64            `json:"percent"`
}

// FinancialFacts is the structured input supplied by the ingestion
// collaborator for one security and reporting period. The engine treats
// it as read-only; corrections arrive as new records.
type FinancialFacts struct {
	ID          string             `json:"id"`
	ISIN        string             `json:"isin"`
	Period      string             `json:"period"`
	Revenue     float64            `json:"revenue"`
	Activities  []ActivityShare    `json:"activities"`
	Ratios      map[string]float64 `json:"ratios"`
	Source      domain.Citation    `json:"source"`
	Confidence  float64            `json:"confidence"`
	Fingerprint string             `json:"fingerprint"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Trigger is a detected compliance event. Created once per detection,
// never deleted; review marking is the only mutation.
type Trigger struct {
	ID               string                 `json:"id"`
	ISIN             string                 `json:"isin"`
	Type             domain.TriggerType     `json:"type"`
	Severity         domain.TriggerSeverity `json:"severity"`
	Materiality      domain.Materiality     `json:"materiality"`
	Percent          float64                `json:"percent"`
	Amount           float64                `json:"amount"`
	Detail           string                 `json:"detail"`
	StandardCode     string                 `json:"standard_code"`
	StandardVersion  int                    `json:"standard_version"`
	FactsFingerprint string                 `json:"facts_fingerprint"`
	DetectedAt       time.Time              `json:"detected_at"`
	ReviewStatus     domain.ReviewStatus    `json:"review_status"`
	Reviewer         string                 `json:"reviewer,omitempty"`
	ResolutionNote   string                 `json:"resolution_note,omitempty"`
}

// ComplianceVerdict is the per-security, per-standard classification.
// Immutable once created; a re-evaluation appends a new verdict and
// marks the prior one superseded.
type ComplianceVerdict struct {
	ID              string               `json:"id"`
	ISIN            string               `json:"isin"`
	StandardCode    string               `json:"standard_code"`
	StandardVersion int                  `json:"standard_version"`
	Status          domain.VerdictStatus `json:"status"`
	Score           float64              `json:"score"`
	RatioResults    []domain.RatioResult `json:"ratio_results"`
	TriggerIDs      []string             `json:"trigger_ids"`
	MissingFacts    []string             `json:"missing_facts"`
	Confidence      float64              `json:"confidence"`
	FactsID         string               `json:"facts_id"`
	EvaluatedAt     time.Time            `json:"evaluated_at"`
	Superseded      bool                 `json:"superseded"`
}

// ObservedRatio returns the observed value for a named ratio from the
// verdict's evaluation, if it was computable.
func (v *ComplianceVerdict) ObservedRatio(name string) (float64, bool) {
	for _, rr := range v.RatioResults {
		if rr.RatioName == name {
			return rr.Observed, true
		}
	}
	return 0, false
}

// TriggerFilter narrows trigger listings for the reporting collaborator
type TriggerFilter struct {
	ISIN         string
	Type         domain.TriggerType
	Severity     domain.TriggerSeverity
	ReviewStatus domain.ReviewStatus
	Since        time.Time
}
