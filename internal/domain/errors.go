package domain

import (
	"errors"
	"fmt"
)

// MissingFactError indicates a required FinancialFacts field for a ratio
// was absent. It is recoverable: evaluation captures it into the verdict
// as review_needed rather than throwing it past the classifier.
type MissingFactError struct {
	Ratio string // ratio whose input fact is missing
	Field string // the missing fact field
}

func (e *MissingFactError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("missing fact %q required for ratio %q", e.Field, e.Ratio)
	}
	return fmt.Sprintf("missing fact for ratio %q", e.Ratio)
}

// IsMissingFact reports whether err is a MissingFactError
func IsMissingFact(err error) bool {
	var mfe *MissingFactError
	return errors.As(err, &mfe)
}

// CalculationBlocked indicates purification cannot be computed because
// the verdict is incomplete. The caller must surface it as a pending
// status with the blocking reason, never compute against an incomplete
// verdict.
type CalculationBlocked struct {
	HoldingID string
	Reason    string
}

func (e *CalculationBlocked) Error() string {
	return fmt.Sprintf("purification blocked for holding %s: %s", e.HoldingID, e.Reason)
}

// IsCalculationBlocked reports whether err is a CalculationBlocked error
func IsCalculationBlocked(err error) bool {
	var cb *CalculationBlocked
	return errors.As(err, &cb)
}

// StaleResultError indicates an override or approval targeted a
// purification result that is no longer the latest for its holding.
// The caller must re-fetch and retry; the core never retries silently.
type StaleResultError struct {
	ResultID string
	LatestID string
}

func (e *StaleResultError) Error() string {
	return fmt.Sprintf("result %s is stale (latest is %s); recompute before overriding", e.ResultID, e.LatestID)
}

// IsStaleResult reports whether err is a StaleResultError
func IsStaleResult(err error) bool {
	var sre *StaleResultError
	return errors.As(err, &sre)
}

// InvalidStandardError indicates a referenced standard code or version
// does not exist. Fatal: rejected at the boundary.
type InvalidStandardError struct {
	Code    string
	Version int
}

func (e *InvalidStandardError) Error() string {
	if e.Version > 0 {
		return fmt.Sprintf("standard %s version %d does not exist", e.Code, e.Version)
	}
	return fmt.Sprintf("standard %s does not exist", e.Code)
}

// IsInvalidStandard reports whether err is an InvalidStandardError
func IsInvalidStandard(err error) bool {
	var ise *InvalidStandardError
	return errors.As(err, &ise)
}

// ErrUnknownTicker is returned by the symbol resolver when a ticker
// cannot be resolved to an ISIN.
var ErrUnknownTicker = errors.New("ticker does not resolve to a known security")

// ErrNotFound is the generic not-found sentinel for repository reads
var ErrNotFound = errors.New("not found")
