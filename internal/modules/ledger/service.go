package ledger

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/amanahlabs/tazkiyah/internal/domain"
	"github.com/amanahlabs/tazkiyah/internal/events"
	"github.com/amanahlabs/tazkiyah/internal/modules/purification"
)

// ResultStore is the contract the ledger needs from the purification
// results repository.
type ResultStore interface {
	GetByID(id string) (*purification.PurificationResult, error)
	SetStatus(id string, status domain.ResultStatus) error
}

// Service exposes override application, approval and the audit trail.
// It also implements domain.AuditRecorder so the evaluation pipeline
// journals through the same ledger.
type Service struct {
	audit     *AuditRepository
	overrides *OverrideRepository
	results   ResultStore
	eventMgr  *events.Manager
	log       zerolog.Logger
}

// NewService creates a new ledger service
func NewService(
	audit *AuditRepository,
	overrides *OverrideRepository,
	results ResultStore,
	eventMgr *events.Manager,
	log zerolog.Logger,
) *Service {
	return &Service{
		audit:     audit,
		overrides: overrides,
		results:   results,
		eventMgr:  eventMgr,
		log:       log.With().Str("service", "ledger").Logger(),
	}
}

// Record implements domain.AuditRecorder
func (s *Service) Record(entityType, entityID, action, actor string, before, after interface{}) error {
	_, err := s.audit.Append(entityType, entityID, action, actor, before, after)
	return err
}

// ApplyOverride replaces a computed purification total at read time.
// Fails with StaleResultError when resultID is no longer the latest
// result for its holding; the caller must recompute and retry.
func (s *Service) ApplyOverride(resultID string, newValue float64, reason, author string) (*Override, error) {
	if reason == "" {
		return nil, fmt.Errorf("override reason is required")
	}

	before, err := s.results.GetByID(resultID)
	if err != nil {
		return nil, err
	}

	override, err := s.overrides.Apply(resultID, newValue, reason, author)
	if err != nil {
		return nil, err
	}

	if _, err := s.audit.Append(domain.AuditEntityResult, resultID,
		domain.AuditOverrideApplied, author, before, override); err != nil {
		s.log.Error().Err(err).Str("result_id", resultID).Msg("Failed to journal override")
	}

	s.eventMgr.EmitTyped(events.OverrideApplied, "ledger", &events.OverrideAppliedData{
		OverrideID: override.ID,
		ResultID:   resultID,
		HoldingID:  before.HoldingID,
		NewValue:   newValue,
		Author:     author,
	})

	s.log.Info().
		Str("result_id", resultID).
		Float64("computed", before.Total).
		Float64("override", newValue).
		Str("author", author).
		Msg("Override applied")

	return override, nil
}

// Approve transitions a result to approved. Approving an already
// approved result is a no-op that still writes an audit entry.
func (s *Service) Approve(resultID, approver string) (*purification.PurificationResult, error) {
	result, err := s.results.GetByID(resultID)
	if err != nil {
		return nil, err
	}

	if result.Status == domain.ResultApproved {
		if _, err := s.audit.Append(domain.AuditEntityResult, resultID,
			domain.AuditApprovalGranted, approver, result, result); err != nil {
			s.log.Error().Err(err).Str("result_id", resultID).Msg("Failed to journal no-op approval")
		}
		s.eventMgr.EmitTyped(events.ResultApproved, "ledger", &events.ResultApprovedData{
			ResultID: resultID,
			Approver: approver,
			NoOp:     true,
		})
		return result, nil
	}

	if !result.Status.Approvable() {
		return nil, fmt.Errorf("result %s in status %s cannot be approved", resultID, result.Status)
	}

	if err := s.results.SetStatus(resultID, domain.ResultApproved); err != nil {
		return nil, err
	}

	after := *result
	after.Status = domain.ResultApproved

	if _, err := s.audit.Append(domain.AuditEntityResult, resultID,
		domain.AuditApprovalGranted, approver, result, &after); err != nil {
		s.log.Error().Err(err).Str("result_id", resultID).Msg("Failed to journal approval")
	}
	s.eventMgr.EmitTyped(events.ResultApproved, "ledger", &events.ResultApprovedData{
		ResultID: resultID,
		Approver: approver,
	})

	return &after, nil
}

// GetAuditTrail returns the full journal for an entity, oldest first
func (s *Service) GetAuditTrail(entityID string) ([]AuditEntry, error) {
	return s.audit.GetTrail(entityID)
}

// GetOverride returns the override for a result, if any
func (s *Service) GetOverride(resultID string) (*Override, error) {
	return s.overrides.GetForResult(resultID)
}

// OverridesForHolding returns every override across the holding's
// result history, oldest first
func (s *Service) OverridesForHolding(holdingID string) ([]Override, error) {
	return s.overrides.ListForHolding(holdingID)
}

// OverrideValue returns the override value for a result when one
// exists. Used by the portfolio aggregate.
func (s *Service) OverrideValue(resultID string) (float64, bool, error) {
	override, err := s.overrides.GetForResult(resultID)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return override.NewValue, true, nil
}
