package screening

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/amanahlabs/tazkiyah/internal/domain"
	"github.com/amanahlabs/tazkiyah/internal/events"
	"github.com/amanahlabs/tazkiyah/internal/modules/standards"
)

// StandardsProvider is the contract the screening service needs from the
// standards registry.
type StandardsProvider interface {
	Latest(code string) (*standards.Standard, error)
	Get(code string, version int) (*standards.Standard, error)
}

// Service orchestrates one evaluation run: facts -> ratios -> triggers
// -> verdict. Each run for one security is a pure function of its
// inputs and may execute concurrently with runs for other securities.
type Service struct {
	facts     *FactsRepository
	triggers  *TriggerRepository
	verdicts  *VerdictRepository
	standards StandardsProvider
	auditor   domain.AuditRecorder
	eventMgr  *events.Manager
	log       zerolog.Logger
}

// NewService creates a new screening service
func NewService(
	facts *FactsRepository,
	triggers *TriggerRepository,
	verdicts *VerdictRepository,
	standardsProvider StandardsProvider,
	auditor domain.AuditRecorder,
	eventMgr *events.Manager,
	log zerolog.Logger,
) *Service {
	return &Service{
		facts:     facts,
		triggers:  triggers,
		verdicts:  verdicts,
		standards: standardsProvider,
		auditor:   auditor,
		eventMgr:  eventMgr,
		log:       log.With().Str("service", "screening").Logger(),
	}
}

// Evaluate runs a full evaluation of a security against the latest
// version of a standard and persists the resulting verdict.
func (s *Service) Evaluate(ctx context.Context, isin, standardCode string) (*ComplianceVerdict, error) {
	std, err := s.standards.Latest(standardCode)
	if err != nil {
		return nil, err
	}
	return s.EvaluateAgainst(ctx, isin, std)
}

// EvaluateWithOverlay evaluates the same security against a primary and
// an overlay standard as two independent runs. The verdicts are
// reported side by side, never merged.
func (s *Service) EvaluateWithOverlay(ctx context.Context, isin, primaryCode, overlayCode string) (primary, overlay *ComplianceVerdict, err error) {
	primary, err = s.Evaluate(ctx, isin, primaryCode)
	if err != nil {
		return nil, nil, err
	}
	if overlayCode == "" {
		return primary, nil, nil
	}
	overlay, err = s.Evaluate(ctx, isin, overlayCode)
	if err != nil {
		return nil, nil, fmt.Errorf("overlay evaluation failed: %w", err)
	}
	return primary, overlay, nil
}

// EvaluateAgainst runs an evaluation against a pinned standard version.
// Batch re-evaluation uses this so every security in a batch sees the
// same version.
func (s *Service) EvaluateAgainst(ctx context.Context, isin string, std *standards.Standard) (*ComplianceVerdict, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	facts, err := s.facts.GetLatestForISIN(isin)
	if errors.Is(err, domain.ErrNotFound) {
		// No ingested facts at all: still produce a well-formed verdict
		// so downstream aggregation has something to reason about.
		return s.persistVerdict(&ComplianceVerdict{
			ISIN:            isin,
			StandardCode:    std.Code,
			StandardVersion: std.Version,
			Status:          domain.VerdictReviewNeeded,
			Score:           0,
			RatioResults:    []domain.RatioResult{},
			TriggerIDs:      []string{},
			MissingFacts:    []string{"no financial facts ingested"},
			Confidence:      0,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load facts for %s: %w", isin, err)
	}

	results, missing := EvaluateRatios(facts, std)
	detected := DetectTriggers(results, facts, std)

	triggerIDs := make([]string, 0, len(detected))
	for _, t := range detected {
		inserted, err := s.triggers.InsertDedup(t)
		if err != nil {
			return nil, err
		}
		if inserted {
			triggerIDs = append(triggerIDs, t.ID)
			s.recordAudit(domain.AuditEntityTrigger, t.ID, domain.AuditTriggerDetected, domain.SystemActor, nil, t)
			s.eventMgr.EmitTyped(events.TriggerDetected, "screening", &events.TriggerDetectedData{
				TriggerID:   t.ID,
				ISIN:        t.ISIN,
				Type:        string(t.Type),
				Severity:    string(t.Severity),
				Materiality: string(t.Materiality),
				Percent:     t.Percent,
			})
		}
	}

	active, err := s.triggers.ListUnreviewed(isin, std.Code)
	if err != nil {
		return nil, err
	}

	status, score := Classify(results, active, missing)

	missingNames := make([]string, 0, len(missing))
	for _, m := range missing {
		missingNames = append(missingNames, m.Ratio)
	}

	return s.persistVerdict(&ComplianceVerdict{
		ISIN:            isin,
		StandardCode:    std.Code,
		StandardVersion: std.Version,
		Status:          status,
		Score:           score,
		RatioResults:    results,
		TriggerIDs:      triggerIDs,
		MissingFacts:    missingNames,
		Confidence:      facts.Confidence,
		FactsID:         facts.ID,
	})
}

// IngestFacts validates and stores a facts record from the ingestion
// collaborator.
func (s *Service) IngestFacts(facts FinancialFacts) (*FinancialFacts, error) {
	stored, err := s.facts.Put(facts)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("isin", stored.ISIN).
		Str("period", stored.Period).
		Msg("Financial facts ingested")
	return stored, nil
}

// ReviewTrigger marks a trigger reviewed and journals the transition
func (s *Service) ReviewTrigger(id, reviewer, note string) error {
	before, err := s.triggers.GetByID(id)
	if err != nil {
		return err
	}
	if err := s.triggers.MarkReviewed(id, reviewer, note); err != nil {
		return err
	}
	after, err := s.triggers.GetByID(id)
	if err != nil {
		return err
	}
	s.recordAudit(domain.AuditEntityTrigger, id, domain.AuditTriggerReviewed, reviewer, before, after)
	s.eventMgr.EmitTyped(events.TriggerReviewed, "screening", &events.TriggerReviewedData{
		TriggerID: id,
		Reviewer:  reviewer,
	})
	return nil
}

// ListTriggers exposes filtered trigger listings to the reporting
// collaborator.
func (s *Service) ListTriggers(filter TriggerFilter) ([]Trigger, error) {
	return s.triggers.List(filter, "")
}

// LatestVerdict returns the current verdict for (isin, standard code)
func (s *Service) LatestVerdict(isin, standardCode string) (*ComplianceVerdict, error) {
	return s.verdicts.GetLatest(isin, standardCode)
}

// VerdictHistory returns all verdict generations for a security
func (s *Service) VerdictHistory(isin, standardCode string) ([]ComplianceVerdict, error) {
	return s.verdicts.History(isin, standardCode)
}

func (s *Service) persistVerdict(v *ComplianceVerdict) (*ComplianceVerdict, error) {
	supersededID, err := s.verdicts.Insert(v)
	if err != nil {
		return nil, err
	}

	s.recordAudit(domain.AuditEntityVerdict, v.ID, domain.AuditVerdictCreated, domain.SystemActor, nil, v)

	s.eventMgr.EmitTyped(events.VerdictCreated, "screening", &events.VerdictCreatedData{
		VerdictID:       v.ID,
		ISIN:            v.ISIN,
		StandardCode:    v.StandardCode,
		StandardVersion: v.StandardVersion,
		Status:          string(v.Status),
		Score:           v.Score,
	})

	if supersededID != "" {
		s.eventMgr.EmitTyped(events.VerdictSuperseded, "screening", &events.VerdictSupersededData{
			PriorVerdictID: supersededID,
			NewVerdictID:   v.ID,
			ISIN:           v.ISIN,
			StandardCode:   v.StandardCode,
		})
	}

	s.log.Info().
		Str("isin", v.ISIN).
		Str("standard", v.StandardCode).
		Str("status", string(v.Status)).
		Float64("score", v.Score).
		Msg("Verdict recorded")

	return v, nil
}

func (s *Service) recordAudit(entityType, entityID, action, actor string, before, after interface{}) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Record(entityType, entityID, action, actor, before, after); err != nil {
		s.log.Error().Err(err).Str("entity", entityID).Str("action", action).Msg("Failed to write audit entry")
	}
}
