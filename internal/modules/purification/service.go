package purification

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/amanahlabs/tazkiyah/internal/domain"
	"github.com/amanahlabs/tazkiyah/internal/events"
	"github.com/amanahlabs/tazkiyah/internal/modules/portfolio"
	"github.com/amanahlabs/tazkiyah/internal/modules/screening"
	"github.com/amanahlabs/tazkiyah/internal/modules/standards"
)

// HoldingProvider is the contract the purification service needs from
// the portfolio module.
type HoldingProvider interface {
	GetByID(id string) (*portfolio.Holding, error)
	ListByISIN(isin string) ([]portfolio.Holding, error)
}

// PortfolioProvider resolves a holding's portfolio so its screening
// methodology can be determined.
type PortfolioProvider interface {
	GetByID(id string) (*portfolio.Portfolio, error)
}

// VerdictProvider supplies the current verdict for a security
type VerdictProvider interface {
	LatestVerdict(isin, standardCode string) (*screening.ComplianceVerdict, error)
}

// StandardsProvider resolves pinned standard versions
type StandardsProvider interface {
	Get(code string, version int) (*standards.Standard, error)
}

// Service runs the purification calculator against the ledger: each
// computation appends a result and moves the latest pointer.
type Service struct {
	results    *ResultRepository
	holdings   HoldingProvider
	portfolios PortfolioProvider
	verdicts   VerdictProvider
	standards  StandardsProvider
	auditor    domain.AuditRecorder
	eventMgr   *events.Manager
	log        zerolog.Logger
}

// NewService creates a new purification service
func NewService(
	results *ResultRepository,
	holdings HoldingProvider,
	portfolios PortfolioProvider,
	verdicts VerdictProvider,
	standardsProvider StandardsProvider,
	auditor domain.AuditRecorder,
	eventMgr *events.Manager,
	log zerolog.Logger,
) *Service {
	return &Service{
		results:    results,
		holdings:   holdings,
		portfolios: portfolios,
		verdicts:   verdicts,
		standards:  standardsProvider,
		auditor:    auditor,
		eventMgr:   eventMgr,
		log:        log.With().Str("service", "purification").Logger(),
	}
}

// ComputeForHolding computes and records a purification result for one
// holding against its security's current verdict under the given
// standard. A CalculationBlocked error propagates to the caller, who
// surfaces the holding as pending with the blocking reason.
func (s *Service) ComputeForHolding(ctx context.Context, holdingID, standardCode string, evalDate time.Time) (*PurificationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	holding, err := s.holdings.GetByID(holdingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load holding %s: %w", holdingID, err)
	}

	verdict, err := s.verdicts.LatestVerdict(holding.ISIN, standardCode)
	if err != nil {
		return nil, fmt.Errorf("no verdict for %s under %s: %w", holding.ISIN, standardCode, err)
	}

	std, err := s.standards.Get(verdict.StandardCode, verdict.StandardVersion)
	if err != nil {
		return nil, err
	}

	result, err := Calculate(holding, verdict, std, evalDate)
	if err != nil {
		return nil, err
	}

	if err := s.results.Insert(result); err != nil {
		return nil, err
	}

	s.recordAudit(result)
	s.eventMgr.EmitTyped(events.PurificationComputed, "purification", &events.PurificationComputedData{
		ResultID:  result.ID,
		HoldingID: result.HoldingID,
		Total:     result.Total,
		Status:    string(result.Status),
	})

	s.log.Info().
		Str("holding_id", result.HoldingID).
		Str("methodology", result.Methodology).
		Float64("total", result.Total).
		Msg("Purification computed")

	return result, nil
}

// RecomputeForISIN reruns purification for every holding of a security
// whose portfolio screens under the given standard. Called when a
// verdict is superseded; prior results stay in the ledger.
func (s *Service) RecomputeForISIN(ctx context.Context, isin, standardCode string) error {
	holdings, err := s.holdings.ListByISIN(isin)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, h := range holdings {
		if err := ctx.Err(); err != nil {
			return err
		}

		p, err := s.portfolios.GetByID(h.PortfolioID)
		if err != nil {
			s.log.Error().Err(err).Str("holding_id", h.ID).Msg("Failed to resolve portfolio for recompute")
			continue
		}
		if p.PrimaryStandard != standardCode && p.OverlayStandard != standardCode {
			continue
		}

		if _, err := s.ComputeForHolding(ctx, h.ID, standardCode, now); err != nil {
			if domain.IsCalculationBlocked(err) {
				s.log.Warn().Err(err).Str("holding_id", h.ID).Msg("Purification blocked during recompute")
				continue
			}
			return err
		}
	}
	return nil
}

// LatestResult returns the current result for a holding
func (s *Service) LatestResult(holdingID string) (*PurificationResult, error) {
	return s.results.GetLatest(holdingID)
}

// ResultHistory returns every result generation for a holding
func (s *Service) ResultHistory(holdingID string) ([]PurificationResult, error) {
	return s.results.History(holdingID)
}

// LatestHoldingResult adapts the latest result into the narrow view the
// portfolio aggregate reads
func (s *Service) LatestHoldingResult(holdingID string) (*portfolio.HoldingResult, error) {
	result, err := s.results.GetLatest(holdingID)
	if err != nil {
		return nil, err
	}
	return &portfolio.HoldingResult{
		ID:          result.ID,
		Total:       result.Total,
		Status:      result.Status,
		HasOverride: result.HasOverride,
	}, nil
}

func (s *Service) recordAudit(result *PurificationResult) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Record(domain.AuditEntityResult, result.ID,
		domain.AuditPurificationComputed, domain.SystemActor, nil, result)
	if err != nil {
		s.log.Error().Err(err).Str("result_id", result.ID).Msg("Failed to write audit entry")
	}
}
