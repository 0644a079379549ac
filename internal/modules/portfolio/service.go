package portfolio

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/amanahlabs/tazkiyah/internal/domain"
	"github.com/amanahlabs/tazkiyah/internal/modules/screening"
)

// HoldingResult is the slice of a purification result the aggregate
// reads. The full result lives in the ledger; the aggregate only needs
// the effective figures.
type HoldingResult struct {
	ID          string
	Total       float64
	Status      domain.ResultStatus
	HasOverride bool
}

// ResultProvider supplies the latest purification result per holding
type ResultProvider interface {
	LatestHoldingResult(holdingID string) (*HoldingResult, error)
}

// OverrideProvider resolves the override value for a result. The bool
// reports whether an override exists.
type OverrideProvider interface {
	OverrideValue(resultID string) (float64, bool, error)
}

// VerdictProvider supplies the current verdict for a security
type VerdictProvider interface {
	LatestVerdict(isin, standardCode string) (*screening.ComplianceVerdict, error)
}

// Service is the aggregation read model over portfolios: purification
// totals, compliance distribution and the AUM-weighted score. Reads are
// eventually consistent with in-flight recomputation but never see a
// half-written result.
type Service struct {
	portfolios *PortfolioRepository
	holdings   *HoldingRepository
	results    ResultProvider
	overrides  OverrideProvider
	verdicts   VerdictProvider
	log        zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(
	portfolios *PortfolioRepository,
	holdings *HoldingRepository,
	results ResultProvider,
	overrides OverrideProvider,
	verdicts VerdictProvider,
	log zerolog.Logger,
) *Service {
	return &Service{
		portfolios: portfolios,
		holdings:   holdings,
		results:    results,
		overrides:  overrides,
		verdicts:   verdicts,
		log:        log.With().Str("service", "portfolio").Logger(),
	}
}

// CreatePortfolio creates a portfolio under a primary standard
func (s *Service) CreatePortfolio(p Portfolio) (*Portfolio, error) {
	if p.Name == "" || p.PrimaryStandard == "" {
		return nil, fmt.Errorf("portfolio name and primary standard are required")
	}
	return s.portfolios.Create(p)
}

// AddHolding adds a holding to a portfolio
func (s *Service) AddHolding(h Holding) (*Holding, error) {
	if _, err := s.portfolios.GetByID(h.PortfolioID); err != nil {
		return nil, fmt.Errorf("portfolio %s: %w", h.PortfolioID, err)
	}
	if h.ISIN == "" {
		return nil, fmt.Errorf("holding requires an ISIN")
	}
	if h.AcquiredAt.IsZero() {
		return nil, fmt.Errorf("holding requires an acquisition date")
	}
	return s.holdings.Add(h)
}

// GetPortfolio returns a portfolio by id
func (s *Service) GetPortfolio(id string) (*Portfolio, error) {
	return s.portfolios.GetByID(id)
}

// ListPortfolios returns all portfolios
func (s *Service) ListPortfolios() ([]Portfolio, error) {
	return s.portfolios.List()
}

// ListHoldings returns the holdings of a portfolio
func (s *Service) ListHoldings(portfolioID string) ([]Holding, error) {
	return s.holdings.ListByPortfolio(portfolioID)
}

// GetPortfolioSummary builds the aggregation read model for one
// portfolio. Approved and pending purification totals are reported
// separately; a result awaiting review never inflates the approved
// figure. The compliance score is weighted by market value.
func (s *Service) GetPortfolioSummary(portfolioID string) (*PortfolioSummary, error) {
	p, err := s.portfolios.GetByID(portfolioID)
	if err != nil {
		return nil, err
	}
	holdings, err := s.holdings.ListByPortfolio(portfolioID)
	if err != nil {
		return nil, err
	}

	summary := &PortfolioSummary{
		PortfolioID:            portfolioID,
		StandardCode:           p.PrimaryStandard,
		HoldingCount:           len(holdings),
		ComplianceDistribution: make(map[string]int),
		GeneratedAt:            time.Now(),
	}

	var scores, weights []float64
	for _, h := range holdings {
		summary.TotalMarketValue += h.MarketValue

		verdict, err := s.verdicts.LatestVerdict(h.ISIN, p.PrimaryStandard)
		if errors.Is(err, domain.ErrNotFound) {
			summary.ComplianceDistribution["unscreened"]++
		} else if err != nil {
			return nil, err
		} else {
			summary.ComplianceDistribution[string(verdict.Status)]++
			scores = append(scores, verdict.Score)
			weights = append(weights, h.MarketValue)
		}

		value, status, err := s.effectiveValue(h.ID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if status == domain.ResultApproved {
			summary.ApprovedTotal += value
		} else {
			summary.PendingTotal += value
		}
	}

	summary.WeightedScore = weightedScore(scores, weights)
	return summary, nil
}

// effectiveValue returns the value the aggregate should use for a
// holding's latest result: the override value when present, else the
// computed total.
func (s *Service) effectiveValue(holdingID string) (float64, domain.ResultStatus, error) {
	result, err := s.results.LatestHoldingResult(holdingID)
	if err != nil {
		return 0, "", err
	}
	if result.HasOverride {
		value, ok, err := s.overrides.OverrideValue(result.ID)
		if err != nil {
			return 0, "", err
		}
		if ok {
			return value, result.Status, nil
		}
	}
	return result.Total, result.Status, nil
}

func weightedScore(scores, weights []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var totalWeight float64
	for _, w := range weights {
		totalWeight += w
	}
	if totalWeight == 0 {
		// No market values recorded: fall back to the unweighted mean.
		return stat.Mean(scores, nil)
	}
	return stat.Mean(scores, weights)
}
