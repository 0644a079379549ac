package portfolio

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/amanahlabs/tazkiyah/internal/domain"
)

// HoldingRepository handles holding database operations
type HoldingRepository struct {
	db  *sql.DB // portfolio.db
	log zerolog.Logger
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(db *sql.DB, log zerolog.Logger) *HoldingRepository {
	return &HoldingRepository{
		db:  db,
		log: log.With().Str("repository", "holding").Logger(),
	}
}

const holdingSelect = `
	SELECT id, portfolio_id, isin, acquired_at, disposed_at,
	       dividends, capital_gain, market_value, created_at, updated_at
	FROM holdings`

// Add inserts a new holding
func (r *HoldingRepository) Add(h Holding) (*Holding, error) {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	now := time.Now()
	h.CreatedAt = now
	h.UpdatedAt = now

	var disposedAt interface{}
	if h.DisposedAt != nil {
		disposedAt = h.DisposedAt.Unix()
	}

	_, err := r.db.Exec(`
		INSERT INTO holdings (id, portfolio_id, isin, acquired_at, disposed_at,
			dividends, capital_gain, market_value, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.PortfolioID, h.ISIN, h.AcquiredAt.Unix(), disposedAt,
		h.Dividends, h.CapitalGain, h.MarketValue, now.Unix(), now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to insert holding for %s: %w", h.ISIN, err)
	}
	return &h, nil
}

// GetByID returns the holding with the given id
func (r *HoldingRepository) GetByID(id string) (*Holding, error) {
	row := r.db.QueryRow(holdingSelect+` WHERE id = ?`, id)
	return scanHolding(row)
}

// ListByPortfolio returns all holdings in a portfolio
func (r *HoldingRepository) ListByPortfolio(portfolioID string) ([]Holding, error) {
	rows, err := r.db.Query(holdingSelect+` WHERE portfolio_id = ? ORDER BY isin`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()
	return collectHoldings(rows)
}

// ListByISIN returns every holding of a security across portfolios.
// Verdict supersession fans out to these.
func (r *HoldingRepository) ListByISIN(isin string) ([]Holding, error) {
	rows, err := r.db.Query(holdingSelect+` WHERE isin = ?`, isin)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings for %s: %w", isin, err)
	}
	defer rows.Close()
	return collectHoldings(rows)
}

// Dispose closes a holding and records the realized figures
func (r *HoldingRepository) Dispose(id string, disposedAt time.Time, dividends, capitalGain float64) error {
	res, err := r.db.Exec(`
		UPDATE holdings SET disposed_at = ?, dividends = ?, capital_gain = ?, updated_at = ?
		WHERE id = ? AND disposed_at IS NULL`,
		disposedAt.Unix(), dividends, capitalGain, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to dispose holding %s: %w", id, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("open holding %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// UpdateFigures refreshes the cumulative dividend, gain and market
// value figures on an open holding.
func (r *HoldingRepository) UpdateFigures(id string, dividends, capitalGain, marketValue float64) error {
	res, err := r.db.Exec(`
		UPDATE holdings SET dividends = ?, capital_gain = ?, market_value = ?, updated_at = ?
		WHERE id = ?`,
		dividends, capitalGain, marketValue, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update holding %s: %w", id, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("holding %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanHolding(row *sql.Row) (*Holding, error) {
	var h Holding
	var acquiredAt, createdAt, updatedAt int64
	var disposedAt sql.NullInt64
	err := row.Scan(&h.ID, &h.PortfolioID, &h.ISIN, &acquiredAt, &disposedAt,
		&h.Dividends, &h.CapitalGain, &h.MarketValue, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan holding: %w", err)
	}
	hydrateHolding(&h, acquiredAt, disposedAt, createdAt, updatedAt)
	return &h, nil
}

func collectHoldings(rows *sql.Rows) ([]Holding, error) {
	var holdings []Holding
	for rows.Next() {
		var h Holding
		var acquiredAt, createdAt, updatedAt int64
		var disposedAt sql.NullInt64
		if err := rows.Scan(&h.ID, &h.PortfolioID, &h.ISIN, &acquiredAt, &disposedAt,
			&h.Dividends, &h.CapitalGain, &h.MarketValue, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		hydrateHolding(&h, acquiredAt, disposedAt, createdAt, updatedAt)
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}
	return holdings, nil
}

func hydrateHolding(h *Holding, acquiredAt int64, disposedAt sql.NullInt64, createdAt, updatedAt int64) {
	h.AcquiredAt = time.Unix(acquiredAt, 0)
	if disposedAt.Valid {
		ts := time.Unix(disposedAt.Int64, 0)
		h.DisposedAt = &ts
	}
	h.CreatedAt = time.Unix(createdAt, 0)
	h.UpdatedAt = time.Unix(updatedAt, 0)
}
