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

// PortfolioRepository handles portfolio database operations
type PortfolioRepository struct {
	db  *sql.DB // portfolio.db
	log zerolog.Logger
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db *sql.DB, log zerolog.Logger) *PortfolioRepository {
	return &PortfolioRepository{
		db:  db,
		log: log.With().Str("repository", "portfolio").Logger(),
	}
}

// Create inserts a new portfolio
func (r *PortfolioRepository) Create(p Portfolio) (*Portfolio, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.Exec(`
		INSERT INTO portfolios (id, name, client, primary_standard, overlay_standard, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Client, p.PrimaryStandard, p.OverlayStandard, now.Unix(), now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to insert portfolio %s: %w", p.Name, err)
	}
	return &p, nil
}

// GetByID returns the portfolio with the given id
func (r *PortfolioRepository) GetByID(id string) (*Portfolio, error) {
	row := r.db.QueryRow(`
		SELECT id, name, client, primary_standard, overlay_standard, created_at, updated_at
		FROM portfolios WHERE id = ?`, id)

	var p Portfolio
	var createdAt, updatedAt int64
	err := row.Scan(&p.ID, &p.Name, &p.Client, &p.PrimaryStandard, &p.OverlayStandard,
		&createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan portfolio: %w", err)
	}
	p.CreatedAt = time.Unix(createdAt, 0)
	p.UpdatedAt = time.Unix(updatedAt, 0)
	return &p, nil
}

// List returns all portfolios
func (r *PortfolioRepository) List() ([]Portfolio, error) {
	rows, err := r.db.Query(`
		SELECT id, name, client, primary_standard, overlay_standard, created_at, updated_at
		FROM portfolios ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	var portfolios []Portfolio
	for rows.Next() {
		var p Portfolio
		var createdAt, updatedAt int64
		if err := rows.Scan(&p.ID, &p.Name, &p.Client, &p.PrimaryStandard, &p.OverlayStandard,
			&createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		p.CreatedAt = time.Unix(createdAt, 0)
		p.UpdatedAt = time.Unix(updatedAt, 0)
		portfolios = append(portfolios, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolios: %w", err)
	}
	return portfolios, nil
}

// SetStandards switches the primary and overlay standards for a
// portfolio. Purification results computed under the old methodology
// stay in the ledger; the caller re-runs evaluation afterwards.
func (r *PortfolioRepository) SetStandards(id, primary, overlay string) error {
	res, err := r.db.Exec(`
		UPDATE portfolios SET primary_standard = ?, overlay_standard = ?, updated_at = ?
		WHERE id = ?`,
		primary, overlay, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update standards for portfolio %s: %w", id, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("portfolio %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
