package universe

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/amanahlabs/tazkiyah/internal/domain"
)

// SecurityRepository handles security database operations
type SecurityRepository struct {
	db  *sql.DB // universe.db
	log zerolog.Logger
}

// NewSecurityRepository creates a new security repository
func NewSecurityRepository(db *sql.DB, log zerolog.Logger) *SecurityRepository {
	return &SecurityRepository{
		db:  db,
		log: log.With().Str("repository", "security").Logger(),
	}
}

// Add inserts a new security
func (r *SecurityRepository) Add(sec Security) error {
	now := time.Now().Unix()
	_, err := r.db.Exec(`
		INSERT INTO securities (isin, ticker, name, sector, jurisdiction, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sec.ISIN, sec.Ticker, sec.Name, sec.Sector, sec.Jurisdiction, boolToInt(sec.Active), now, now)
	if err != nil {
		return fmt.Errorf("failed to insert security %s: %w", sec.ISIN, err)
	}
	return nil
}

// GetByISIN returns the security with the given ISIN
func (r *SecurityRepository) GetByISIN(isin string) (*Security, error) {
	row := r.db.QueryRow(`
		SELECT isin, ticker, name, sector, jurisdiction, active, created_at, updated_at
		FROM securities WHERE isin = ?`, isin)
	return r.scanSecurity(row)
}

// GetByTicker returns the security currently using the given ticker alias
func (r *SecurityRepository) GetByTicker(ticker string) (*Security, error) {
	row := r.db.QueryRow(`
		SELECT isin, ticker, name, sector, jurisdiction, active, created_at, updated_at
		FROM securities WHERE ticker = ?`, ticker)
	return r.scanSecurity(row)
}

// GetAllActive returns all active securities
func (r *SecurityRepository) GetAllActive() ([]Security, error) {
	rows, err := r.db.Query(`
		SELECT isin, ticker, name, sector, jurisdiction, active, created_at, updated_at
		FROM securities WHERE active = 1 ORDER BY isin`)
	if err != nil {
		return nil, fmt.Errorf("failed to query securities: %w", err)
	}
	defer rows.Close()

	var securities []Security
	for rows.Next() {
		var sec Security
		var active int
		var createdAt, updatedAt int64
		if err := rows.Scan(&sec.ISIN, &sec.Ticker, &sec.Name, &sec.Sector,
			&sec.Jurisdiction, &active, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan security: %w", err)
		}
		sec.Active = active != 0
		sec.CreatedAt = time.Unix(createdAt, 0)
		sec.UpdatedAt = time.Unix(updatedAt, 0)
		securities = append(securities, sec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating securities: %w", err)
	}

	return securities, nil
}

// UpdateTicker changes a security's ticker alias. Identity (ISIN) never
// changes.
func (r *SecurityRepository) UpdateTicker(isin, ticker string) error {
	res, err := r.db.Exec(`UPDATE securities SET ticker = ?, updated_at = ? WHERE isin = ?`,
		ticker, time.Now().Unix(), isin)
	if err != nil {
		return fmt.Errorf("failed to update ticker for %s: %w", isin, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("security %s: %w", isin, domain.ErrNotFound)
	}
	return nil
}

// Deactivate marks a security inactive. Historical verdicts and triggers
// are retained; the security just drops out of batch screening.
func (r *SecurityRepository) Deactivate(isin string) error {
	res, err := r.db.Exec(`UPDATE securities SET active = 0, updated_at = ? WHERE isin = ?`,
		time.Now().Unix(), isin)
	if err != nil {
		return fmt.Errorf("failed to deactivate security %s: %w", isin, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("security %s: %w", isin, domain.ErrNotFound)
	}
	return nil
}

func (r *SecurityRepository) scanSecurity(row *sql.Row) (*Security, error) {
	var sec Security
	var active int
	var createdAt, updatedAt int64
	err := row.Scan(&sec.ISIN, &sec.Ticker, &sec.Name, &sec.Sector,
		&sec.Jurisdiction, &active, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan security: %w", err)
	}
	sec.Active = active != 0
	sec.CreatedAt = time.Unix(createdAt, 0)
	sec.UpdatedAt = time.Unix(updatedAt, 0)
	return &sec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
