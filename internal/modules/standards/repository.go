package standards

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/amanahlabs/tazkiyah/internal/domain"
)

// Repository handles standards registry database operations.
// The standards table is append-only: Insert is the only write.
type Repository struct {
	db  *sql.DB // universe.db
	log zerolog.Logger
}

// NewRepository creates a new standards repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "standards").Logger(),
	}
}

// Insert stores a new standard version. The UNIQUE(code, version)
// constraint rejects republication of an existing version.
func (r *Repository) Insert(std *Standard) error {
	if std.ID == "" {
		std.ID = uuid.New().String()
	}
	if std.PublishedAt.IsZero() {
		std.PublishedAt = time.Now()
	}

	rulesJSON, err := json.Marshal(std.Rules)
	if err != nil {
		return fmt.Errorf("failed to marshal rules for %s v%d: %w", std.Code, std.Version, err)
	}

	_, err = r.db.Exec(`
		INSERT INTO standards (id, code, version, rules, income_ratio, income_threshold, pro_rating, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		std.ID, std.Code, std.Version, string(rulesJSON), std.IncomeRatioName,
		std.IncomeThreshold, boolToInt(std.ProRatingApplies), std.PublishedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert standard %s v%d: %w", std.Code, std.Version, err)
	}
	return nil
}

// Get returns a specific standard version
func (r *Repository) Get(code string, version int) (*Standard, error) {
	row := r.db.QueryRow(`
		SELECT id, code, version, rules, income_ratio, income_threshold, pro_rating, published_at
		FROM standards WHERE code = ? AND version = ?`, code, version)
	std, err := r.scanStandard(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, &domain.InvalidStandardError{Code: code, Version: version}
	}
	return std, err
}

// Latest returns the highest published version for a code
func (r *Repository) Latest(code string) (*Standard, error) {
	row := r.db.QueryRow(`
		SELECT id, code, version, rules, income_ratio, income_threshold, pro_rating, published_at
		FROM standards WHERE code = ? ORDER BY version DESC LIMIT 1`, code)
	std, err := r.scanStandard(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, &domain.InvalidStandardError{Code: code}
	}
	return std, err
}

// ListLatest returns the latest version of every published standard code
func (r *Repository) ListLatest() ([]Standard, error) {
	rows, err := r.db.Query(`
		SELECT s.id, s.code, s.version, s.rules, s.income_ratio, s.income_threshold, s.pro_rating, s.published_at
		FROM standards s
		INNER JOIN (SELECT code, MAX(version) AS version FROM standards GROUP BY code) latest
			ON s.code = latest.code AND s.version = latest.version
		ORDER BY s.code`)
	if err != nil {
		return nil, fmt.Errorf("failed to query standards: %w", err)
	}
	defer rows.Close()

	var result []Standard
	for rows.Next() {
		std, err := r.scanStandardRows(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *std)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *Repository) scanStandard(row *sql.Row) (*Standard, error) {
	std, err := scanStandardFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return std, err
}

func (r *Repository) scanStandardRows(rows *sql.Rows) (*Standard, error) {
	return scanStandardFrom(rows)
}

func scanStandardFrom(s rowScanner) (*Standard, error) {
	var std Standard
	var rulesJSON string
	var proRating int
	var publishedAt int64
	err := s.Scan(&std.ID, &std.Code, &std.Version, &rulesJSON, &std.IncomeRatioName,
		&std.IncomeThreshold, &proRating, &publishedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(rulesJSON), &std.Rules); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rules for %s v%d: %w", std.Code, std.Version, err)
	}
	std.ProRatingApplies = proRating != 0
	std.PublishedAt = time.Unix(publishedAt, 0)
	return &std, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
