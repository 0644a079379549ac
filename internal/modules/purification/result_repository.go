package purification

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/amanahlabs/tazkiyah/internal/database"
	"github.com/amanahlabs/tazkiyah/internal/domain"
)

// ResultRepository handles purification result database operations.
// Results are append-only; the latest-result pointer moves in the same
// transaction as each insert so readers never see a half-written
// generation.
type ResultRepository struct {
	db  *sql.DB // ledger.db
	log zerolog.Logger
}

// NewResultRepository creates a new result repository
func NewResultRepository(db *sql.DB, log zerolog.Logger) *ResultRepository {
	return &ResultRepository{
		db:  db,
		log: log.With().Str("repository", "purification_result").Logger(),
	}
}

const resultSelect = `
	SELECT id, holding_id, standard_code, standard_version, verdict_id,
	       dividend_purification, capital_gain_purification, total,
	       pro_rating_factor, non_compliant_ratio, methodology,
	       computed_at, status, has_override
	FROM purification_results`

// Insert appends a result and moves the holding's latest-result pointer
func (r *ResultRepository) Insert(result *PurificationResult) error {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	if result.Status == "" {
		result.Status = domain.ResultPending
	}
	if result.ComputedAt.IsZero() {
		result.ComputedAt = time.Now()
	}

	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO purification_results (id, holding_id, standard_code, standard_version,
				verdict_id, dividend_purification, capital_gain_purification, total,
				pro_rating_factor, non_compliant_ratio, methodology, computed_at, status, has_override)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
			result.ID, result.HoldingID, result.StandardCode, result.StandardVersion,
			result.VerdictID, result.DividendPurification, result.CapitalGainPurification,
			result.Total, result.ProRatingFactor, result.NonCompliantRatio,
			result.Methodology, result.ComputedAt.UnixNano(), string(result.Status))
		if err != nil {
			return fmt.Errorf("failed to insert purification result: %w", err)
		}

		_, err = tx.Exec(`
			INSERT INTO latest_result_pointer (holding_id, result_id, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(holding_id) DO UPDATE SET result_id = excluded.result_id, updated_at = excluded.updated_at`,
			result.HoldingID, result.ID, time.Now().Unix())
		if err != nil {
			return fmt.Errorf("failed to move latest result pointer: %w", err)
		}
		return nil
	})
}

// GetByID returns the result with the given id
func (r *ResultRepository) GetByID(id string) (*PurificationResult, error) {
	return scanResult(r.db.QueryRow(resultSelect+` WHERE id = ?`, id))
}

// GetLatest returns the latest result for a holding via the pointer
func (r *ResultRepository) GetLatest(holdingID string) (*PurificationResult, error) {
	return scanResult(r.db.QueryRow(resultSelect+`
		WHERE id = (SELECT result_id FROM latest_result_pointer WHERE holding_id = ?)`,
		holdingID))
}

// LatestResultID returns the current pointer target for a holding
func (r *ResultRepository) LatestResultID(holdingID string) (string, error) {
	var id string
	err := r.db.QueryRow(`SELECT result_id FROM latest_result_pointer WHERE holding_id = ?`,
		holdingID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read latest result pointer: %w", err)
	}
	return id, nil
}

// History returns every result generation for a holding, oldest first
func (r *ResultRepository) History(holdingID string) ([]PurificationResult, error) {
	rows, err := r.db.Query(resultSelect+` WHERE holding_id = ? ORDER BY computed_at ASC`, holdingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query result history: %w", err)
	}
	defer rows.Close()
	return collectResults(rows)
}

// SetStatus transitions a result's approval status. The caller guards
// which transitions are legal.
func (r *ResultRepository) SetStatus(id string, status domain.ResultStatus) error {
	res, err := r.db.Exec(`UPDATE purification_results SET status = ? WHERE id = ?`,
		string(status), id)
	if err != nil {
		return fmt.Errorf("failed to set result status: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("result %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanResult(row *sql.Row) (*PurificationResult, error) {
	var result PurificationResult
	var computedAt int64
	var status string
	var hasOverride int
	err := row.Scan(&result.ID, &result.HoldingID, &result.StandardCode, &result.StandardVersion,
		&result.VerdictID, &result.DividendPurification, &result.CapitalGainPurification,
		&result.Total, &result.ProRatingFactor, &result.NonCompliantRatio,
		&result.Methodology, &computedAt, &status, &hasOverride)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan purification result: %w", err)
	}
	result.ComputedAt = time.Unix(0, computedAt)
	result.Status = domain.ResultStatus(status)
	result.HasOverride = hasOverride != 0
	return &result, nil
}

func collectResults(rows *sql.Rows) ([]PurificationResult, error) {
	var results []PurificationResult
	for rows.Next() {
		var result PurificationResult
		var computedAt int64
		var status string
		var hasOverride int
		if err := rows.Scan(&result.ID, &result.HoldingID, &result.StandardCode, &result.StandardVersion,
			&result.VerdictID, &result.DividendPurification, &result.CapitalGainPurification,
			&result.Total, &result.ProRatingFactor, &result.NonCompliantRatio,
			&result.Methodology, &computedAt, &status, &hasOverride); err != nil {
			return nil, fmt.Errorf("failed to scan purification result: %w", err)
		}
		result.ComputedAt = time.Unix(0, computedAt)
		result.Status = domain.ResultStatus(status)
		result.HasOverride = hasOverride != 0
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating purification results: %w", err)
	}
	return results, nil
}
