package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/amanahlabs/tazkiyah/internal/database"
	"github.com/amanahlabs/tazkiyah/internal/domain"
)

// OverrideRepository writes overrides with an optimistic staleness
// check. Writes serialize per result through the UNIQUE(result_id)
// constraint, so unrelated holdings never contend.
type OverrideRepository struct {
	db  *sql.DB // ledger.db
	log zerolog.Logger
}

// NewOverrideRepository creates a new override repository
func NewOverrideRepository(db *sql.DB, log zerolog.Logger) *OverrideRepository {
	return &OverrideRepository{
		db:  db,
		log: log.With().Str("repository", "override").Logger(),
	}
}

// Apply validates that resultID is still the latest result for its
// holding and writes the override in the same transaction. Returns
// StaleResultError when a newer result exists or when another override
// already won the race for this result.
func (r *OverrideRepository) Apply(resultID string, newValue float64, reason, author string) (*Override, error) {
	override := &Override{
		ID:        uuid.New().String(),
		ResultID:  resultID,
		NewValue:  newValue,
		Reason:    reason,
		Author:    author,
		CreatedAt: time.Now(),
	}

	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		var holdingID string
		err := tx.QueryRow(`SELECT holding_id FROM purification_results WHERE id = ?`, resultID).
			Scan(&holdingID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("result %s: %w", resultID, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load result %s: %w", resultID, err)
		}

		var latestID string
		err = tx.QueryRow(`SELECT result_id FROM latest_result_pointer WHERE holding_id = ?`, holdingID).
			Scan(&latestID)
		if err != nil {
			return fmt.Errorf("failed to read latest result pointer: %w", err)
		}
		if latestID != resultID {
			return &domain.StaleResultError{ResultID: resultID, LatestID: latestID}
		}

		_, err = tx.Exec(`
			INSERT INTO overrides (id, result_id, new_value, reason, author, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			override.ID, override.ResultID, override.NewValue, override.Reason,
			override.Author, override.CreatedAt.UnixNano())
		if err != nil {
			// The UNIQUE(result_id) constraint is the serialization
			// point for concurrent overrides: the loser lands here.
			if strings.Contains(err.Error(), "UNIQUE") {
				return &domain.StaleResultError{ResultID: resultID, LatestID: resultID}
			}
			return fmt.Errorf("failed to insert override: %w", err)
		}

		_, err = tx.Exec(`UPDATE purification_results SET has_override = 1 WHERE id = ?`, resultID)
		if err != nil {
			return fmt.Errorf("failed to flag result override: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return override, nil
}

// GetForResult returns the override for a result, if one exists
func (r *OverrideRepository) GetForResult(resultID string) (*Override, error) {
	row := r.db.QueryRow(`
		SELECT id, result_id, new_value, reason, author, created_at
		FROM overrides WHERE result_id = ?`, resultID)

	var o Override
	var createdAt int64
	err := row.Scan(&o.ID, &o.ResultID, &o.NewValue, &o.Reason, &o.Author, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan override: %w", err)
	}
	o.CreatedAt = time.Unix(0, createdAt)
	return &o, nil
}

// ListForHolding returns every override across the holding's result
// generations, oldest first.
func (r *OverrideRepository) ListForHolding(holdingID string) ([]Override, error) {
	rows, err := r.db.Query(`
		SELECT o.id, o.result_id, o.new_value, o.reason, o.author, o.created_at
		FROM overrides o
		JOIN purification_results pr ON pr.id = o.result_id
		WHERE pr.holding_id = ?
		ORDER BY o.created_at ASC`, holdingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list overrides for holding %s: %w", holdingID, err)
	}
	defer rows.Close()

	var overrides []Override
	for rows.Next() {
		var o Override
		var createdAt int64
		if err := rows.Scan(&o.ID, &o.ResultID, &o.NewValue, &o.Reason, &o.Author, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		o.CreatedAt = time.Unix(0, createdAt)
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}
