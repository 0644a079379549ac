package screening

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/amanahlabs/tazkiyah/internal/database"
	"github.com/amanahlabs/tazkiyah/internal/domain"
)

// VerdictRepository handles verdict persistence. Verdicts are append-
// only; inserting a new verdict marks the prior one for the same
// (isin, standard code) superseded in the same transaction.
type VerdictRepository struct {
	db  *sql.DB // compliance.db
	log zerolog.Logger
}

// NewVerdictRepository creates a new verdict repository
func NewVerdictRepository(db *sql.DB, log zerolog.Logger) *VerdictRepository {
	return &VerdictRepository{
		db:  db,
		log: log.With().Str("repository", "verdict").Logger(),
	}
}

// Insert appends a verdict and supersedes the prior one atomically.
// Returns the id of the superseded verdict, if any.
func (r *VerdictRepository) Insert(v *ComplianceVerdict) (supersededID string, err error) {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.EvaluatedAt.IsZero() {
		v.EvaluatedAt = time.Now()
	}

	ratioJSON, err := json.Marshal(v.RatioResults)
	if err != nil {
		return "", fmt.Errorf("failed to marshal ratio results: %w", err)
	}
	triggerJSON, err := json.Marshal(v.TriggerIDs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal trigger ids: %w", err)
	}
	missingJSON, err := json.Marshal(v.MissingFacts)
	if err != nil {
		return "", fmt.Errorf("failed to marshal missing facts: %w", err)
	}

	err = database.WithTransaction(r.db, func(tx *sql.Tx) error {
		row := tx.QueryRow(`
			SELECT id FROM verdicts
			WHERE isin = ? AND standard_code = ? AND superseded = 0
			ORDER BY evaluated_at DESC LIMIT 1`, v.ISIN, v.StandardCode)
		if scanErr := row.Scan(&supersededID); scanErr != nil && !errors.Is(scanErr, sql.ErrNoRows) {
			return fmt.Errorf("failed to find prior verdict: %w", scanErr)
		}

		if supersededID != "" {
			if _, execErr := tx.Exec(`UPDATE verdicts SET superseded = 1 WHERE id = ?`, supersededID); execErr != nil {
				return fmt.Errorf("failed to supersede verdict %s: %w", supersededID, execErr)
			}
		}

		_, execErr := tx.Exec(`
			INSERT INTO verdicts (id, isin, standard_code, standard_version, status, score,
				ratio_results, trigger_ids, missing_facts, confidence, facts_id, evaluated_at, superseded)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
			v.ID, v.ISIN, v.StandardCode, v.StandardVersion, string(v.Status), v.Score,
			string(ratioJSON), string(triggerJSON), string(missingJSON), v.Confidence,
			v.FactsID, v.EvaluatedAt.Unix())
		if execErr != nil {
			return fmt.Errorf("failed to insert verdict: %w", execErr)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return supersededID, nil
}

// GetLatest returns the non-superseded verdict for (isin, standard code)
func (r *VerdictRepository) GetLatest(isin, standardCode string) (*ComplianceVerdict, error) {
	rows, err := r.db.Query(verdictSelect+`
		WHERE isin = ? AND standard_code = ? AND superseded = 0
		ORDER BY evaluated_at DESC LIMIT 1`, isin, standardCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest verdict: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, domain.ErrNotFound
	}
	return scanVerdict(rows)
}

// GetByID returns a verdict by id, superseded or not
func (r *VerdictRepository) GetByID(id string) (*ComplianceVerdict, error) {
	rows, err := r.db.Query(verdictSelect+` WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query verdict %s: %w", id, err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, domain.ErrNotFound
	}
	return scanVerdict(rows)
}

// History returns all verdicts for a security under a standard, newest
// first, including superseded generations.
func (r *VerdictRepository) History(isin, standardCode string) ([]ComplianceVerdict, error) {
	rows, err := r.db.Query(verdictSelect+`
		WHERE isin = ? AND standard_code = ?
		ORDER BY evaluated_at DESC, id DESC`, isin, standardCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query verdict history: %w", err)
	}
	defer rows.Close()

	var verdicts []ComplianceVerdict
	for rows.Next() {
		v, err := scanVerdict(rows)
		if err != nil {
			return nil, err
		}
		verdicts = append(verdicts, *v)
	}
	return verdicts, rows.Err()
}

const verdictSelect = `SELECT id, isin, standard_code, standard_version, status, score,
	ratio_results, trigger_ids, missing_facts, confidence, facts_id, evaluated_at, superseded
	FROM verdicts`

func scanVerdict(rows *sql.Rows) (*ComplianceVerdict, error) {
	var v ComplianceVerdict
	var status, ratioJSON, triggerJSON, missingJSON string
	var evaluatedAt int64
	var superseded int
	err := rows.Scan(&v.ID, &v.ISIN, &v.StandardCode, &v.StandardVersion, &status, &v.Score,
		&ratioJSON, &triggerJSON, &missingJSON, &v.Confidence, &v.FactsID, &evaluatedAt, &superseded)
	if err != nil {
		return nil, fmt.Errorf("failed to scan verdict: %w", err)
	}
	v.Status = domain.VerdictStatus(status)
	if err := json.Unmarshal([]byte(ratioJSON), &v.RatioResults); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ratio results: %w", err)
	}
	if err := json.Unmarshal([]byte(triggerJSON), &v.TriggerIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger ids: %w", err)
	}
	if err := json.Unmarshal([]byte(missingJSON), &v.MissingFacts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal missing facts: %w", err)
	}
	v.EvaluatedAt = time.Unix(evaluatedAt, 0)
	v.Superseded = superseded != 0
	return &v, nil
}
