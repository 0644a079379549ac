package screening

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/amanahlabs/tazkiyah/internal/domain"
)

// TriggerRepository handles trigger persistence. Triggers are append-
// only; review marking is the single permitted mutation.
type TriggerRepository struct {
	db  *sql.DB // compliance.db
	log zerolog.Logger
}

// NewTriggerRepository creates a new trigger repository
func NewTriggerRepository(db *sql.DB, log zerolog.Logger) *TriggerRepository {
	return &TriggerRepository{
		db:  db,
		log: log.With().Str("repository", "trigger").Logger(),
	}
}

// InsertDedup inserts a trigger unless one already exists for the same
// (isin, type, standard, facts fingerprint). Returns true when the row
// was actually inserted. Re-evaluation of identical facts is a no-op;
// changed facts append a new row and leave history in place.
func (r *TriggerRepository) InsertDedup(t Trigger) (bool, error) {
	res, err := r.db.Exec(`
		INSERT OR IGNORE INTO triggers (id, isin, type, severity, materiality, percent, amount,
			detail, standard_code, standard_version, facts_fingerprint, detected_at, review_status,
			reviewer, resolution_note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '', '')`,
		t.ID, t.ISIN, string(t.Type), string(t.Severity), string(t.Materiality), t.Percent,
		t.Amount, t.Detail, t.StandardCode, t.StandardVersion, t.FactsFingerprint,
		t.DetectedAt.Unix(), string(t.ReviewStatus))
	if err != nil {
		return false, fmt.Errorf("failed to insert trigger for %s: %w", t.ISIN, err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// ListUnreviewed returns all unreviewed triggers for a security under a
// standard; these are the active triggers the classifier scores.
func (r *TriggerRepository) ListUnreviewed(isin, standardCode string) ([]Trigger, error) {
	return r.List(TriggerFilter{ISIN: isin, ReviewStatus: domain.ReviewUnreviewed}, standardCode)
}

// List returns triggers matching the filter, newest first
func (r *TriggerRepository) List(filter TriggerFilter, standardCode string) ([]Trigger, error) {
	query := `SELECT id, isin, type, severity, materiality, percent, amount, detail,
		standard_code, standard_version, facts_fingerprint, detected_at, review_status,
		reviewer, resolution_note FROM triggers`

	var conditions []string
	var args []interface{}
	if filter.ISIN != "" {
		conditions = append(conditions, "isin = ?")
		args = append(args, filter.ISIN)
	}
	if filter.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Severity != "" {
		conditions = append(conditions, "severity = ?")
		args = append(args, string(filter.Severity))
	}
	if filter.ReviewStatus != "" {
		conditions = append(conditions, "review_status = ?")
		args = append(args, string(filter.ReviewStatus))
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "detected_at >= ?")
		args = append(args, filter.Since.Unix())
	}
	if standardCode != "" {
		conditions = append(conditions, "standard_code = ?")
		args = append(args, standardCode)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY detected_at DESC, id DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query triggers: %w", err)
	}
	defer rows.Close()

	var triggers []Trigger
	for rows.Next() {
		t, err := scanTrigger(rows)
		if err != nil {
			return nil, err
		}
		triggers = append(triggers, *t)
	}
	return triggers, rows.Err()
}

// GetByID returns a single trigger
func (r *TriggerRepository) GetByID(id string) (*Trigger, error) {
	rows, err := r.db.Query(`SELECT id, isin, type, severity, materiality, percent, amount,
		detail, standard_code, standard_version, facts_fingerprint, detected_at, review_status,
		reviewer, resolution_note FROM triggers WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query trigger %s: %w", id, err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, domain.ErrNotFound
	}
	return scanTrigger(rows)
}

// MarkReviewed records a human review on a trigger. The trigger row is
// never deleted.
func (r *TriggerRepository) MarkReviewed(id, reviewer, note string) error {
	if reviewer == "" {
		return errors.New("reviewer identity is required")
	}
	res, err := r.db.Exec(`
		UPDATE triggers SET review_status = ?, reviewer = ?, resolution_note = ?
		WHERE id = ? AND review_status = ?`,
		string(domain.ReviewReviewed), reviewer, note, id, string(domain.ReviewUnreviewed))
	if err != nil {
		return fmt.Errorf("failed to mark trigger %s reviewed: %w", id, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		if _, err := r.GetByID(id); err != nil {
			return fmt.Errorf("trigger %s: %w", id, domain.ErrNotFound)
		}
		// Already reviewed; reviewing twice is a no-op
	}
	return nil
}

func scanTrigger(rows *sql.Rows) (*Trigger, error) {
	var t Trigger
	var typ, severity, materiality, reviewStatus string
	var detectedAt int64
	err := rows.Scan(&t.ID, &t.ISIN, &typ, &severity, &materiality, &t.Percent, &t.Amount,
		&t.Detail, &t.StandardCode, &t.StandardVersion, &t.FactsFingerprint, &detectedAt,
		&reviewStatus, &t.Reviewer, &t.ResolutionNote)
	if err != nil {
		return nil, fmt.Errorf("failed to scan trigger: %w", err)
	}
	t.Type = domain.TriggerType(typ)
	t.Severity = domain.TriggerSeverity(severity)
	t.Materiality = domain.Materiality(materiality)
	t.ReviewStatus = domain.ReviewStatus(reviewStatus)
	t.DetectedAt = time.Unix(detectedAt, 0)
	return &t, nil
}
