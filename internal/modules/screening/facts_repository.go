package screening

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/amanahlabs/tazkiyah/internal/domain"
)

// percentEpsilon is the rounding slack allowed on the activity-share sum
const percentEpsilon = 0.01

// ErrInvalidFacts marks a facts record rejected at ingestion. Violations
// are fatal, never silently clamped.
var ErrInvalidFacts = errors.New("invalid financial facts")

// FactsRepository stores ingested FinancialFacts records. Append-only:
// a correction is a new record for the same (isin, period).
type FactsRepository struct {
	db  *sql.DB // compliance.db
	log zerolog.Logger
}

// NewFactsRepository creates a new facts repository
func NewFactsRepository(db *sql.DB, log zerolog.Logger) *FactsRepository {
	return &FactsRepository{
		db:  db,
		log: log.With().Str("repository", "facts").Logger(),
	}
}

// Put validates and appends a facts record, assigning its ID and
// fingerprint.
func (r *FactsRepository) Put(facts FinancialFacts) (*FinancialFacts, error) {
	if err := Validate(&facts); err != nil {
		return nil, err
	}

	facts.ID = uuid.New().String()
	facts.Fingerprint = Fingerprint(&facts)
	facts.CreatedAt = time.Now()

	activitiesJSON, err := json.Marshal(facts.Activities)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal activities: %w", err)
	}
	ratiosJSON, err := json.Marshal(facts.Ratios)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ratios: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO financial_facts (id, isin, period, revenue, activities, ratios,
			source_document, source_reference, confidence, fingerprint, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		facts.ID, facts.ISIN, facts.Period, facts.Revenue, string(activitiesJSON), string(ratiosJSON),
		facts.Source.Document, facts.Source.Reference, facts.Confidence, facts.Fingerprint,
		facts.CreatedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to insert facts for %s %s: %w", facts.ISIN, facts.Period, err)
	}

	r.log.Debug().
		Str("isin", facts.ISIN).
		Str("period", facts.Period).
		Str("fingerprint", facts.Fingerprint[:12]).
		Msg("Facts stored")

	return &facts, nil
}

// GetLatest returns the newest facts record for (isin, period)
func (r *FactsRepository) GetLatest(isin, period string) (*FinancialFacts, error) {
	row := r.db.QueryRow(`
		SELECT id, isin, period, revenue, activities, ratios, source_document,
			source_reference, confidence, fingerprint, created_at
		FROM financial_facts
		WHERE isin = ? AND period = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`, isin, period)
	return scanFacts(row)
}

// GetLatestForISIN returns the newest facts record for a security across
// all reporting periods.
func (r *FactsRepository) GetLatestForISIN(isin string) (*FinancialFacts, error) {
	row := r.db.QueryRow(`
		SELECT id, isin, period, revenue, activities, ratios, source_document,
			source_reference, confidence, fingerprint, created_at
		FROM financial_facts
		WHERE isin = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`, isin)
	return scanFacts(row)
}

func scanFacts(row *sql.Row) (*FinancialFacts, error) {
	var facts FinancialFacts
	var activitiesJSON, ratiosJSON string
	var createdAt int64
	err := row.Scan(&facts.ID, &facts.ISIN, &facts.Period, &facts.Revenue, &activitiesJSON,
		&ratiosJSON, &facts.Source.Document, &facts.Source.Reference, &facts.Confidence,
		&facts.Fingerprint, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan facts: %w", err)
	}
	if err := json.Unmarshal([]byte(activitiesJSON), &facts.Activities); err != nil {
		return nil, fmt.Errorf("failed to unmarshal activities: %w", err)
	}
	if err := json.Unmarshal([]byte(ratiosJSON), &facts.Ratios); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ratios: %w", err)
	}
	facts.CreatedAt = time.Unix(0, createdAt)
	return &facts, nil
}

// Validate enforces the ingestion invariants: a real ISIN-keyed record
// with activity percentages summing to 100 within rounding epsilon and
// known tags. Failures are fatal ingestion errors.
func Validate(facts *FinancialFacts) error {
	if facts.ISIN == "" {
		return fmt.Errorf("%w: missing isin", ErrInvalidFacts)
	}
	if facts.Period == "" {
		return fmt.Errorf("%w: missing reporting period", ErrInvalidFacts)
	}
	if facts.Confidence < 0 || facts.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidFacts, facts.Confidence)
	}
	if len(facts.Activities) == 0 {
		return fmt.Errorf("%w: no business-activity breakdown", ErrInvalidFacts)
	}

	var sum float64
	for _, a := range facts.Activities {
		if !a.Tag.Valid() {
			return fmt.Errorf("%w: unknown activity tag %q for category %q", ErrInvalidFacts, a.Tag, a.Category)
		}
		if a.Percent < 0 {
			return fmt.Errorf("%w: negative percentage for category %q", ErrInvalidFacts, a.Category)
		}
		sum += a.Percent
	}
	if math.Abs(sum-100) > percentEpsilon {
		return fmt.Errorf("%w: activity percentages sum to %.4f, expected 100", ErrInvalidFacts, sum)
	}

	return nil
}

// Fingerprint computes a stable sha256 over the canonical facts payload.
// Identical facts always fingerprint identically regardless of map
// iteration or activity order.
func Fingerprint(facts *FinancialFacts) string {
	activities := make([]ActivityShare, len(facts.Activities))
	copy(activities, facts.Activities)
	sort.Slice(activities, func(i, j int) bool { return activities[i].Category < activities[j].Category })

	ratioNames := make([]string, 0, len(facts.Ratios))
	for name := range facts.Ratios {
		ratioNames = append(ratioNames, name)
	}
	sort.Strings(ratioNames)

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%.6f\n", facts.ISIN, facts.Period, facts.Revenue)
	for _, a := range activities {
		fmt.Fprintf(h, "a:%s|%s|%.6f\n", a.Category, a.Tag, a.Percent)
	}
	for _, name := range ratioNames {
		fmt.Fprintf(h, "r:%s|%.6f\n", name, facts.Ratios[name])
	}
	return hex.EncodeToString(h.Sum(nil))
}
