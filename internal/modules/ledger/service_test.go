package ledger

import (
	"database/sql"
	"sync"
	"testing"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amanahlabs/tazkiyah/internal/domain"
	"github.com/amanahlabs/tazkiyah/internal/events"
	"github.com/amanahlabs/tazkiyah/internal/modules/purification"
)

func setupLedgerDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// A single connection keeps the in-memory database shared across
	// goroutines in the race tests.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE purification_results (
			id TEXT PRIMARY KEY,
			holding_id TEXT NOT NULL,
			standard_code TEXT NOT NULL,
			standard_version INTEGER NOT NULL,
			verdict_id TEXT NOT NULL,
			dividend_purification REAL NOT NULL,
			capital_gain_purification REAL NOT NULL,
			total REAL NOT NULL,
			pro_rating_factor REAL NOT NULL,
			non_compliant_ratio REAL NOT NULL,
			methodology TEXT NOT NULL,
			computed_at INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			has_override INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE latest_result_pointer (
			holding_id TEXT PRIMARY KEY,
			result_id TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE TABLE overrides (
			id TEXT PRIMARY KEY,
			result_id TEXT NOT NULL UNIQUE,
			new_value REAL NOT NULL,
			reason TEXT NOT NULL,
			author TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE TABLE audit_entries (
			id TEXT PRIMARY KEY,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			action TEXT NOT NULL,
			actor TEXT NOT NULL,
			before_snapshot BLOB,
			after_snapshot BLOB,
			created_at INTEGER NOT NULL
		);`)
	require.NoError(t, err)
	return db
}

func newTestLedger(t *testing.T) (*Service, *purification.ResultRepository) {
	t.Helper()
	db := setupLedgerDB(t)
	log := zerolog.Nop()
	results := purification.NewResultRepository(db, log)
	svc := NewService(
		NewAuditRepository(db, log),
		NewOverrideRepository(db, log),
		results,
		events.NewManager(events.NewBus(), log),
		log,
	)
	return svc, results
}

func insertResult(t *testing.T, results *purification.ResultRepository, holdingID string, total float64) *purification.PurificationResult {
	t.Helper()
	result := &purification.PurificationResult{
		HoldingID:               holdingID,
		StandardCode:            "AAOIFI",
		StandardVersion:         1,
		VerdictID:               "verdict-1",
		DividendPurification:    total,
		CapitalGainPurification: 0,
		Total:                   total,
		ProRatingFactor:         1,
		NonCompliantRatio:       0.032,
		Methodology:             "AAOIFI v1",
	}
	require.NoError(t, results.Insert(result))
	return result
}

func TestApplyOverridePreservesHistory(t *testing.T) {
	svc, results := newTestLedger(t)
	result := insertResult(t, results, "hold-1", 558.40)

	// The computed result was journaled when it was produced.
	require.NoError(t, svc.Record(domain.AuditEntityResult, result.ID,
		domain.AuditPurificationComputed, domain.SystemActor, nil, result))

	override, err := svc.ApplyOverride(result.ID, 600.00, "board-approved conservative figure", "analyst@amanah")
	require.NoError(t, err)
	assert.Equal(t, 600.00, override.NewValue)

	// The computed value is untouched in storage.
	stored, err := results.GetByID(result.ID)
	require.NoError(t, err)
	assert.Equal(t, 558.40, stored.Total)
	assert.True(t, stored.HasOverride)

	trail, err := svc.GetAuditTrail(result.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, domain.AuditPurificationComputed, trail[0].Action)
	assert.Equal(t, domain.AuditOverrideApplied, trail[1].Action)

	// Both the computed result and the override round-trip out of the
	// journal snapshots.
	var snapBefore purification.PurificationResult
	require.NoError(t, DecodeSnapshot(trail[1].Before, &snapBefore))
	assert.Equal(t, 558.40, snapBefore.Total)
	var snapAfter Override
	require.NoError(t, DecodeSnapshot(trail[1].After, &snapAfter))
	assert.Equal(t, 600.00, snapAfter.NewValue)
}

func TestApplyOverrideStaleResult(t *testing.T) {
	svc, results := newTestLedger(t)
	old := insertResult(t, results, "hold-1", 558.40)
	latest := insertResult(t, results, "hold-1", 612.00)

	_, err := svc.ApplyOverride(old.ID, 600.00, "late correction", "analyst@amanah")
	require.Error(t, err)
	assert.True(t, domain.IsStaleResult(err))

	var stale *domain.StaleResultError
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, old.ID, stale.ResultID)
	assert.Equal(t, latest.ID, stale.LatestID)
}

func TestApplyOverrideConcurrentRace(t *testing.T) {
	svc, results := newTestLedger(t)
	result := insertResult(t, results, "hold-1", 558.40)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.ApplyOverride(result.ID, 600.00+float64(i), "race entry", "analyst@amanah")
		}(i)
	}
	wg.Wait()

	var succeeded, stale int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case domain.IsStaleResult(err):
			stale++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, stale)
}

func TestApplyOverrideRequiresReason(t *testing.T) {
	svc, results := newTestLedger(t)
	result := insertResult(t, results, "hold-1", 558.40)

	_, err := svc.ApplyOverride(result.ID, 600.00, "", "analyst@amanah")
	require.Error(t, err)
}

func TestApproveTransitionsPendingResult(t *testing.T) {
	svc, results := newTestLedger(t)
	result := insertResult(t, results, "hold-1", 558.40)

	approved, err := svc.Approve(result.ID, "sharia-board@amanah")
	require.NoError(t, err)
	assert.Equal(t, domain.ResultApproved, approved.Status)

	stored, err := results.GetByID(result.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultApproved, stored.Status)
}

func TestApproveIdempotentButAudited(t *testing.T) {
	svc, results := newTestLedger(t)
	result := insertResult(t, results, "hold-1", 558.40)

	_, err := svc.Approve(result.ID, "sharia-board@amanah")
	require.NoError(t, err)
	_, err = svc.Approve(result.ID, "sharia-board@amanah")
	require.NoError(t, err, "re-approval is a no-op, not an error")

	trail, err := svc.GetAuditTrail(result.ID)
	require.NoError(t, err)
	approvals := 0
	for _, entry := range trail {
		if entry.Action == domain.AuditApprovalGranted {
			approvals++
		}
	}
	assert.Equal(t, 2, approvals, "every approval attempt is journaled")
}
