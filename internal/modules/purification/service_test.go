package purification

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amanahlabs/tazkiyah/internal/domain"
	"github.com/amanahlabs/tazkiyah/internal/events"
	"github.com/amanahlabs/tazkiyah/internal/modules/portfolio"
	"github.com/amanahlabs/tazkiyah/internal/modules/screening"
	"github.com/amanahlabs/tazkiyah/internal/modules/standards"
)

func setupLedgerDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
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
		);`)
	require.NoError(t, err)
	return db
}

type stubHoldings struct {
	byID map[string]*portfolio.Holding
}

func (s *stubHoldings) GetByID(id string) (*portfolio.Holding, error) {
	if h, ok := s.byID[id]; ok {
		return h, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubHoldings) ListByISIN(isin string) ([]portfolio.Holding, error) {
	var out []portfolio.Holding
	for _, h := range s.byID {
		if h.ISIN == isin {
			out = append(out, *h)
		}
	}
	return out, nil
}

type stubPortfolios struct {
	p *portfolio.Portfolio
}

func (s *stubPortfolios) GetByID(id string) (*portfolio.Portfolio, error) {
	if s.p != nil && s.p.ID == id {
		return s.p, nil
	}
	return nil, domain.ErrNotFound
}

type stubVerdicts struct {
	verdict *screening.ComplianceVerdict
}

func (s *stubVerdicts) LatestVerdict(isin, standardCode string) (*screening.ComplianceVerdict, error) {
	if s.verdict == nil {
		return nil, domain.ErrNotFound
	}
	return s.verdict, nil
}

type stubStandardGetter struct {
	std *standards.Standard
}

func (s *stubStandardGetter) Get(code string, version int) (*standards.Standard, error) {
	if code != s.std.Code || version != s.std.Version {
		return nil, &domain.InvalidStandardError{Code: code, Version: version}
	}
	return s.std, nil
}

func newTestPurification(t *testing.T, verdict *screening.ComplianceVerdict) (*Service, *stubHoldings) {
	t.Helper()
	db := setupLedgerDB(t)
	log := zerolog.Nop()
	holdings := &stubHoldings{byID: map[string]*portfolio.Holding{
		"hold-1": testHolding(365),
	}}
	svc := NewService(
		NewResultRepository(db, log),
		holdings,
		&stubPortfolios{p: &portfolio.Portfolio{ID: "port-1", PrimaryStandard: standards.CodeAAOIFI}},
		&stubVerdicts{verdict: verdict},
		&stubStandardGetter{std: testStandard()},
		nil,
		events.NewManager(events.NewBus(), log),
		log,
	)
	return svc, holdings
}

func TestComputeForHoldingEndToEnd(t *testing.T) {
	svc, _ := newTestPurification(t, testVerdict(0.032))

	result, err := svc.ComputeForHolding(context.Background(), "hold-1", standards.CodeAAOIFI, evalDate)
	require.NoError(t, err)

	assert.Equal(t, 558.40, result.Total)
	assert.Equal(t, domain.ResultPending, result.Status)

	latest, err := svc.LatestResult("hold-1")
	require.NoError(t, err)
	assert.Equal(t, result.ID, latest.ID)
}

func TestComputeAppendsGenerationsAndMovesPointer(t *testing.T) {
	svc, _ := newTestPurification(t, testVerdict(0.032))
	ctx := context.Background()

	first, err := svc.ComputeForHolding(ctx, "hold-1", standards.CodeAAOIFI, evalDate)
	require.NoError(t, err)
	second, err := svc.ComputeForHolding(ctx, "hold-1", standards.CodeAAOIFI, evalDate.Add(time.Hour))
	require.NoError(t, err)

	latest, err := svc.LatestResult("hold-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	// The prior generation stays in the ledger for audit.
	history, err := svc.ResultHistory("hold-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, first.ID, history[0].ID)
	assert.Equal(t, second.ID, history[1].ID)
}

func TestComputeBlockedSurfacesReason(t *testing.T) {
	verdict := testVerdict(0.032)
	verdict.Status = domain.VerdictReviewNeeded
	verdict.MissingFacts = []string{domain.RatioCashInterestToAssets}
	svc, _ := newTestPurification(t, verdict)

	_, err := svc.ComputeForHolding(context.Background(), "hold-1", standards.CodeAAOIFI, evalDate)
	require.Error(t, err)
	assert.True(t, domain.IsCalculationBlocked(err))

	// Nothing was written: a blocked computation leaves no result.
	_, err = svc.LatestResult("hold-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecomputeForISINSkipsOtherStandards(t *testing.T) {
	svc, _ := newTestPurification(t, testVerdict(0.032))
	ctx := context.Background()

	require.NoError(t, svc.RecomputeForISIN(ctx, "US0378331005", standards.CodeMalaysiaSC))
	_, err := svc.LatestResult("hold-1")
	assert.ErrorIs(t, err, domain.ErrNotFound, "portfolio screens under AAOIFI, not the superseded standard")

	require.NoError(t, svc.RecomputeForISIN(ctx, "US0378331005", standards.CodeAAOIFI))
	latest, err := svc.LatestResult("hold-1")
	require.NoError(t, err)
	assert.Equal(t, 558.40, latest.Total)
}
