package standards

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amanahlabs/tazkiyah/internal/domain"
	"github.com/amanahlabs/tazkiyah/internal/events"
)

func setupStandardsDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE standards (
			id TEXT PRIMARY KEY,
			code TEXT NOT NULL,
			version INTEGER NOT NULL,
			rules TEXT NOT NULL,
			income_ratio TEXT NOT NULL,
			income_threshold REAL NOT NULL,
			pro_rating INTEGER NOT NULL DEFAULT 1,
			published_at INTEGER NOT NULL,
			UNIQUE (code, version)
		)`)
	require.NoError(t, err)
	return db
}

func newTestService(t *testing.T) (*Service, *events.Bus) {
	t.Helper()
	db := setupStandardsDB(t)
	bus := events.NewBus()
	mgr := events.NewManager(bus, zerolog.Nop())
	return NewService(NewRepository(db, zerolog.Nop()), mgr, zerolog.Nop()), bus
}

func TestEnsureSeedsIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)

	require.NoError(t, svc.EnsureSeeds())
	require.NoError(t, svc.EnsureSeeds())

	latest, err := svc.Latest(CodeAAOIFI)
	require.NoError(t, err)
	assert.Equal(t, 1, latest.Version)
	assert.True(t, latest.ProRatingApplies)
	assert.Equal(t, domain.RatioNonCompliantIncome, latest.IncomeRatioName)
	assert.Len(t, latest.Rules, 4)
}

func TestPublishCreatesNewVersionNeverMutates(t *testing.T) {
	svc, bus := newTestService(t)
	require.NoError(t, svc.EnsureSeeds())

	var published []*events.Event
	bus.Subscribe(events.StandardPublished, func(e *events.Event) {
		published = append(published, e)
	})

	v1, err := svc.Latest(CodeAAOIFI)
	require.NoError(t, err)

	// Tighten the income threshold in a new version
	next := *v1
	next.Rules = append([]ThresholdRule{}, v1.Rules...)
	for i := range next.Rules {
		if next.Rules[i].RatioName == domain.RatioNonCompliantIncome {
			next.Rules[i].Threshold = 0.03
		}
	}
	next.IncomeThreshold = 0.03

	v2, err := svc.Publish(next)
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)
	require.Len(t, published, 1)

	// The prior version is untouched
	prior, err := svc.Get(CodeAAOIFI, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.05, prior.IncomeThreshold)

	latest, err := svc.Latest(CodeAAOIFI)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)
	assert.Equal(t, 0.03, latest.IncomeThreshold)
}

func TestUnknownStandardIsInvalid(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.EnsureSeeds())

	_, err := svc.Latest("DUBAI_DFM")
	assert.True(t, domain.IsInvalidStandard(err))

	_, err = svc.Get(CodeAAOIFI, 99)
	assert.True(t, domain.IsInvalidStandard(err))
}

func TestThresholdRulePasses(t *testing.T) {
	below := ThresholdRule{RatioName: domain.RatioDebtToAssets, Threshold: 0.30, Direction: DirectionBelow}
	assert.True(t, below.Passes(0.29))
	assert.False(t, below.Passes(0.30)) // strict comparison by default
	assert.False(t, below.Passes(0.31))

	above := ThresholdRule{RatioName: "halalRevenueShare", Threshold: 0.95, Direction: DirectionAbove}
	assert.True(t, above.Passes(0.96))
	assert.False(t, above.Passes(0.95))

	withTolerance := ThresholdRule{RatioName: domain.RatioDebtToAssets, Threshold: 0.30, Direction: DirectionBelow, Tolerance: 0.005}
	assert.True(t, withTolerance.Passes(0.302))
	assert.False(t, withTolerance.Passes(0.31))
}
