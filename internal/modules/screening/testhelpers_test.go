package screening

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/amanahlabs/tazkiyah/internal/domain"
	"github.com/amanahlabs/tazkiyah/internal/events"
	"github.com/amanahlabs/tazkiyah/internal/modules/standards"
)

func setupComplianceDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE financial_facts (
			id TEXT PRIMARY KEY,
			isin TEXT NOT NULL,
			period TEXT NOT NULL,
			revenue REAL NOT NULL DEFAULT 0,
			activities TEXT NOT NULL,
			ratios TEXT NOT NULL,
			source_document TEXT NOT NULL DEFAULT '',
			source_reference TEXT NOT NULL DEFAULT '',
			confidence REAL NOT NULL DEFAULT 1.0,
			fingerprint TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE TABLE verdicts (
			id TEXT PRIMARY KEY,
			isin TEXT NOT NULL,
			standard_code TEXT NOT NULL,
			standard_version INTEGER NOT NULL,
			status TEXT NOT NULL,
			score REAL NOT NULL,
			ratio_results TEXT NOT NULL,
			trigger_ids TEXT NOT NULL,
			missing_facts TEXT NOT NULL DEFAULT '[]',
			confidence REAL NOT NULL DEFAULT 1.0,
			facts_id TEXT NOT NULL,
			evaluated_at INTEGER NOT NULL,
			superseded INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE triggers (
			id TEXT PRIMARY KEY,
			isin TEXT NOT NULL,
			type TEXT NOT NULL,
			severity TEXT NOT NULL,
			materiality TEXT NOT NULL,
			percent REAL NOT NULL DEFAULT 0,
			amount REAL NOT NULL DEFAULT 0,
			detail TEXT NOT NULL DEFAULT '',
			standard_code TEXT NOT NULL,
			standard_version INTEGER NOT NULL,
			facts_fingerprint TEXT NOT NULL,
			detected_at INTEGER NOT NULL,
			review_status TEXT NOT NULL DEFAULT 'unreviewed',
			reviewer TEXT NOT NULL DEFAULT '',
			resolution_note TEXT NOT NULL DEFAULT '',
			UNIQUE (isin, type, standard_code, standard_version, facts_fingerprint)
		);`)
	require.NoError(t, err)
	return db
}

// stubStandards serves a fixed standard for any code
type stubStandards struct {
	std *standards.Standard
}

func (s *stubStandards) Latest(code string) (*standards.Standard, error) {
	if code != s.std.Code {
		return nil, &domain.InvalidStandardError{Code: code}
	}
	return s.std, nil
}

func (s *stubStandards) Get(code string, version int) (*standards.Standard, error) {
	if code != s.std.Code || version != s.std.Version {
		return nil, &domain.InvalidStandardError{Code: code, Version: version}
	}
	return s.std, nil
}

func aaoifiV1() *standards.Standard {
	seeds := standards.SeedStandards()
	std := seeds[0]
	std.Version = 1
	return &std
}

func newTestScreening(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	db := setupComplianceDB(t)
	log := zerolog.Nop()
	bus := events.NewBus()
	svc := NewService(
		NewFactsRepository(db, log),
		NewTriggerRepository(db, log),
		NewVerdictRepository(db, log),
		&stubStandards{std: aaoifiV1()},
		nil, // no auditor in unit tests
		events.NewManager(bus, log),
		log,
	)
	return svc, db
}

// cleanFacts returns a fully compliant facts record
func cleanFacts(isin string) FinancialFacts {
	return FinancialFacts{
		ISIN:    isin,
		Period:  "2025-Q2",
		Revenue: 1_000_000,
		Activities: []ActivityShare{
			{Category: "Retail", Tag: domain.TagHalal, Percent: 100},
		},
		Ratios: map[string]float64{
			domain.RatioDebtToAssets:         0.20,
			domain.RatioCashInterestToAssets: 0.10,
			domain.RatioReceivablesToAssets:  0.40,
			domain.RatioNonCompliantIncome:   0.02,
		},
		Source:     domain.Citation{Document: "FY2025 annual report", Reference: "p.41"},
		Confidence: 0.95,
	}
}
