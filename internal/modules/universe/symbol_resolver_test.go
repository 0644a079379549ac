package universe

import (
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amanahlabs/tazkiyah/internal/domain"
)

func setupUniverseDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE securities (
			isin TEXT PRIMARY KEY,
			ticker TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			sector TEXT NOT NULL DEFAULT '',
			jurisdiction TEXT NOT NULL DEFAULT '',
			active INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`)
	require.NoError(t, err)
	return db
}

func TestIsISIN(t *testing.T) {
	assert.True(t, IsISIN("US0378331005"))
	assert.True(t, IsISIN("my1234567890"))
	assert.False(t, IsISIN("AAPL"))
	assert.False(t, IsISIN("US03783310"))  // too short
	assert.False(t, IsISIN("US037833100X")) // check digit position must be numeric
}

func TestResolveTickerToISIN(t *testing.T) {
	db := setupUniverseDB(t)
	repo := NewSecurityRepository(db, zerolog.Nop())
	resolver := NewSymbolResolver(repo, zerolog.Nop())

	require.NoError(t, repo.Add(Security{
		ISIN:         "US0378331005",
		Ticker:       "AAPL",
		Name:         "Apple Inc.",
		Sector:       "Technology",
		Jurisdiction: "US",
		Active:       true,
	}))

	isin, err := resolver.Resolve("AAPL")
	require.NoError(t, err)
	assert.Equal(t, "US0378331005", isin)

	// ISIN identifiers resolve to themselves when known
	isin, err = resolver.Resolve("US0378331005")
	require.NoError(t, err)
	assert.Equal(t, "US0378331005", isin)
}

func TestResolveUnknownTicker(t *testing.T) {
	db := setupUniverseDB(t)
	repo := NewSecurityRepository(db, zerolog.Nop())
	resolver := NewSymbolResolver(repo, zerolog.Nop())

	_, err := resolver.Resolve("ZZZZ")
	assert.True(t, errors.Is(err, domain.ErrUnknownTicker))

	// Unknown ISIN is not guessed either
	_, err = resolver.Resolve("US9999999999")
	assert.True(t, errors.Is(err, domain.ErrUnknownTicker))
}

func TestTickerIsMutableAlias(t *testing.T) {
	db := setupUniverseDB(t)
	repo := NewSecurityRepository(db, zerolog.Nop())
	resolver := NewSymbolResolver(repo, zerolog.Nop())

	require.NoError(t, repo.Add(Security{ISIN: "US30303M1027", Ticker: "FB", Active: true}))
	require.NoError(t, repo.UpdateTicker("US30303M1027", "META"))

	isin, err := resolver.Resolve("META")
	require.NoError(t, err)
	assert.Equal(t, "US30303M1027", isin)

	_, err = resolver.Resolve("FB")
	assert.Error(t, err)
}
