package screening

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amanahlabs/tazkiyah/internal/domain"
)

func TestPutRejectsBadActivitySum(t *testing.T) {
	db := setupComplianceDB(t)
	repo := NewFactsRepository(db, zerolog.Nop())

	facts := cleanFacts("US0378331005")
	facts.Activities = []ActivityShare{
		{Category: "Retail", Tag: domain.TagHalal, Percent: 90},
		{Category: "Interest income", Tag: domain.TagHaram, Percent: 5},
		// 5% unaccounted for
	}

	_, err := repo.Put(facts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidFacts))

	// Nothing was stored: violation is fatal, not clamped
	_, err = repo.GetLatestForISIN("US0378331005")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestPutAcceptsRoundingEpsilon(t *testing.T) {
	db := setupComplianceDB(t)
	repo := NewFactsRepository(db, zerolog.Nop())

	facts := cleanFacts("US0378331005")
	facts.Activities = []ActivityShare{
		{Category: "Retail", Tag: domain.TagHalal, Percent: 66.67},
		{Category: "Wholesale", Tag: domain.TagHalal, Percent: 33.335},
	}

	stored, err := repo.Put(facts)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)
	assert.NotEmpty(t, stored.Fingerprint)
}

func TestPutRejectsUnknownTag(t *testing.T) {
	db := setupComplianceDB(t)
	repo := NewFactsRepository(db, zerolog.Nop())

	facts := cleanFacts("US0378331005")
	facts.Activities = []ActivityShare{
		{Category: "Retail", Tag: "questionable", Percent: 100},
	}

	_, err := repo.Put(facts)
	assert.True(t, errors.Is(err, ErrInvalidFacts))
}

func TestFingerprintStableUnderOrdering(t *testing.T) {
	a := cleanFacts("US0378331005")
	a.Activities = []ActivityShare{
		{Category: "Retail", Tag: domain.TagHalal, Percent: 60},
		{Category: "Media", Tag: domain.TagDoubtful, Percent: 40},
	}

	b := cleanFacts("US0378331005")
	b.Activities = []ActivityShare{
		{Category: "Media", Tag: domain.TagDoubtful, Percent: 40},
		{Category: "Retail", Tag: domain.TagHalal, Percent: 60},
	}

	assert.Equal(t, Fingerprint(&a), Fingerprint(&b))

	b.Ratios[domain.RatioDebtToAssets] = 0.25
	assert.NotEqual(t, Fingerprint(&a), Fingerprint(&b))
}

func TestGetLatestReturnsNewestRecord(t *testing.T) {
	db := setupComplianceDB(t)
	repo := NewFactsRepository(db, zerolog.Nop())

	first := cleanFacts("US0378331005")
	_, err := repo.Put(first)
	require.NoError(t, err)

	corrected := cleanFacts("US0378331005")
	corrected.Ratios[domain.RatioNonCompliantIncome] = 0.031
	stored, err := repo.Put(corrected)
	require.NoError(t, err)

	latest, err := repo.GetLatest("US0378331005", "2025-Q2")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, latest.ID)
	assert.Equal(t, 0.031, latest.Ratios[domain.RatioNonCompliantIncome])
}
