package purification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amanahlabs/tazkiyah/internal/domain"
	"github.com/amanahlabs/tazkiyah/internal/modules/portfolio"
	"github.com/amanahlabs/tazkiyah/internal/modules/screening"
	"github.com/amanahlabs/tazkiyah/internal/modules/standards"
)

var evalDate = time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)

func testStandard() *standards.Standard {
	seeds := standards.SeedStandards()
	std := seeds[0] // AAOIFI: pro-rating applies
	std.Version = 1
	return &std
}

func testHolding(daysHeld int) *portfolio.Holding {
	return &portfolio.Holding{
		ID:          "hold-1",
		PortfolioID: "port-1",
		ISIN:        "US0378331005",
		AcquiredAt:  evalDate.AddDate(0, 0, -daysHeld),
		Dividends:   2450,
		CapitalGain: 15000,
	}
}

func testVerdict(ratio float64) *screening.ComplianceVerdict {
	return &screening.ComplianceVerdict{
		ID:              "verdict-1",
		ISIN:            "US0378331005",
		StandardCode:    standards.CodeAAOIFI,
		StandardVersion: 1,
		Status:          domain.VerdictCompliant,
		RatioResults: []domain.RatioResult{
			{RatioName: domain.RatioNonCompliantIncome, Observed: ratio, Threshold: 0.05, Passed: ratio < 0.05},
		},
	}
}

func TestCalculateFullYearHolding(t *testing.T) {
	result, err := Calculate(testHolding(365), testVerdict(0.032), testStandard(), evalDate)
	require.NoError(t, err)

	assert.Equal(t, 1.0, result.ProRatingFactor)
	assert.Equal(t, 78.40, result.DividendPurification)
	assert.Equal(t, 480.00, result.CapitalGainPurification)
	assert.Equal(t, 558.40, result.Total)
	assert.Equal(t, domain.ResultPending, result.Status)
	assert.Equal(t, 0.032, result.NonCompliantRatio)
}

func TestProRatingBoundaries(t *testing.T) {
	std := testStandard()

	result, err := Calculate(testHolding(365), testVerdict(0.032), std, evalDate)
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.ProRatingFactor, "exactly 365 days is factor 1.0")

	result, err = Calculate(testHolding(400), testVerdict(0.032), std, evalDate)
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.ProRatingFactor, "longer holdings never scale above 1")

	result, err = Calculate(testHolding(182), testVerdict(0.032), std, evalDate)
	require.NoError(t, err)
	assert.InDelta(t, 0.4986, result.ProRatingFactor, 0.0001)
}

func TestProRatingUsesDisposalDateNotNow(t *testing.T) {
	h := testHolding(600)
	disposed := h.AcquiredAt.AddDate(0, 0, 100)
	h.DisposedAt = &disposed

	result, err := Calculate(h, testVerdict(0.032), testStandard(), evalDate)
	require.NoError(t, err)
	assert.InDelta(t, 100.0/365.0, result.ProRatingFactor, 1e-9)
}

func TestProRatingSkippedWhenStandardSaysSo(t *testing.T) {
	std := testStandard()
	std.ProRatingApplies = false

	result, err := Calculate(testHolding(90), testVerdict(0.032), std, evalDate)
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.ProRatingFactor)
	assert.Equal(t, 558.40, result.Total)
}

func TestCalculateBlockedOnMissingFacts(t *testing.T) {
	verdict := testVerdict(0.032)
	verdict.Status = domain.VerdictReviewNeeded
	verdict.MissingFacts = []string{domain.RatioCashInterestToAssets}

	_, err := Calculate(testHolding(365), verdict, testStandard(), evalDate)
	require.Error(t, err)
	assert.True(t, domain.IsCalculationBlocked(err))
	assert.Contains(t, err.Error(), "missing cash+interest ratio")
}

func TestCalculateBlockedOnUnobservedIncomeRatio(t *testing.T) {
	verdict := testVerdict(0.032)
	verdict.RatioResults = nil

	_, err := Calculate(testHolding(365), verdict, testStandard(), evalDate)
	require.Error(t, err)
	assert.True(t, domain.IsCalculationBlocked(err))
	assert.Contains(t, err.Error(), "missing non-compliant income ratio")
}

func TestCalculateRealizedLossOwesNothingOnGains(t *testing.T) {
	h := testHolding(365)
	h.CapitalGain = -5000

	result, err := Calculate(h, testVerdict(0.032), testStandard(), evalDate)
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.CapitalGainPurification)
	assert.Equal(t, 78.40, result.Total)
}

func TestCalculateRoundsHalfUp(t *testing.T) {
	h := testHolding(365)
	h.Dividends = 105 // 105 x 0.031 = 3.255, exactly half at 2dp
	h.CapitalGain = 0

	result, err := Calculate(h, testVerdict(0.031), testStandard(), evalDate)
	require.NoError(t, err)
	assert.Equal(t, 3.26, result.DividendPurification)
}
