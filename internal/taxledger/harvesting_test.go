package taxledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/tax-aware-backtest/internal/models"
)

func TestParseWashSaleRule(t *testing.T) {
	_, err := ParseWashSaleRule("around_sale")
	require.NoError(t, err)
	_, err = ParseWashSaleRule("30_day_exact")
	require.Error(t, err)
}

func TestHarvestingCandidatesThresholdAndOrder(t *testing.T) {
	l := testLedger()
	deep, err := l.Buy("AAPL", 100, 100, day(2020, time.January, 1))
	require.NoError(t, err)
	shallow, err := l.Buy("MSFT", 100, 100, day(2020, time.January, 1))
	require.NoError(t, err)
	_, err = l.Buy("GOOG", 100, 100, day(2020, time.January, 1))
	require.NoError(t, err)

	prices := map[string]float64{
		"AAPL": 60,  // -4000
		"MSFT": 95,  // -500
		"GOOG": 110, // gain, never a candidate
	}
	asOf := day(2020, time.June, 1)

	candidates := l.HarvestingCandidates(prices, 100, WashSaleAroundSale, 30, asOf)
	require.Len(t, candidates, 2)
	assert.Equal(t, deep.ID, candidates[0].LotID)
	assert.Equal(t, shallow.ID, candidates[1].LotID)
	assert.True(t, candidates[0].TaxBenefit.GreaterThan(candidates[1].TaxBenefit))
	assert.False(t, candidates[0].LongTerm)
	requireDecimal(t, "-4000", candidates[0].UnrealizedLoss)
	// Short-term loss offsets income at the 0.408 effective rate.
	requireDecimal(t, "1632", candidates[0].TaxBenefit)

	// Raising the threshold drops the shallow loss.
	candidates = l.HarvestingCandidates(prices, 1000, WashSaleAroundSale, 30, asOf)
	require.Len(t, candidates, 1)
	assert.Equal(t, deep.ID, candidates[0].LotID)
}

func TestHarvestingSkipsUnpricedTickers(t *testing.T) {
	l := testLedger()
	_, err := l.Buy("AAPL", 100, 100, day(2020, time.January, 1))
	require.NoError(t, err)

	candidates := l.HarvestingCandidates(map[string]float64{}, 100, WashSaleAroundSale, 30, day(2020, time.June, 1))
	assert.Empty(t, candidates)
}

func TestWashSaleRulesDiverge(t *testing.T) {
	l := testLedger()
	// Candidate acquired after the replacement purchase: only the
	// around-sale rule sees the earlier buy as a risk.
	candidate, err := l.Buy("AAPL", 100, 100, day(2020, time.June, 1))
	require.NoError(t, err)
	_, err = l.Buy("AAPL", 100, 100, day(2020, time.May, 25))
	require.NoError(t, err)

	prices := map[string]float64{"AAPL": 50}
	asOf := day(2020, time.June, 10)

	find := func(cands []models.HarvestCandidate, id uuid.UUID) models.HarvestCandidate {
		for _, c := range cands {
			if c.LotID == id {
				return c
			}
		}
		t.Fatalf("lot %s not among candidates", id)
		return models.HarvestCandidate{}
	}

	since := l.HarvestingCandidates(prices, 100, WashSaleSinceAcquisition, 30, asOf)
	assert.False(t, find(since, candidate.ID).WashSaleRisk)

	around := l.HarvestingCandidates(prices, 100, WashSaleAroundSale, 30, asOf)
	assert.True(t, find(around, candidate.ID).WashSaleRisk)
}

func TestWashSaleSinceAcquisitionFlagsRecentRepurchase(t *testing.T) {
	l := testLedger()
	candidate, err := l.Buy("AAPL", 100, 100, day(2020, time.January, 1))
	require.NoError(t, err)
	_, err = l.Buy("AAPL", 50, 60, day(2020, time.May, 20))
	require.NoError(t, err)

	prices := map[string]float64{"AAPL": 50}
	candidates := l.HarvestingCandidates(prices, 100, WashSaleSinceAcquisition, 30, day(2020, time.June, 1))

	for _, c := range candidates {
		if c.LotID == candidate.ID {
			assert.True(t, c.WashSaleRisk)
			return
		}
	}
	t.Fatal("candidate lot not returned")
}

func TestSnapshotAggregates(t *testing.T) {
	l := testLedger()
	_, err := l.Buy("AAPL", 100, 100, day(2019, time.January, 2))
	require.NoError(t, err)
	_, err = l.Buy("MSFT", 100, 200, day(2020, time.May, 1))
	require.NoError(t, err)
	_, err = l.Sell("MSFT", 50, 180, day(2020, time.June, 1), models.MethodFIFO)
	require.NoError(t, err)

	prices := map[string]float64{"AAPL": 150, "MSFT": 190}
	snap := l.Snapshot(prices, day(2020, time.July, 1))

	assert.Equal(t, 2, snap.OpenLots)
	assert.Equal(t, 1, snap.LongTermLots)
	requireDecimal(t, "5000", snap.UnrealizedLongTerm)  // AAPL held > 1y
	requireDecimal(t, "-500", snap.UnrealizedShortTerm) // remaining MSFT
	requireDecimal(t, "-1000", snap.RealizedShortTerm)
	requireDecimal(t, "0", snap.RealizedLongTerm)
	assert.True(t, snap.TaxPaid.IsNegative())
	requireDecimal(t, "1190", snap.PotentialLongTax) // 5000 * 0.238
	requireDecimal(t, "-204", snap.PotentialShortTax)
	requireDecimal(t, "986", snap.PotentialTax())
}
