package taxledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/tax-aware-backtest/internal/models"
)

func testLedger() *Ledger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewLedger(models.DefaultTaxProfile(), logger)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, got.Equal(decimal.RequireFromString(want)),
		"expected %s, got %s", want, got)
}

func TestBuyValidation(t *testing.T) {
	l := testLedger()

	_, err := l.Buy("AAPL", -10, 100, day(2020, time.January, 1))
	var cfgErr *models.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)

	_, err = l.Buy("AAPL", 10, 0, day(2020, time.January, 1))
	require.ErrorAs(t, err, &cfgErr)
}

func TestSellInsufficientLots(t *testing.T) {
	l := testLedger()
	_, err := l.Buy("AAPL", 50, 100, day(2020, time.January, 1))
	require.NoError(t, err)

	_, err = l.Sell("AAPL", 80, 120, day(2020, time.June, 1), models.MethodFIFO)
	var insufficient *models.InsufficientLotsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "AAPL", insufficient.Ticker)
	assert.Equal(t, 80.0, insufficient.Requested)
	assert.Equal(t, 50.0, insufficient.Available)

	// Failed sale must not touch the ledger.
	requireDecimal(t, "50", l.OpenShares("AAPL"))
	assert.Empty(t, l.History())
}

func TestPartialSaleSplitsLotConservingShares(t *testing.T) {
	l := testLedger()
	bought, err := l.Buy("AAPL", 100, 100, day(2020, time.January, 1))
	require.NoError(t, err)

	_, err = l.Sell("AAPL", 30, 150, day(2020, time.June, 1), models.MethodFIFO)
	require.NoError(t, err)

	requireDecimal(t, "70", l.OpenShares("AAPL"))

	var derivative *models.TaxLot
	for _, lot := range l.Lots() {
		if lot.ParentID != nil && *lot.ParentID == bought.ID {
			derivative = lot
		}
	}
	require.NotNil(t, derivative, "partial sale should record a closed derivative lot")
	assert.Equal(t, models.LotStatusClosed, derivative.Status)
	requireDecimal(t, "30", derivative.Shares)
	requireDecimal(t, "100", derivative.AcquisitionPrice)
	assert.True(t, derivative.AcquisitionDate.Equal(bought.AcquisitionDate))

	// Parent plus derivative reconstruct the original lot exactly.
	requireDecimal(t, "100", bought.Shares.Add(derivative.Shares))
	requireDecimal(t, "10000", bought.CostBasis().Add(derivative.CostBasis()))
}

func TestLongTermBoundaryStrict(t *testing.T) {
	acquired := day(2020, time.January, 1)

	sell := func(saleDate time.Time) models.SaleRecord {
		l := testLedger()
		_, err := l.Buy("AAPL", 10, 100, acquired)
		require.NoError(t, err)
		rec, err := l.Sell("AAPL", 10, 150, saleDate, models.MethodFIFO)
		require.NoError(t, err)
		return rec
	}

	at365 := sell(acquired.AddDate(0, 0, 365))
	requireDecimal(t, "500", at365.ShortTermGain)
	requireDecimal(t, "0", at365.LongTermGain)

	at366 := sell(acquired.AddDate(0, 0, 366))
	requireDecimal(t, "0", at366.ShortTermGain)
	requireDecimal(t, "500", at366.LongTermGain)
}

func TestSingleSaleSpansBothTerms(t *testing.T) {
	l := testLedger()
	_, err := l.Buy("AAPL", 10, 100, day(2019, time.January, 2))
	require.NoError(t, err)
	_, err = l.Buy("AAPL", 10, 100, day(2020, time.June, 1))
	require.NoError(t, err)

	rec, err := l.Sell("AAPL", 20, 150, day(2020, time.July, 1), models.MethodFIFO)
	require.NoError(t, err)

	requireDecimal(t, "500", rec.LongTermGain)
	requireDecimal(t, "500", rec.ShortTermGain)
	// 500*0.238 + 500*0.408
	requireDecimal(t, "323", rec.TotalTax)
}

func TestLotSelectionOrdering(t *testing.T) {
	setup := func() *Ledger {
		l := testLedger()
		_, err := l.Buy("AAPL", 10, 50, day(2020, time.January, 1))
		require.NoError(t, err)
		_, err = l.Buy("AAPL", 10, 120, day(2020, time.March, 1))
		require.NoError(t, err)
		return l
	}

	fifo, err := setup().Sell("AAPL", 10, 100, day(2020, time.June, 1), models.MethodFIFO)
	require.NoError(t, err)
	requireDecimal(t, "500", fifo.ShortTermGain) // oldest lot, basis $50

	lifo, err := setup().Sell("AAPL", 10, 100, day(2020, time.June, 1), models.MethodLIFO)
	require.NoError(t, err)
	requireDecimal(t, "-200", lifo.ShortTermGain) // newest lot, basis $120

	hifo, err := setup().Sell("AAPL", 10, 100, day(2020, time.June, 1), models.MethodHIFO)
	require.NoError(t, err)
	requireDecimal(t, "-200", hifo.ShortTermGain)

	// Selling highest basis first can never owe more tax than FIFO.
	assert.True(t, hifo.TotalTax.LessThanOrEqual(fifo.TotalTax))
}

func TestSellSpecificDesignatedLot(t *testing.T) {
	l := testLedger()
	first, err := l.Buy("AAPL", 10, 50, day(2020, time.January, 1))
	require.NoError(t, err)
	second, err := l.Buy("AAPL", 10, 120, day(2020, time.March, 1))
	require.NoError(t, err)

	rec, err := l.SellSpecific("AAPL", []uuid.UUID{second.ID}, 10, 100, day(2020, time.June, 1))
	require.NoError(t, err)
	requireDecimal(t, "-200", rec.ShortTermGain)
	assert.Equal(t, models.MethodSpecificID, rec.Method)
	assert.Equal(t, models.LotStatusOpen, first.Status)
	assert.Equal(t, models.LotStatusClosed, second.Status)
}

func TestSellRejectsSpecificIDMethod(t *testing.T) {
	l := testLedger()
	_, err := l.Buy("AAPL", 10, 50, day(2020, time.January, 1))
	require.NoError(t, err)

	_, err = l.Sell("AAPL", 5, 100, day(2020, time.June, 1), models.MethodSpecificID)
	var cfgErr *models.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestTwoTickerFIFOEndToEnd(t *testing.T) {
	l := testLedger()

	// Long-term winner and short-term loser realized on the same day.
	_, err := l.Buy("AAPL", 100, 100, day(2020, time.January, 1))
	require.NoError(t, err)
	_, err = l.Buy("MSFT", 100, 200, day(2021, time.January, 4))
	require.NoError(t, err)

	saleDate := day(2021, time.June, 1)

	aapl, err := l.Sell("AAPL", 50, 150, saleDate, models.MethodFIFO)
	require.NoError(t, err)
	requireDecimal(t, "2500", aapl.LongTermGain)
	requireDecimal(t, "0", aapl.ShortTermGain)
	requireDecimal(t, "595", aapl.TotalTax) // 2500 * 0.238

	msft, err := l.Sell("MSFT", 100, 180, saleDate, models.MethodFIFO)
	require.NoError(t, err)
	requireDecimal(t, "-2000", msft.ShortTermGain)
	requireDecimal(t, "-816", msft.TotalTax) // loss credit at 0.408
	assert.True(t, msft.TotalTax.IsNegative())

	requireDecimal(t, "-221", l.TaxPaid())
	requireDecimal(t, "50", l.OpenShares("AAPL"))
	requireDecimal(t, "0", l.OpenShares("MSFT"))
	require.Len(t, l.History(), 2)
}
