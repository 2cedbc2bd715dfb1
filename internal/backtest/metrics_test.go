package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/tax-aware-backtest/internal/models"
)

func syntheticState(initial float64, returns []float64) *RunState {
	state := NewRunState(initial)
	date := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i, r := range returns {
		state.ApplyDailyReturn(date.AddDate(0, 0, i), r)
	}
	return state
}

func TestCalculatePerformanceTotals(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.InitialCapital = 100_000
	cfg.RiskFreeRate = 0

	state := syntheticState(100_000, []float64{0.01, 0.01, -0.005, 0.02})
	state.Periods = []models.RebalancePeriod{
		{RealizedReturn: 0.02},
		{RealizedReturn: -0.01},
	}

	perf := CalculatePerformance(state, decimal.NewFromInt(500), cfg)

	wantTotal := 1.01*1.01*0.995*1.02 - 1
	if math.Abs(perf.TotalReturn-wantTotal) > 1e-9 {
		t.Errorf("total return: want %.6f, got %.6f", wantTotal, perf.TotalReturn)
	}
	if perf.TradingDays != 4 {
		t.Errorf("expected 4 trading days, got %d", perf.TradingDays)
	}
	if perf.WinningPeriods != 1 || perf.WinRate != 0.5 {
		t.Errorf("win stats wrong: %+v", perf)
	}
	if perf.SharpeRatio <= 0 {
		t.Errorf("positive mean return should give positive Sharpe, got %.4f", perf.SharpeRatio)
	}
	if perf.Volatility <= 0 {
		t.Errorf("expected positive volatility, got %.4f", perf.Volatility)
	}

	// Adding the tax bill back yields the pre-tax view; drag is the gap.
	wantPreTax := (state.Equity+500)/100_000 - 1
	if math.Abs(perf.PreTaxReturn-wantPreTax) > 1e-9 {
		t.Errorf("pre-tax return: want %.6f, got %.6f", wantPreTax, perf.PreTaxReturn)
	}
	if math.Abs(perf.TaxDrag-(perf.PreTaxReturn-perf.TotalReturn)) > 1e-12 {
		t.Errorf("tax drag must equal pre-tax minus after-tax")
	}
}

func TestCalculatePerformanceDrawdown(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.InitialCapital = 100_000

	state := syntheticState(100_000, []float64{0.10, -0.20, 0.05})
	perf := CalculatePerformance(state, decimal.Zero, cfg)

	// Peak 110k, trough 88k.
	if math.Abs(perf.MaxDrawdown-0.20) > 1e-9 {
		t.Errorf("expected 20%% max drawdown, got %.4f", perf.MaxDrawdown)
	}
}

func TestCalculatePerformanceEmptyRun(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.InitialCapital = 100_000

	perf := CalculatePerformance(NewRunState(100_000), decimal.Zero, cfg)
	if perf.TotalReturn != 0 || perf.SharpeRatio != 0 || perf.MaxDrawdown != 0 {
		t.Errorf("empty run should produce zero metrics, got %+v", perf)
	}
}

func TestSortinoIgnoresUpsideVolatility(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.InitialCapital = 100_000
	cfg.RiskFreeRate = 0

	// Same mean, one series with only upside swings.
	steady := CalculatePerformance(syntheticState(100_000, []float64{0.01, 0.01, 0.01, -0.01}), decimal.Zero, cfg)
	choppy := CalculatePerformance(syntheticState(100_000, []float64{0.005, 0.005, 0.02, -0.02}), decimal.Zero, cfg)

	if steady.SortinoRatio <= choppy.SortinoRatio {
		t.Errorf("smaller downside should score a higher Sortino: steady %.4f vs choppy %.4f",
			steady.SortinoRatio, choppy.SortinoRatio)
	}
}
