package backtest

import (
	"math"

	"github.com/shopspring/decimal"
)

// Performance summarises a finished run from its daily return series.
// Returns are after-tax by construction; the pre-tax view adds the tax bill
// back to final equity so the drag of rebalancing taxes is visible.
type Performance struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Volatility       float64 `json:"volatility"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	SortinoRatio     float64 `json:"sortino_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	WinRate          float64 `json:"win_rate"`
	WinningPeriods   int     `json:"winning_periods"`
	TotalPeriods     int     `json:"total_periods"`
	PreTaxReturn     float64 `json:"pre_tax_return"`
	TaxDrag          float64 `json:"tax_drag"`
	TradingDays      int     `json:"trading_days"`
}

const tradingDaysPerYear = 252

// CalculatePerformance derives the summary from run state and the ledger's
// cumulative tax.
func CalculatePerformance(state *RunState, taxPaid decimal.Decimal, cfg RunConfig) Performance {
	perf := Performance{
		TotalPeriods: len(state.Periods),
		TradingDays:  len(state.Returns),
	}
	if cfg.InitialCapital <= 0 {
		return perf
	}

	perf.TotalReturn = state.Equity/cfg.InitialCapital - 1
	perf.AnnualizedReturn = annualize(perf.TotalReturn, len(state.Returns))
	perf.Volatility = stddev(state.Returns) * math.Sqrt(tradingDaysPerYear)
	perf.SharpeRatio = sharpe(state.Returns, cfg.RiskFreeRate)
	perf.SortinoRatio = sortino(state.Returns, cfg.RiskFreeRate)
	perf.MaxDrawdown = maxDrawdown(state.EquityCurve)

	for _, p := range state.Periods {
		if p.RealizedReturn > 0 {
			perf.WinningPeriods++
		}
	}
	if perf.TotalPeriods > 0 {
		perf.WinRate = float64(perf.WinningPeriods) / float64(perf.TotalPeriods)
	}

	preTaxFinal := state.Equity + taxPaid.InexactFloat64()
	perf.PreTaxReturn = preTaxFinal/cfg.InitialCapital - 1
	perf.TaxDrag = perf.PreTaxReturn - perf.TotalReturn

	return perf
}

func annualize(totalReturn float64, tradingDays int) float64 {
	if tradingDays == 0 || totalReturn <= -1 {
		return 0
	}
	years := float64(tradingDays) / tradingDaysPerYear
	if years <= 0 {
		return 0
	}
	return math.Pow(1+totalReturn, 1/years) - 1
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	variance := 0.0
	for _, v := range values {
		variance += (v - m) * (v - m)
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}

func sharpe(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	dailyRF := riskFreeRate / tradingDaysPerYear
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - dailyRF
	}
	sd := stddev(excess)
	if sd == 0 {
		return 0
	}
	return mean(excess) / sd * math.Sqrt(tradingDaysPerYear)
}

func sortino(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	dailyRF := riskFreeRate / tradingDaysPerYear
	excessMean := mean(returns) - dailyRF

	downside := 0.0
	count := 0
	for _, r := range returns {
		if r < dailyRF {
			d := r - dailyRF
			downside += d * d
			count++
		}
	}
	if count == 0 {
		return 0
	}
	downsideDev := math.Sqrt(downside / float64(count))
	if downsideDev == 0 {
		return 0
	}
	return excessMean / downsideDev * math.Sqrt(tradingDaysPerYear)
}

func maxDrawdown(curve []EquityPoint) float64 {
	maxDD := 0.0
	for _, p := range curve {
		if p.Drawdown > maxDD {
			maxDD = p.Drawdown
		}
	}
	return maxDD
}
