package backtest

import (
	"time"

	"github.com/yourusername/tax-aware-backtest/internal/models"
)

// EquityPoint is one mark on the simulated equity curve.
type EquityPoint struct {
	Date     time.Time `json:"date"`
	Value    float64   `json:"value"`
	Drawdown float64   `json:"drawdown"`
}

// RunState accumulates the walk-forward simulation. Holdings track the
// current ticker set between periods; equity compounds the daily return
// series off the initial capital.
type RunState struct {
	Equity      float64
	PeakEquity  float64
	Holdings    map[string]models.CandidateStock
	Periods     []models.RebalancePeriod
	Returns     []float64
	EquityCurve []EquityPoint
	Warnings    []string
}

// NewRunState initializes state with the starting capital.
func NewRunState(initialCapital float64) *RunState {
	return &RunState{
		Equity:     initialCapital,
		PeakEquity: initialCapital,
		Holdings:   make(map[string]models.CandidateStock),
	}
}

// ApplyDailyReturn compounds one day's portfolio return into equity.
func (s *RunState) ApplyDailyReturn(date time.Time, r float64) {
	s.Equity *= 1 + r
	if s.Equity > s.PeakEquity {
		s.PeakEquity = s.Equity
	}
	s.Returns = append(s.Returns, r)
	s.EquityCurve = append(s.EquityCurve, EquityPoint{
		Date:     date,
		Value:    s.Equity,
		Drawdown: s.CurrentDrawdown(),
	})
}

// CurrentDrawdown is the fractional distance below the running peak.
func (s *RunState) CurrentDrawdown() float64 {
	if s.PeakEquity <= 0 || s.Equity >= s.PeakEquity {
		return 0
	}
	return (s.PeakEquity - s.Equity) / s.PeakEquity
}

// SetHoldings replaces the current ticker set after a rebalance.
func (s *RunState) SetHoldings(portfolio []models.CandidateStock) {
	s.Holdings = make(map[string]models.CandidateStock, len(portfolio))
	for _, c := range portfolio {
		s.Holdings[c.Ticker] = c
	}
}

// Warn records a non-fatal run-level warning.
func (s *RunState) Warn(msg string) {
	s.Warnings = append(s.Warnings, msg)
}
