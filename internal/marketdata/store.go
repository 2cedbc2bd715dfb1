// Package marketdata materializes the price and ranking history a backtest
// replays. The engine only ever reads from a Store; all I/O (HTTP snapshots,
// disk loaders) happens before the run starts.
package marketdata

import (
	"math"
	"sort"
	"time"

	"github.com/yourusername/tax-aware-backtest/internal/models"
)

// DailyBar is one end-of-day observation for one ticker.
type DailyBar struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Ranking is the candidate list produced by the scoring pipeline for one
// rebalance date, already in rank order.
type Ranking struct {
	Date       time.Time               `json:"date"`
	Candidates []models.CandidateStock `json:"candidates"`
}

// minLiquidityObservations is the trailing bar count below which the store
// refuses to compute a liquidity profile.
const minLiquidityObservations = 20

// tradingDaysPerYear annualizes realized volatility.
const tradingDaysPerYear = 252

// Store holds materialized bars and rankings keyed for deterministic
// replay. Populate fully before the run; reads are side-effect free.
type Store struct {
	bars     map[string][]DailyBar // per ticker, sorted by date
	rankings []Ranking             // sorted by date
}

func NewStore() *Store {
	return &Store{bars: make(map[string][]DailyBar)}
}

// AddBars merges bars into the store, keeping each ticker's series sorted.
func (s *Store) AddBars(bars []DailyBar) {
	touched := make(map[string]bool)
	for _, b := range bars {
		b.Date = truncateToDay(b.Date)
		s.bars[b.Ticker] = append(s.bars[b.Ticker], b)
		touched[b.Ticker] = true
	}
	for ticker := range touched {
		series := s.bars[ticker]
		sort.SliceStable(series, func(i, j int) bool {
			return series[i].Date.Before(series[j].Date)
		})
	}
}

// AddRanking registers the candidate list for a rebalance date.
func (s *Store) AddRanking(r Ranking) {
	r.Date = truncateToDay(r.Date)
	s.rankings = append(s.rankings, r)
	sort.SliceStable(s.rankings, func(i, j int) bool {
		return s.rankings[i].Date.Before(s.rankings[j].Date)
	})
}

// PriceAt returns the last known close on or before date. The boolean is
// false when the ticker has no bar at or before the date; callers treat
// that as the unavailable sentinel, never as a zero price.
func (s *Store) PriceAt(ticker string, date time.Time) (float64, bool) {
	series := s.bars[ticker]
	if len(series) == 0 {
		return 0, false
	}
	date = truncateToDay(date)
	// First index strictly after date; the bar before it is the answer.
	idx := sort.Search(len(series), func(i int) bool {
		return series[i].Date.After(date)
	})
	if idx == 0 {
		return 0, false
	}
	return series[idx-1].Close, true
}

// CandidatesAt returns the most recent ranking on or before date, in the
// rank order it was ingested with.
func (s *Store) CandidatesAt(date time.Time) []models.CandidateStock {
	date = truncateToDay(date)
	idx := sort.Search(len(s.rankings), func(i int) bool {
		return s.rankings[i].Date.After(date)
	})
	if idx == 0 {
		return nil
	}
	return s.rankings[idx-1].Candidates
}

// TradingDays returns the sorted union of bar dates in [start, end).
func (s *Store) TradingDays(start, end time.Time) []time.Time {
	start = truncateToDay(start)
	end = truncateToDay(end)
	seen := make(map[time.Time]bool)
	for _, series := range s.bars {
		for _, b := range series {
			if !b.Date.Before(start) && b.Date.Before(end) {
				seen[b.Date] = true
			}
		}
	}
	days := make([]time.Time, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// Tickers returns every ticker with at least one bar.
func (s *Store) Tickers() []string {
	tickers := make([]string, 0, len(s.bars))
	for t := range s.bars {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers
}

// Liquidity computes the trailing microstructure profile for a ticker as of
// a date: average daily dollar volume and annualized realized volatility
// over lookbackDays calendar days. Too little history yields an unavailable
// profile, which the cost model maps to its conservative default.
func (s *Store) Liquidity(ticker string, asOf time.Time, lookbackDays int, marketCap float64) models.LiquidityProfile {
	asOf = truncateToDay(asOf)
	from := asOf.AddDate(0, 0, -lookbackDays)

	window := make([]DailyBar, 0, lookbackDays)
	for _, b := range s.bars[ticker] {
		if b.Date.After(from) && !b.Date.After(asOf) {
			window = append(window, b)
		}
	}

	profile := models.LiquidityProfile{
		Ticker:           ticker,
		MarketCap:        marketCap,
		ObservationCount: len(window),
	}
	if len(window) < minLiquidityObservations {
		return profile
	}

	dollarVolume := 0.0
	for _, b := range window {
		dollarVolume += b.Close * b.Volume
	}
	profile.AvgDollarVolume = dollarVolume / float64(len(window))
	profile.CurrentPrice = window[len(window)-1].Close
	profile.AnnualizedVol = annualizedVol(window)
	profile.Available = true
	return profile
}

// annualizedVol is the sample standard deviation of daily simple returns
// scaled to a trading year.
func annualizedVol(window []DailyBar) float64 {
	returns := make([]float64, 0, len(window)-1)
	for i := 1; i < len(window); i++ {
		if window[i-1].Close <= 0 {
			continue
		}
		returns = append(returns, window[i].Close/window[i-1].Close-1)
	}
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)

	return math.Sqrt(variance) * math.Sqrt(tradingDaysPerYear)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
