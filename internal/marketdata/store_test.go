package marketdata

import (
	"math"
	"testing"
	"time"

	"github.com/yourusername/tax-aware-backtest/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPriceAtLastKnownOnOrBefore(t *testing.T) {
	s := NewStore()
	s.AddBars([]DailyBar{
		{Ticker: "AAPL", Date: day(2020, time.January, 2), Close: 100, Volume: 1e6},
		{Ticker: "AAPL", Date: day(2020, time.January, 3), Close: 102, Volume: 1e6},
		{Ticker: "AAPL", Date: day(2020, time.January, 6), Close: 105, Volume: 1e6},
	})

	if price, ok := s.PriceAt("AAPL", day(2020, time.January, 3)); !ok || price != 102 {
		t.Errorf("exact date: expected 102, got %v ok=%v", price, ok)
	}
	// Weekend gap falls back to Friday's close.
	if price, ok := s.PriceAt("AAPL", day(2020, time.January, 5)); !ok || price != 102 {
		t.Errorf("gap date: expected 102, got %v ok=%v", price, ok)
	}
	if _, ok := s.PriceAt("AAPL", day(2020, time.January, 1)); ok {
		t.Error("date before first bar must be unavailable")
	}
	if _, ok := s.PriceAt("MSFT", day(2020, time.January, 3)); ok {
		t.Error("unknown ticker must be unavailable")
	}
}

func TestCandidatesAtReplaysMostRecentRanking(t *testing.T) {
	s := NewStore()
	s.AddRanking(Ranking{
		Date:       day(2020, time.January, 1),
		Candidates: []models.CandidateStock{{Ticker: "AAPL"}, {Ticker: "MSFT"}},
	})
	s.AddRanking(Ranking{
		Date:       day(2020, time.February, 1),
		Candidates: []models.CandidateStock{{Ticker: "GOOG"}},
	})

	jan := s.CandidatesAt(day(2020, time.January, 15))
	if len(jan) != 2 || jan[0].Ticker != "AAPL" {
		t.Errorf("mid-January should replay the January ranking, got %v", jan)
	}
	feb := s.CandidatesAt(day(2020, time.February, 1))
	if len(feb) != 1 || feb[0].Ticker != "GOOG" {
		t.Errorf("February 1 should replay the February ranking, got %v", feb)
	}
	if got := s.CandidatesAt(day(2019, time.December, 1)); got != nil {
		t.Errorf("date before first ranking should yield nil, got %v", got)
	}
}

func TestTradingDaysUnionHalfOpen(t *testing.T) {
	s := NewStore()
	s.AddBars([]DailyBar{
		{Ticker: "AAPL", Date: day(2020, time.January, 2), Close: 100, Volume: 1},
		{Ticker: "MSFT", Date: day(2020, time.January, 3), Close: 200, Volume: 1},
		{Ticker: "AAPL", Date: day(2020, time.January, 6), Close: 101, Volume: 1},
	})

	days := s.TradingDays(day(2020, time.January, 2), day(2020, time.January, 6))
	if len(days) != 2 {
		t.Fatalf("expected 2 trading days in half-open range, got %v", days)
	}
	if !days[0].Equal(day(2020, time.January, 2)) || !days[1].Equal(day(2020, time.January, 3)) {
		t.Errorf("unexpected days %v", days)
	}
}

func TestLiquidityProfile(t *testing.T) {
	s := NewStore()
	bars := make([]DailyBar, 0, 30)
	price := 100.0
	for i := 0; i < 30; i++ {
		// Alternate +1%/-1% days for a known return series.
		if i%2 == 0 {
			price *= 1.01
		} else {
			price *= 0.99
		}
		bars = append(bars, DailyBar{
			Ticker: "AAPL",
			Date:   day(2020, time.January, 1).AddDate(0, 0, i),
			Close:  price,
			Volume: 1e6,
		})
	}
	s.AddBars(bars)

	profile := s.Liquidity("AAPL", day(2020, time.January, 30), 60, 50e9)
	if !profile.Available {
		t.Fatalf("expected available profile, got %+v", profile)
	}
	if profile.ObservationCount != 30 {
		t.Errorf("expected 30 observations, got %d", profile.ObservationCount)
	}
	if profile.MarketCap != 50e9 {
		t.Errorf("market cap not carried through: %v", profile.MarketCap)
	}
	if profile.AvgDollarVolume < 90e6 || profile.AvgDollarVolume > 110e6 {
		t.Errorf("ADV should be near $100M, got %v", profile.AvgDollarVolume)
	}
	// ±1% daily swings annualize to roughly 16% vol.
	if profile.AnnualizedVol < 0.10 || profile.AnnualizedVol > 0.25 {
		t.Errorf("unexpected annualized vol %v", profile.AnnualizedVol)
	}
	if math.Abs(profile.CurrentPrice-bars[len(bars)-1].Close) > 1e-9 {
		t.Errorf("current price should be the last close")
	}
}

func TestLiquidityInsufficientHistory(t *testing.T) {
	s := NewStore()
	s.AddBars([]DailyBar{
		{Ticker: "NEW", Date: day(2020, time.January, 2), Close: 10, Volume: 1e5},
	})

	profile := s.Liquidity("NEW", day(2020, time.January, 31), 60, 1e9)
	if profile.Available {
		t.Error("one bar must not produce an available profile")
	}
	if profile.ObservationCount != 1 {
		t.Errorf("expected 1 observation, got %d", profile.ObservationCount)
	}
}
