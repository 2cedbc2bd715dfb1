package selection

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/tax-aware-backtest/internal/models"
)

func quietSelector() *Selector {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewSelector(logger)
}

func candidate(ticker, sector string, segment models.MarketCapSegment, beta float64) models.CandidateStock {
	return models.CandidateStock{
		Ticker:  ticker,
		Sector:  sector,
		Segment: segment,
		Beta:    beta,
		Price:   100,
	}
}

// spreadPool builds a rank-ordered pool cycling through sectors and
// segments so a constrained selection can always fill.
func spreadPool(n int) []models.CandidateStock {
	sectors := []string{
		"Information Technology", "Health Care", "Financials",
		"Industrials", "Consumer Staples", "Energy", "Utilities",
	}
	segments := []models.MarketCapSegment{
		models.SegmentLargeCap, models.SegmentMidCap, models.SegmentSmallCap,
	}
	pool := make([]models.CandidateStock, 0, n)
	for i := 0; i < n; i++ {
		pool = append(pool, candidate(
			fmt.Sprintf("T%03d", i),
			sectors[i%len(sectors)],
			segments[i%len(segments)],
			1.0,
		))
	}
	return pool
}

func TestSelectWarmUpAcceptsUnconditionally(t *testing.T) {
	cons := models.DefaultConstraintSet()
	cons.WarmUpCount = 5

	// Five utilities in a row would breach the 10% cap without warm-up.
	pool := make([]models.CandidateStock, 0, 5)
	for i := 0; i < 5; i++ {
		pool = append(pool, candidate(fmt.Sprintf("U%d", i), "Utilities", models.SegmentLargeCap, 1.0))
	}

	result := quietSelector().Select(pool, cons, 5)
	if len(result.Portfolio) != 5 {
		t.Fatalf("expected all 5 warm-up picks accepted, got %d", len(result.Portfolio))
	}
	if result.Degraded() {
		t.Error("full-size portfolio should not be degraded")
	}
}

func TestSelectHonorsConstraintsPastWarmUp(t *testing.T) {
	// The spread pool rotates sectors evenly, so the warm-up picks land
	// well inside every cap and the final exposures depend only on the
	// post-warm-up checks.
	cons := models.DefaultConstraintSet()

	result := quietSelector().Select(spreadPool(100), cons, 30)
	if len(result.Portfolio) != 30 {
		t.Fatalf("expected full portfolio of 30, got %d", len(result.Portfolio))
	}

	size := float64(len(result.Portfolio))
	sectorCount := make(map[string]int)
	segmentCount := make(map[models.MarketCapSegment]int)
	betaSum := 0.0
	for _, c := range result.Portfolio {
		sectorCount[c.Sector]++
		segmentCount[c.Segment]++
		betaSum += c.Beta
	}

	for sector, count := range sectorCount {
		if weight := float64(count) / size; weight > cons.SectorCap(sector) {
			t.Errorf("sector %s weight %.3f exceeds cap %.3f", sector, weight, cons.SectorCap(sector))
		}
	}
	for segment, count := range segmentCount {
		band, ok := cons.SegmentBands[segment]
		if !ok {
			continue
		}
		if weight := float64(count) / size; weight > band.Max {
			t.Errorf("segment %s weight %.3f exceeds max %.3f", segment, weight, band.Max)
		}
	}
	meanBeta := betaSum / size
	if meanBeta < cons.BetaBand.Min || meanBeta > cons.BetaBand.Max {
		t.Errorf("mean beta %.3f outside band [%.2f, %.2f]", meanBeta, cons.BetaBand.Min, cons.BetaBand.Max)
	}
}

func TestSelectSkipsBetaBreakers(t *testing.T) {
	cons := models.ConstraintSet{
		DefaultSectorCap: 1.0,
		BetaBand:         models.WeightBand{Min: 0.8, Max: 1.2},
		MinPositions:     1,
		WarmUpCount:      1,
	}

	pool := []models.CandidateStock{
		candidate("A", "Energy", models.SegmentLargeCap, 1.0),
		candidate("B", "Health Care", models.SegmentMidCap, 3.5), // would blow the mean
		candidate("C", "Financials", models.SegmentSmallCap, 1.1),
	}
	result := quietSelector().Select(pool, cons, 2)
	if len(result.Portfolio) != 2 {
		t.Fatalf("expected 2 picks, got %d", len(result.Portfolio))
	}
	if result.Portfolio[1].Ticker != "C" {
		t.Errorf("expected high-beta candidate skipped, portfolio %v", result.Portfolio)
	}
	if result.SkippedCount != 1 {
		t.Errorf("expected 1 skip recorded, got %d", result.SkippedCount)
	}
}

func TestSelectPreservesInputOrder(t *testing.T) {
	pool := spreadPool(50)
	result := quietSelector().Select(pool, models.DefaultConstraintSet(), 20)

	rank := make(map[string]int, len(pool))
	for i, c := range pool {
		rank[c.Ticker] = i
	}
	for i := 1; i < len(result.Portfolio); i++ {
		if rank[result.Portfolio[i-1].Ticker] >= rank[result.Portfolio[i].Ticker] {
			t.Fatalf("portfolio not in input rank order at position %d", i)
		}
	}
}

func TestSelectShortPoolIsDegraded(t *testing.T) {
	result := quietSelector().Select(spreadPool(10), models.DefaultConstraintSet(), 30)
	if !result.Degraded() {
		t.Fatal("short portfolio must be degraded")
	}
	if result.Reason != ReasonShortPortfolio {
		t.Errorf("expected reason %q, got %q", ReasonShortPortfolio, result.Reason)
	}
	if len(result.Portfolio) != 10 {
		t.Errorf("expected the 10 available picks kept, got %d", len(result.Portfolio))
	}
}

func TestSelectWithFallbackOnInfeasibleConstraints(t *testing.T) {
	cons := models.DefaultConstraintSet()
	cons.WarmUpCount = 0
	cons.MinPositions = 10
	cons.BetaBand = models.WeightBand{Min: 0.0, Max: 0.1} // nothing qualifies

	pool := spreadPool(40)
	result, warnings := quietSelector().SelectWithFallback(pool, cons, 20)

	if !result.Degraded() || result.Reason != ReasonConstraintInfeasible {
		t.Fatalf("expected constraint-infeasible fallback, got %+v", result)
	}
	if len(result.Portfolio) != 20 {
		t.Errorf("expected unconstrained top-20, got %d", len(result.Portfolio))
	}
	for i, c := range result.Portfolio {
		if c.Ticker != pool[i].Ticker {
			t.Fatalf("fallback must be top-N in rank order, mismatch at %d", i)
		}
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
	var infeasible *models.ConstraintInfeasibleWarning
	if !errors.As(warnings[0], &infeasible) {
		t.Fatalf("expected ConstraintInfeasibleWarning, got %T", warnings[0])
	}
	if infeasible.Requested != 20 || infeasible.Selected != 0 {
		t.Errorf("warning counts wrong: %+v", infeasible)
	}
}

func TestSelectWithFallbackKeepsConstrainedResult(t *testing.T) {
	cons := models.DefaultConstraintSet()
	cons.MinPositions = 10

	result, warnings := quietSelector().SelectWithFallback(spreadPool(60), cons, 20)
	if result.Degraded() {
		t.Errorf("feasible selection should stay constrained, got %+v", result)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
}
