// Package selection builds equal-weighted portfolios from rank-ordered
// candidates under sector, size-segment and beta limits.
package selection

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/tax-aware-backtest/internal/models"
)

// Reason explains why a selection came back degraded.
type Reason string

const (
	// ReasonShortPortfolio: the candidate pool ran out before targetSize.
	ReasonShortPortfolio Reason = "short_portfolio"
	// ReasonConstraintInfeasible: the constrained pass could not reach
	// MinPositions and the unconstrained top-N fallback was used.
	ReasonConstraintInfeasible Reason = "constraint_infeasible"
)

// Result is the outcome of one selection pass. Quality is Constrained when
// every limit held and the portfolio is full-size; anything else is
// Degraded with a Reason, never an error.
type Result struct {
	Portfolio []models.CandidateStock
	Quality   models.SelectionQuality
	Reason    Reason
	Detail    string
	// SkippedCount is how many candidates the constraint checks rejected.
	SkippedCount int
}

// Degraded reports whether downstream analysis should discount the period.
func (r Result) Degraded() bool {
	return r.Quality == models.SelectionDegraded
}

// Selector applies a ConstraintSet greedily over ranked candidates.
// Stateless between calls.
type Selector struct {
	logger *logrus.Logger
}

func NewSelector(logger *logrus.Logger) *Selector {
	if logger == nil {
		logger = logrus.New()
	}
	return &Selector{logger: logger}
}

// tally carries the running exposure counters for the greedy fold.
type tally struct {
	sectorCount  map[string]int
	segmentCount map[models.MarketCapSegment]int
	betaSum      float64
}

func newTally() *tally {
	return &tally{
		sectorCount:  make(map[string]int),
		segmentCount: make(map[models.MarketCapSegment]int),
	}
}

func (t *tally) add(c models.CandidateStock) {
	t.sectorCount[c.Sector]++
	t.segmentCount[c.Segment]++
	t.betaSum += c.Beta
}

// admits checks the hypothetical exposures if c joined a portfolio of the
// given size. Equal weighting makes every exposure a count ratio.
func (t *tally) admits(c models.CandidateStock, size int, cons models.ConstraintSet) bool {
	next := float64(size + 1)

	if float64(t.sectorCount[c.Sector]+1)/next > cons.SectorCap(c.Sector) {
		return false
	}
	if band, ok := cons.SegmentBands[c.Segment]; ok {
		if float64(t.segmentCount[c.Segment]+1)/next > band.Max {
			return false
		}
	}
	meanBeta := (t.betaSum + c.Beta) / next
	if meanBeta < cons.BetaBand.Min || meanBeta > cons.BetaBand.Max {
		return false
	}
	return true
}

// Select folds over the candidates in the order given (never re-sorted;
// callers supply rank order) and stops at targetSize or exhaustion. The
// first WarmUpCount picks are unconditional so a near-empty portfolio
// cannot reject everything; every later pick passes the hypothetical
// post-add checks.
func (s *Selector) Select(candidates []models.CandidateStock, cons models.ConstraintSet, targetSize int) Result {
	portfolio := make([]models.CandidateStock, 0, targetSize)
	counters := newTally()
	skipped := 0

	for _, c := range candidates {
		if len(portfolio) >= targetSize {
			break
		}
		if len(portfolio) >= cons.WarmUpCount && !counters.admits(c, len(portfolio), cons) {
			skipped++
			continue
		}
		counters.add(c)
		portfolio = append(portfolio, c)
	}

	if len(portfolio) < targetSize {
		s.logger.WithFields(logrus.Fields{
			"selected": len(portfolio),
			"target":   targetSize,
			"skipped":  skipped,
		}).Warn("Portfolio short of target size")
		return Result{
			Portfolio:    portfolio,
			Quality:      models.SelectionDegraded,
			Reason:       ReasonShortPortfolio,
			Detail:       fmt.Sprintf("selected %d of %d requested", len(portfolio), targetSize),
			SkippedCount: skipped,
		}
	}
	return Result{
		Portfolio:    portfolio,
		Quality:      models.SelectionConstrained,
		SkippedCount: skipped,
	}
}

// SelectWithFallback retries unconstrained top-N when the constrained pass
// lands below MinPositions. The fallback result is always Degraded with
// ReasonConstraintInfeasible so the period is auditable downstream.
func (s *Selector) SelectWithFallback(candidates []models.CandidateStock, cons models.ConstraintSet, targetSize int) (Result, []error) {
	result := s.Select(candidates, cons, targetSize)
	if len(result.Portfolio) >= cons.MinPositions {
		return result, nil
	}

	warning := &models.ConstraintInfeasibleWarning{
		Requested: targetSize,
		Selected:  len(result.Portfolio),
		Reason:    "constrained selection below minimum position count, using unconstrained top-N",
	}
	s.logger.WithFields(logrus.Fields{
		"constrained_size": len(result.Portfolio),
		"min_positions":    cons.MinPositions,
	}).Warn("Constraints infeasible, falling back to unconstrained top-N")

	n := targetSize
	if n > len(candidates) {
		n = len(candidates)
	}
	fallback := Result{
		Portfolio:    append([]models.CandidateStock{}, candidates[:n]...),
		Quality:      models.SelectionDegraded,
		Reason:       ReasonConstraintInfeasible,
		Detail:       warning.Reason,
		SkippedCount: result.SkippedCount,
	}
	return fallback, []error{warning}
}
