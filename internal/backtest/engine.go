// Package backtest walks a ranked-stock strategy forward through time,
// rebalancing on calendar anchors and settling trading costs and taxes
// against the return stream.
package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/tax-aware-backtest/internal/costmodel"
	"github.com/yourusername/tax-aware-backtest/internal/models"
	"github.com/yourusername/tax-aware-backtest/internal/schedule"
	"github.com/yourusername/tax-aware-backtest/internal/selection"
	"github.com/yourusername/tax-aware-backtest/internal/taxledger"
)

// PriceStore is the read-only market data surface the engine replays.
// Implemented by marketdata.Store; tests substitute fakes.
type PriceStore interface {
	PriceAt(ticker string, date time.Time) (float64, bool)
	CandidatesAt(date time.Time) []models.CandidateStock
	TradingDays(start, end time.Time) []time.Time
	Liquidity(ticker string, asOf time.Time, lookbackDays int, marketCap float64) models.LiquidityProfile
}

// Engine orchestrates one walk-forward simulation. Strictly sequential and
// I/O free: every price and ranking comes out of the store.
type Engine struct {
	config    RunConfig
	store     PriceStore
	ledger    *taxledger.Ledger
	selector  *selection.Selector
	estimator *costmodel.Estimator
	logger    *logrus.Logger
}

// Result is the complete output of one run.
type Result struct {
	Run         models.BacktestRun       `json:"run"`
	Periods     []models.RebalancePeriod `json:"periods"`
	Returns     []float64                `json:"returns"`
	EquityCurve []EquityPoint            `json:"equity_curve"`
	Sales       []models.SaleRecord      `json:"sales"`
	Snapshot    models.TaxSnapshot       `json:"tax_snapshot"`
	Performance Performance              `json:"performance"`
	Warnings    []string                 `json:"warnings,omitempty"`
}

// NewEngine creates an engine for the given configuration and store.
func NewEngine(cfg RunConfig, store PriceStore, logger *logrus.Logger) (*Engine, error) {
	if store == nil {
		return nil, models.NewConfigurationError("store", "market data store is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		config:    cfg,
		store:     store,
		ledger:    taxledger.NewLedger(cfg.TaxProfile, logger),
		selector:  selection.NewSelector(logger),
		estimator: costmodel.NewEstimator(logger),
		logger:    logger,
	}, nil
}

// Ledger exposes the run's tax ledger for inspection after Run.
func (e *Engine) Ledger() *taxledger.Ledger {
	return e.ledger
}

// Run executes the full simulation and assembles the result.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	e.logger.WithFields(logrus.Fields{
		"start":     e.config.StartDate.Format("2006-01-02"),
		"end":       e.config.EndDate.Format("2006-01-02"),
		"frequency": e.config.Frequency,
		"size":      e.config.PortfolioSize,
	}).Info("Starting backtest run")

	periods, err := schedule.Periods(e.config.StartDate, e.config.EndDate, e.config.Frequency)
	if err != nil {
		return nil, err
	}

	state := NewRunState(e.config.InitialCapital)
	for _, p := range periods {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run cancelled: %w", err)
		}
		if err := e.runPeriod(state, p); err != nil {
			return nil, err
		}
	}

	snapshot := e.ledger.Snapshot(e.openPositionPrices(e.config.EndDate), e.config.EndDate)
	performance := CalculatePerformance(state, e.ledger.TaxPaid(), e.config)

	result := &Result{
		Run:         e.buildRunSummary(state, performance),
		Periods:     state.Periods,
		Returns:     state.Returns,
		EquityCurve: state.EquityCurve,
		Sales:       e.ledger.History(),
		Snapshot:    snapshot,
		Performance: performance,
		Warnings:    state.Warnings,
	}

	e.logger.WithFields(logrus.Fields{
		"periods":      len(result.Periods),
		"final_equity": state.Equity,
		"tax_paid":     e.ledger.TaxPaid(),
		"warnings":     len(result.Warnings),
	}).Info("Backtest run finished")
	return result, nil
}

// runPeriod selects the target portfolio, executes the rebalance, and
// settles the period's daily returns net of cost and tax.
func (e *Engine) runPeriod(state *RunState, p schedule.Period) error {
	var warnings []string

	candidates := e.store.CandidatesAt(p.Start)
	priced := make([]models.CandidateStock, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := e.store.PriceAt(c.Ticker, p.Start); ok {
			priced = append(priced, c)
		}
	}
	if len(priced) < e.config.MinPricedTickers {
		w := &models.DataSufficiencyWarning{
			Reason: fmt.Sprintf("%d priced candidates on %s, need %d",
				len(priced), p.Start.Format("2006-01-02"), e.config.MinPricedTickers),
		}
		e.logger.Warn(w.Error())
		warnings = append(warnings, w.Error())
		state.Warn(w.Error())
	}

	selResult, selWarnings := e.selector.SelectWithFallback(priced, e.config.Constraints, e.config.PortfolioSize)
	for _, w := range selWarnings {
		warnings = append(warnings, w.Error())
		state.Warn(w.Error())
	}

	target := selResult.Portfolio
	targetSet := make(map[string]bool, len(target))
	for _, c := range target {
		targetSet[c.Ticker] = true
	}

	var trades []models.Trade
	periodTax := decimal.Zero
	transactionCost := 0.0

	// Departures: full sells through the ledger.
	for _, ticker := range sortedTickers(state.Holdings) {
		if targetSet[ticker] {
			continue
		}
		trade, err := e.sellPosition(state.Holdings[ticker], p.Start)
		if err != nil {
			return err
		}
		if trade == nil {
			continue
		}
		trades = append(trades, *trade)
		periodTax = periodTax.Add(trade.Sale.TotalTax)
		transactionCost += trade.Cost.TotalCost * trade.Notional.InexactFloat64()
	}

	if e.config.HarvestEnabled {
		harvested, harvestTax, harvestCost := e.harvestLosses(state, targetSet, p.Start)
		trades = append(trades, harvested...)
		periodTax = periodTax.Add(harvestTax)
		transactionCost += harvestCost
	}

	// Arrivals: buy into an equal-weight slice of current equity.
	if len(target) > 0 {
		perPosition := state.Equity / float64(len(target))
		for _, c := range target {
			if _, held := state.Holdings[c.Ticker]; held {
				continue
			}
			trade, err := e.buyPosition(c, perPosition, p.Start)
			if err != nil {
				return err
			}
			trades = append(trades, *trade)
			transactionCost += trade.Cost.TotalCost * trade.Notional.InexactFloat64()
		}
	}

	dailyReturns, dates := e.periodReturns(target, p)

	// The period pays for its own rebalance: net cost and tax come out of
	// the first day's return.
	netCost := transactionCost + periodTax.InexactFloat64()
	if netCost != 0 && state.Equity > 0 {
		costFrac := netCost / state.Equity
		if len(dailyReturns) > 0 {
			dailyReturns[0] -= costFrac
		} else {
			dailyReturns = []float64{-costFrac}
			dates = []time.Time{p.Start}
		}
	}

	realized := 1.0
	for i, r := range dailyReturns {
		realized *= 1 + r
		state.ApplyDailyReturn(dates[i], r)
	}

	state.Periods = append(state.Periods, models.RebalancePeriod{
		Start:           p.Start,
		End:             p.End,
		Portfolio:       target,
		Trades:          trades,
		DailyReturns:    dailyReturns,
		RealizedReturn:  realized - 1,
		TransactionCost: decimal.NewFromFloat(transactionCost),
		TaxPaid:         periodTax,
		Selection:       selResult.Quality,
		SelectionReason: selResult.Detail,
		Warnings:        warnings,
	})
	state.SetHoldings(target)
	return nil
}

// sellPosition liquidates the full open position of a departing ticker.
// Returns nil when nothing is open or the ticker cannot be priced.
func (e *Engine) sellPosition(held models.CandidateStock, date time.Time) (*models.Trade, error) {
	shares := e.ledger.OpenShares(held.Ticker).InexactFloat64()
	if shares <= 0 {
		return nil, nil
	}
	price, ok := e.store.PriceAt(held.Ticker, date)
	if !ok {
		e.logger.WithField("ticker", held.Ticker).Warn("Cannot price departing position, keeping lots open")
		return nil, nil
	}

	rec, err := e.ledger.Sell(held.Ticker, shares, price, date, e.config.LotMethod)
	if err != nil {
		return nil, fmt.Errorf("selling %s: %w", held.Ticker, err)
	}

	notional := shares * price
	liquidity := e.store.Liquidity(held.Ticker, date, e.config.LiquidityLookbackDays, held.MarketCap)
	cost := e.estimator.Estimate(liquidity, notional)

	return &models.Trade{
		Ticker:   held.Ticker,
		Action:   models.TradeActionSell,
		Shares:   decimal.NewFromFloat(shares),
		Price:    decimal.NewFromFloat(price),
		Notional: decimal.NewFromFloat(notional),
		Cost:     cost,
		Sale:     &rec,
	}, nil
}

// buyPosition opens an equal-weight position in an arriving ticker.
func (e *Engine) buyPosition(c models.CandidateStock, notional float64, date time.Time) (*models.Trade, error) {
	price, ok := e.store.PriceAt(c.Ticker, date)
	if !ok {
		// Candidates are pre-filtered to priced tickers.
		return nil, models.NewConfigurationError("prices", "no price for selected ticker %s", c.Ticker)
	}
	shares := notional / price

	if _, err := e.ledger.Buy(c.Ticker, shares, price, date); err != nil {
		return nil, fmt.Errorf("buying %s: %w", c.Ticker, err)
	}

	liquidity := e.store.Liquidity(c.Ticker, date, e.config.LiquidityLookbackDays, c.MarketCap)
	cost := e.estimator.Estimate(liquidity, notional)
	if !cost.CapacityFeasible {
		e.logger.WithFields(logrus.Fields{
			"ticker":        c.Ticker,
			"participation": cost.ParticipationRate,
		}).Warn("Trade exceeds participation ceiling")
	}

	return &models.Trade{
		Ticker:   c.Ticker,
		Action:   models.TradeActionBuy,
		Shares:   decimal.NewFromFloat(shares),
		Price:    decimal.NewFromFloat(price),
		Notional: decimal.NewFromFloat(notional),
		Cost:     cost,
	}, nil
}

// harvestLosses sells risky-free loss lots in continuing positions.
// Departures are already liquidated; wash-sale flagged lots are left alone.
func (e *Engine) harvestLosses(state *RunState, targetSet map[string]bool, date time.Time) ([]models.Trade, decimal.Decimal, float64) {
	prices := make(map[string]float64)
	for ticker := range state.Holdings {
		if price, ok := e.store.PriceAt(ticker, date); ok {
			prices[ticker] = price
		}
	}

	candidates := e.ledger.HarvestingCandidates(prices, e.config.HarvestThreshold,
		e.config.WashRule, e.config.WashWindowDays, date)

	var trades []models.Trade
	tax := decimal.Zero
	cost := 0.0

	for _, cand := range candidates {
		if cand.WashSaleRisk || !targetSet[cand.Ticker] {
			continue
		}
		shares := cand.Shares.InexactFloat64()
		price := prices[cand.Ticker]

		rec, err := e.ledger.SellSpecific(cand.Ticker, []uuid.UUID{cand.LotID}, shares, price, date)
		if err != nil {
			e.logger.WithError(err).WithField("ticker", cand.Ticker).Warn("Harvest sale failed, skipping lot")
			continue
		}

		notional := shares * price
		held := state.Holdings[cand.Ticker]
		liquidity := e.store.Liquidity(cand.Ticker, date, e.config.LiquidityLookbackDays, held.MarketCap)
		estimate := e.estimator.Estimate(liquidity, notional)

		trades = append(trades, models.Trade{
			Ticker:    cand.Ticker,
			Action:    models.TradeActionSell,
			Shares:    cand.Shares,
			Price:     decimal.NewFromFloat(price),
			Notional:  decimal.NewFromFloat(notional),
			Cost:      estimate,
			Sale:      &rec,
			Harvested: true,
		})
		tax = tax.Add(rec.TotalTax)
		cost += estimate.TotalCost * notional
	}
	return trades, tax, cost
}

// periodReturns builds the equal-weighted daily return series over the
// period's trading days. A ticker missing a price on either side of a day
// drops out of that day's average.
func (e *Engine) periodReturns(portfolio []models.CandidateStock, p schedule.Period) ([]float64, []time.Time) {
	days := e.store.TradingDays(p.Start, p.End)
	if len(days) < 2 || len(portfolio) == 0 {
		return nil, nil
	}

	returns := make([]float64, 0, len(days)-1)
	dates := make([]time.Time, 0, len(days)-1)
	for i := 1; i < len(days); i++ {
		sum := 0.0
		count := 0
		for _, c := range portfolio {
			prev, okPrev := e.store.PriceAt(c.Ticker, days[i-1])
			curr, okCurr := e.store.PriceAt(c.Ticker, days[i])
			if !okPrev || !okCurr || prev <= 0 {
				continue
			}
			sum += curr/prev - 1
			count++
		}
		r := 0.0
		if count > 0 {
			r = sum / float64(count)
		}
		returns = append(returns, r)
		dates = append(dates, days[i])
	}
	return returns, dates
}

// openPositionPrices maps every ticker with open lots to its last known
// price on or before the date.
func (e *Engine) openPositionPrices(date time.Time) map[string]float64 {
	prices := make(map[string]float64)
	for ticker := range e.ledger.OpenPositions() {
		if price, ok := e.store.PriceAt(ticker, date); ok {
			prices[ticker] = price
		}
	}
	return prices
}

func (e *Engine) buildRunSummary(state *RunState, perf Performance) models.BacktestRun {
	now := time.Now().UTC()
	totalCost := decimal.Zero
	for _, p := range state.Periods {
		totalCost = totalCost.Add(p.TransactionCost)
	}
	return models.BacktestRun{
		ID:             uuid.New(),
		RunDate:        now,
		StartDate:      e.config.StartDate,
		EndDate:        e.config.EndDate,
		Frequency:      string(e.config.Frequency),
		PortfolioSize:  e.config.PortfolioSize,
		InitialCapital: decimal.NewFromFloat(e.config.InitialCapital),
		FinalCapital:   decimal.NewFromFloat(state.Equity),
		TotalReturn:    perf.TotalReturn,
		AfterTaxReturn: perf.TotalReturn,
		SharpeRatio:    perf.SharpeRatio,
		MaxDrawdown:    perf.MaxDrawdown,
		TaxPaid:        e.ledger.TaxPaid(),
		TotalCost:      totalCost,
		Periods:        len(state.Periods),
		Warnings:       state.Warnings,
		CreatedAt:      now,
	}
}

func sortedTickers(holdings map[string]models.CandidateStock) []string {
	tickers := make([]string, 0, len(holdings))
	for t := range holdings {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers
}
