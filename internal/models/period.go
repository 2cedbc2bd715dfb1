package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TradeAction is the direction of an executed trade.
type TradeAction string

const (
	TradeActionBuy  TradeAction = "BUY"
	TradeActionSell TradeAction = "SELL"
)

// Trade is one executed buy or sell within a rebalance, with its cost
// estimate and (for sells) the realized tax outcome.
type Trade struct {
	Ticker      string          `json:"ticker"`
	Action      TradeAction     `json:"action"`
	Shares      decimal.Decimal `json:"shares"`
	Price       decimal.Decimal `json:"price"`
	Notional    decimal.Decimal `json:"notional"`
	Cost        CostEstimate    `json:"cost"`
	Sale        *SaleRecord     `json:"sale,omitempty"`
	Harvested   bool            `json:"harvested"`
}

// SelectionQuality records how the period's portfolio was obtained.
type SelectionQuality string

const (
	SelectionConstrained SelectionQuality = "constrained"
	// SelectionDegraded marks a fallback to unconstrained top-N or a
	// portfolio short of the requested size; downstream analysis should
	// discount such periods.
	SelectionDegraded SelectionQuality = "degraded"
)

// RebalancePeriod is one closed period of the simulation. Immutable once
// the period closes; the ordered sequence of periods is the backtest's
// primary output alongside the flat return series.
type RebalancePeriod struct {
	Start            time.Time        `json:"start"`
	End              time.Time        `json:"end"`
	Portfolio        []CandidateStock `json:"portfolio"`
	Trades           []Trade          `json:"trades"`
	DailyReturns     []float64        `json:"daily_returns"`
	RealizedReturn   float64          `json:"realized_return"`
	TransactionCost  decimal.Decimal  `json:"transaction_cost"`
	TaxPaid          decimal.Decimal  `json:"tax_paid"`
	Selection        SelectionQuality `json:"selection"`
	SelectionReason  string           `json:"selection_reason,omitempty"`
	Warnings         []string         `json:"warnings,omitempty"`
}

// NetCost is transaction cost plus tax for the period.
func (p RebalancePeriod) NetCost() decimal.Decimal {
	return p.TransactionCost.Add(p.TaxPaid)
}

// BacktestRun is the persisted summary of one complete simulation.
type BacktestRun struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	RunDate        time.Time       `db:"run_date" json:"run_date"`
	StartDate      time.Time       `db:"start_date" json:"start_date"`
	EndDate        time.Time       `db:"end_date" json:"end_date"`
	Frequency      string          `db:"frequency" json:"frequency"`
	PortfolioSize  int             `db:"portfolio_size" json:"portfolio_size"`
	InitialCapital decimal.Decimal `db:"initial_capital" json:"initial_capital"`
	FinalCapital   decimal.Decimal `db:"final_capital" json:"final_capital"`
	TotalReturn    float64         `db:"total_return" json:"total_return"`
	AfterTaxReturn float64         `db:"after_tax_return" json:"after_tax_return"`
	SharpeRatio    float64         `db:"sharpe_ratio" json:"sharpe_ratio"`
	MaxDrawdown    float64         `db:"max_drawdown" json:"max_drawdown"`
	TaxPaid        decimal.Decimal `db:"tax_paid" json:"tax_paid"`
	TotalCost      decimal.Decimal `db:"total_cost" json:"total_cost"`
	Periods        int             `db:"periods" json:"periods"`
	Warnings       []string        `db:"-" json:"warnings,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}
