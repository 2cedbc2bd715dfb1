package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LotSelectionMethod determines which open lots a sale consumes first.
type LotSelectionMethod string

const (
	// MethodFIFO sells the oldest acquisition first.
	MethodFIFO LotSelectionMethod = "FIFO"
	// MethodLIFO sells the newest acquisition first.
	MethodLIFO LotSelectionMethod = "LIFO"
	// MethodHIFO sells the highest acquisition price first, minimising
	// tax when all lots carry gains.
	MethodHIFO LotSelectionMethod = "HIFO"
	// MethodSpecificID sells caller-designated lots.
	MethodSpecificID LotSelectionMethod = "SpecificID"
)

// ParseLotSelectionMethod validates a configured method string.
func ParseLotSelectionMethod(s string) (LotSelectionMethod, error) {
	switch LotSelectionMethod(s) {
	case MethodFIFO, MethodLIFO, MethodHIFO, MethodSpecificID:
		return LotSelectionMethod(s), nil
	default:
		return "", NewConfigurationError("lot_selection_method", "unrecognized method %q", s)
	}
}

// LotStatus tracks the lifecycle of a tax lot.
type LotStatus string

const (
	LotStatusOpen   LotStatus = "open"
	LotStatusClosed LotStatus = "closed"
)

// LongTermHoldingDays is the holding period beyond which a gain is
// long-term. A lot held exactly this many days is still short-term.
const LongTermHoldingDays = 365

// TaxLot is a discrete batch of shares of one ticker acquired at one
// time and price, tracked independently for tax purposes. Owned
// exclusively by the ledger; Shares decreases on partial sale and a lot
// with zero shares is retired.
type TaxLot struct {
	ID               uuid.UUID          `json:"id"`
	Ticker           string             `json:"ticker"`
	AcquisitionDate  time.Time          `json:"acquisition_date"`
	Shares           decimal.Decimal    `json:"shares"`
	AcquisitionPrice decimal.Decimal    `json:"acquisition_price"`
	Status           LotStatus          `json:"status"`
	SaleDate         *time.Time         `json:"sale_date,omitempty"`
	SalePrice        *decimal.Decimal   `json:"sale_price,omitempty"`
	// ParentID links a closed derivative lot back to the open lot it was
	// split from on a partial sale.
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
}

// CostBasis is shares times acquisition price.
func (l *TaxLot) CostBasis() decimal.Decimal {
	return l.Shares.Mul(l.AcquisitionPrice)
}

// HoldingDays returns whole days held as of the given date.
func (l *TaxLot) HoldingDays(asOf time.Time) int {
	return int(asOf.Sub(l.AcquisitionDate).Hours() / 24)
}

// IsLongTermAt reports whether a sale on the given date would be
// long-term: strictly more than LongTermHoldingDays elapsed.
func (l *TaxLot) IsLongTermAt(saleDate time.Time) bool {
	return l.HoldingDays(saleDate) > LongTermHoldingDays
}

// UnrealizedGain values the open lot at the given price.
func (l *TaxLot) UnrealizedGain(currentPrice decimal.Decimal) decimal.Decimal {
	return l.Shares.Mul(currentPrice).Sub(l.CostBasis())
}

// TaxProfile holds the rate schedule. Effective rates are the flat sums
// used throughout the ledger.
type TaxProfile struct {
	FederalShortTermRate    float64 `mapstructure:"federal_short_term_rate" json:"federal_short_term_rate" validate:"gte=0,lte=1"`
	FederalLongTermRate     float64 `mapstructure:"federal_long_term_rate" json:"federal_long_term_rate" validate:"gte=0,lte=1"`
	NetInvestmentIncomeRate float64 `mapstructure:"net_investment_income_rate" json:"net_investment_income_rate" validate:"gte=0,lte=1"`
	StateRate               float64 `mapstructure:"state_rate" json:"state_rate" validate:"gte=0,lte=1"`
}

// DefaultTaxProfile is the top-bracket federal schedule with no state tax.
func DefaultTaxProfile() TaxProfile {
	return TaxProfile{
		FederalShortTermRate:    0.37,
		FederalLongTermRate:     0.20,
		NetInvestmentIncomeRate: 0.038,
		StateRate:               0.0,
	}
}

// EffectiveShortTermRate combines ordinary income, surtax and state rates.
func (p TaxProfile) EffectiveShortTermRate() decimal.Decimal {
	return decimal.NewFromFloat(p.FederalShortTermRate).
		Add(decimal.NewFromFloat(p.NetInvestmentIncomeRate)).
		Add(decimal.NewFromFloat(p.StateRate))
}

// EffectiveLongTermRate combines the preferential rate, surtax and state rates.
func (p TaxProfile) EffectiveLongTermRate() decimal.Decimal {
	return decimal.NewFromFloat(p.FederalLongTermRate).
		Add(decimal.NewFromFloat(p.NetInvestmentIncomeRate)).
		Add(decimal.NewFromFloat(p.StateRate))
}

// SaleRecord is the immutable result of one sell operation. A negative
// TotalTax is a credit from realized losses.
type SaleRecord struct {
	ID            uuid.UUID          `json:"id"`
	Ticker        string             `json:"ticker"`
	Shares        decimal.Decimal    `json:"shares"`
	SalePrice     decimal.Decimal    `json:"sale_price"`
	SaleDate      time.Time          `json:"sale_date"`
	Proceeds      decimal.Decimal    `json:"proceeds"`
	CostBasis     decimal.Decimal    `json:"cost_basis"`
	ShortTermGain decimal.Decimal    `json:"short_term_gain"`
	LongTermGain  decimal.Decimal    `json:"long_term_gain"`
	ShortTermTax  decimal.Decimal    `json:"short_term_tax"`
	LongTermTax   decimal.Decimal    `json:"long_term_tax"`
	TotalTax      decimal.Decimal    `json:"total_tax"`
	Method        LotSelectionMethod `json:"method"`
}

// TotalGain is the sum of short- and long-term gain.
func (s SaleRecord) TotalGain() decimal.Decimal {
	return s.ShortTermGain.Add(s.LongTermGain)
}

// AfterTaxProceeds is proceeds less tax owed.
func (s SaleRecord) AfterTaxProceeds() decimal.Decimal {
	return s.Proceeds.Sub(s.TotalTax)
}

// HarvestCandidate is an open lot carrying a harvestable unrealized loss.
type HarvestCandidate struct {
	LotID            uuid.UUID       `json:"lot_id"`
	Ticker           string          `json:"ticker"`
	Shares           decimal.Decimal `json:"shares"`
	AcquisitionDate  time.Time       `json:"acquisition_date"`
	AcquisitionPrice decimal.Decimal `json:"acquisition_price"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	UnrealizedLoss   decimal.Decimal `json:"unrealized_loss"`
	LongTerm         bool            `json:"long_term"`
	TaxBenefit       decimal.Decimal `json:"tax_benefit"`
	WashSaleRisk     bool            `json:"wash_sale_risk"`
}

// TaxSnapshot aggregates the ledger's tax position. Pure read output.
type TaxSnapshot struct {
	UnrealizedShortTerm decimal.Decimal `json:"unrealized_short_term"`
	UnrealizedLongTerm  decimal.Decimal `json:"unrealized_long_term"`
	RealizedShortTerm   decimal.Decimal `json:"realized_short_term"`
	RealizedLongTerm    decimal.Decimal `json:"realized_long_term"`
	TaxPaid             decimal.Decimal `json:"tax_paid"`
	PotentialShortTax   decimal.Decimal `json:"potential_short_term_tax"`
	PotentialLongTax    decimal.Decimal `json:"potential_long_term_tax"`
	OpenLots            int             `json:"open_lots"`
	LongTermLots        int             `json:"long_term_lots"`
}

// PotentialTax is the liability if every open position were sold today.
func (t TaxSnapshot) PotentialTax() decimal.Decimal {
	return t.PotentialShortTax.Add(t.PotentialLongTax)
}
