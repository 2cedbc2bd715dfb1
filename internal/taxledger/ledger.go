// Package taxledger owns lot-level position state and realizes gains and
// losses on sale. All money arithmetic is decimal so cost basis is conserved
// exactly across lot splits.
package taxledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/tax-aware-backtest/internal/models"
)

// Ledger tracks tax lots per ticker through Open -> (PartiallyConsumed)* ->
// Closed. Not safe for concurrent use; a backtest run is strictly
// sequential and independent runs get independent ledgers.
type Ledger struct {
	profile models.TaxProfile
	lots    []*models.TaxLot
	history []models.SaleRecord
	taxPaid decimal.Decimal
	logger  *logrus.Logger
}

// NewLedger creates an empty ledger for the given tax profile.
func NewLedger(profile models.TaxProfile, logger *logrus.Logger) *Ledger {
	if logger == nil {
		logger = logrus.New()
	}
	return &Ledger{
		profile: profile,
		taxPaid: decimal.Zero,
		logger:  logger,
	}
}

// Profile returns the ledger's tax rate schedule.
func (l *Ledger) Profile() models.TaxProfile {
	return l.profile
}

// Buy records a purchase, creating a new open lot.
func (l *Ledger) Buy(ticker string, shares, price float64, date time.Time) (*models.TaxLot, error) {
	if shares <= 0 {
		return nil, models.NewConfigurationError("shares", "buy of %s: shares must be positive, got %.4f", ticker, shares)
	}
	if price <= 0 {
		return nil, models.NewConfigurationError("price", "buy of %s: price must be positive, got %.4f", ticker, price)
	}

	lot := &models.TaxLot{
		ID:               uuid.New(),
		Ticker:           ticker,
		AcquisitionDate:  date,
		Shares:           decimal.NewFromFloat(shares),
		AcquisitionPrice: decimal.NewFromFloat(price),
		Status:           models.LotStatusOpen,
	}
	l.lots = append(l.lots, lot)

	l.logger.WithFields(logrus.Fields{
		"ticker":     ticker,
		"shares":     shares,
		"price":      price,
		"cost_basis": lot.CostBasis(),
	}).Debug("Tax lot opened")

	return lot, nil
}

// Sell consumes open lots for the ticker in the order given by method and
// returns the immutable SaleRecord. Requesting more shares than are open
// fails with InsufficientLotsError and leaves the ledger untouched.
// SpecificID sales designate their lots through SellSpecific.
func (l *Ledger) Sell(ticker string, shares, price float64, date time.Time, method models.LotSelectionMethod) (models.SaleRecord, error) {
	if method == models.MethodSpecificID {
		return models.SaleRecord{}, models.NewConfigurationError("method",
			"SpecificID sales must designate lots via SellSpecific")
	}
	open := l.openLots(ticker)
	ordered, err := orderLots(open, method)
	if err != nil {
		return models.SaleRecord{}, err
	}
	return l.consume(ticker, ordered, shares, price, date, method)
}

// SellSpecific consumes the designated lots in the order given. Lots not
// belonging to the ticker or already closed are rejected.
func (l *Ledger) SellSpecific(ticker string, lotIDs []uuid.UUID, shares, price float64, date time.Time) (models.SaleRecord, error) {
	byID := make(map[uuid.UUID]*models.TaxLot, len(l.lots))
	for _, lot := range l.lots {
		byID[lot.ID] = lot
	}

	designated := make([]*models.TaxLot, 0, len(lotIDs))
	for _, id := range lotIDs {
		lot, ok := byID[id]
		if !ok || lot.Ticker != ticker || lot.Status != models.LotStatusOpen {
			return models.SaleRecord{}, models.NewConfigurationError("lot_ids",
				"lot %s is not an open %s lot", id, ticker)
		}
		designated = append(designated, lot)
	}
	return l.consume(ticker, designated, shares, price, date, models.MethodSpecificID)
}

func (l *Ledger) consume(ticker string, ordered []*models.TaxLot, shares, price float64, date time.Time, method models.LotSelectionMethod) (models.SaleRecord, error) {
	if shares <= 0 {
		return models.SaleRecord{}, models.NewConfigurationError("shares", "sell of %s: shares must be positive, got %.4f", ticker, shares)
	}
	if price <= 0 {
		return models.SaleRecord{}, models.NewConfigurationError("price", "sell of %s: price must be positive, got %.4f", ticker, price)
	}

	want := decimal.NewFromFloat(shares)
	available := decimal.Zero
	for _, lot := range ordered {
		available = available.Add(lot.Shares)
	}
	if available.LessThan(want) {
		avail, _ := available.Float64()
		return models.SaleRecord{}, &models.InsufficientLotsError{
			Ticker:    ticker,
			Requested: shares,
			Available: avail,
		}
	}

	priceD := decimal.NewFromFloat(price)
	remaining := want
	shortGain := decimal.Zero
	longGain := decimal.Zero
	basis := decimal.Zero

	for _, lot := range ordered {
		if remaining.IsZero() {
			break
		}
		take := decimal.Min(remaining, lot.Shares)
		remaining = remaining.Sub(take)

		chunkProceeds := take.Mul(priceD)
		chunkBasis := take.Mul(lot.AcquisitionPrice)
		chunkGain := chunkProceeds.Sub(chunkBasis)
		basis = basis.Add(chunkBasis)

		if lot.IsLongTermAt(date) {
			longGain = longGain.Add(chunkGain)
		} else {
			shortGain = shortGain.Add(chunkGain)
		}

		if take.Equal(lot.Shares) {
			l.closeLot(lot, priceD, date)
		} else {
			l.splitLot(lot, take, priceD, date)
		}
	}

	shortTax := shortGain.Mul(l.profile.EffectiveShortTermRate())
	longTax := longGain.Mul(l.profile.EffectiveLongTermRate())
	totalTax := shortTax.Add(longTax)

	record := models.SaleRecord{
		ID:            uuid.New(),
		Ticker:        ticker,
		Shares:        want,
		SalePrice:     priceD,
		SaleDate:      date,
		Proceeds:      want.Mul(priceD),
		CostBasis:     basis,
		ShortTermGain: shortGain,
		LongTermGain:  longGain,
		ShortTermTax:  shortTax,
		LongTermTax:   longTax,
		TotalTax:      totalTax,
		Method:        method,
	}
	l.history = append(l.history, record)
	l.taxPaid = l.taxPaid.Add(totalTax)

	l.logger.WithFields(logrus.Fields{
		"ticker":          ticker,
		"shares":          shares,
		"price":           price,
		"short_term_gain": shortGain,
		"long_term_gain":  longGain,
		"tax":             totalTax,
		"method":          method,
	}).Debug("Sale recorded")

	return record, nil
}

// closeLot retires a fully consumed lot in place.
func (l *Ledger) closeLot(lot *models.TaxLot, price decimal.Decimal, date time.Time) {
	lot.Status = models.LotStatusClosed
	lot.SaleDate = &date
	lot.SalePrice = &price
}

// splitLot shrinks an open lot on partial sale and records the consumed
// shares as a closed derivative lot carrying the same acquisition terms.
func (l *Ledger) splitLot(lot *models.TaxLot, take, price decimal.Decimal, date time.Time) {
	lot.Shares = lot.Shares.Sub(take)

	consumed := &models.TaxLot{
		ID:               uuid.New(),
		Ticker:           lot.Ticker,
		AcquisitionDate:  lot.AcquisitionDate,
		Shares:           take,
		AcquisitionPrice: lot.AcquisitionPrice,
		Status:           models.LotStatusClosed,
		SaleDate:         &date,
		SalePrice:        &price,
		ParentID:         &lot.ID,
	}
	l.lots = append(l.lots, consumed)
}

func (l *Ledger) openLots(ticker string) []*models.TaxLot {
	open := make([]*models.TaxLot, 0)
	for _, lot := range l.lots {
		if lot.Ticker == ticker && lot.Status == models.LotStatusOpen {
			open = append(open, lot)
		}
	}
	return open
}

func orderLots(lots []*models.TaxLot, method models.LotSelectionMethod) ([]*models.TaxLot, error) {
	ordered := append([]*models.TaxLot{}, lots...)
	switch method {
	case models.MethodFIFO:
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].AcquisitionDate.Before(ordered[j].AcquisitionDate)
		})
	case models.MethodLIFO:
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].AcquisitionDate.After(ordered[j].AcquisitionDate)
		})
	case models.MethodHIFO:
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].AcquisitionPrice.GreaterThan(ordered[j].AcquisitionPrice)
		})
	default:
		return nil, models.NewConfigurationError("method", "unrecognized lot selection method %q", method)
	}
	return ordered, nil
}

// OpenShares returns the total open share count for a ticker.
func (l *Ledger) OpenShares(ticker string) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range l.openLots(ticker) {
		total = total.Add(lot.Shares)
	}
	return total
}

// OpenPositions returns open share counts keyed by ticker.
func (l *Ledger) OpenPositions() map[string]decimal.Decimal {
	positions := make(map[string]decimal.Decimal)
	for _, lot := range l.lots {
		if lot.Status != models.LotStatusOpen {
			continue
		}
		positions[lot.Ticker] = positions[lot.Ticker].Add(lot.Shares)
	}
	return positions
}

// Lots returns all lots, open and closed. Callers must not mutate them.
func (l *Ledger) Lots() []*models.TaxLot {
	return l.lots
}

// History returns the realized sale records in execution order.
func (l *Ledger) History() []models.SaleRecord {
	return l.history
}

// TaxPaid returns cumulative tax across all sales; negative contributions
// from losses offset it.
func (l *Ledger) TaxPaid() decimal.Decimal {
	return l.taxPaid
}
