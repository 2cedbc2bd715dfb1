package taxledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/tax-aware-backtest/internal/models"
)

// WashSaleRule selects which replacement-purchase heuristic flags a
// candidate as wash-sale risky. Both are approximations of the 30-day
// rule: the simulation cannot see purchases that happen after the sale.
type WashSaleRule string

const (
	// WashSaleSinceAcquisition flags a lot when any other lot of the same
	// ticker was acquired after it, inside the window before the sale date.
	WashSaleSinceAcquisition WashSaleRule = "since_acquisition"
	// WashSaleAroundSale flags a lot when any other acquisition of the
	// same ticker falls within the window on either side of the sale date.
	WashSaleAroundSale WashSaleRule = "around_sale"
)

// ParseWashSaleRule validates a configured rule string.
func ParseWashSaleRule(s string) (WashSaleRule, error) {
	switch WashSaleRule(s) {
	case WashSaleSinceAcquisition, WashSaleAroundSale:
		return WashSaleRule(s), nil
	default:
		return "", models.NewConfigurationError("wash_sale_rule", "unrecognized rule %q", s)
	}
}

// HarvestingCandidates returns open lots whose unrealized loss exceeds
// lossThreshold (a positive dollar amount), sorted by tax benefit
// descending. Wash-sale risk is flagged per the rule but never filters a
// candidate out; the caller decides whether to act on risky lots.
func (l *Ledger) HarvestingCandidates(currentPrices map[string]float64, lossThreshold float64, rule WashSaleRule, windowDays int, asOf time.Time) []models.HarvestCandidate {
	threshold := decimal.NewFromFloat(lossThreshold)
	candidates := make([]models.HarvestCandidate, 0)

	for _, lot := range l.lots {
		if lot.Status != models.LotStatusOpen {
			continue
		}
		price, ok := currentPrices[lot.Ticker]
		if !ok {
			continue
		}
		priceD := decimal.NewFromFloat(price)
		gain := lot.UnrealizedGain(priceD)
		if gain.GreaterThanOrEqual(threshold.Neg()) {
			continue
		}

		longTerm := lot.IsLongTermAt(asOf)
		rate := l.profile.EffectiveShortTermRate()
		if longTerm {
			rate = l.profile.EffectiveLongTermRate()
		}

		candidates = append(candidates, models.HarvestCandidate{
			LotID:            lot.ID,
			Ticker:           lot.Ticker,
			Shares:           lot.Shares,
			AcquisitionDate:  lot.AcquisitionDate,
			AcquisitionPrice: lot.AcquisitionPrice,
			CurrentPrice:     priceD,
			UnrealizedLoss:   gain,
			LongTerm:         longTerm,
			TaxBenefit:       gain.Neg().Mul(rate),
			WashSaleRisk:     l.washSaleRisk(lot, rule, windowDays, asOf),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].TaxBenefit.GreaterThan(candidates[j].TaxBenefit)
	})

	if len(candidates) > 0 {
		l.logger.WithFields(logrus.Fields{
			"candidates": len(candidates),
			"rule":       rule,
			"as_of":      asOf.Format("2006-01-02"),
		}).Debug("Harvest candidates identified")
	}
	return candidates
}

// washSaleRisk reports whether selling the lot at asOf risks disallowance
// under the chosen heuristic. Only same-ticker open lots count as
// replacement purchases.
func (l *Ledger) washSaleRisk(lot *models.TaxLot, rule WashSaleRule, windowDays int, asOf time.Time) bool {
	window := time.Duration(windowDays) * 24 * time.Hour
	for _, other := range l.lots {
		if other.ID == lot.ID || other.Ticker != lot.Ticker || other.Status != models.LotStatusOpen {
			continue
		}
		switch rule {
		case WashSaleAroundSale:
			gap := asOf.Sub(other.AcquisitionDate)
			if gap < 0 {
				gap = -gap
			}
			if gap <= window {
				return true
			}
		default: // WashSaleSinceAcquisition
			if other.AcquisitionDate.After(lot.AcquisitionDate) && asOf.Sub(other.AcquisitionDate) <= window {
				return true
			}
		}
	}
	return false
}

// Snapshot aggregates unrealized and realized tax state at current prices.
// Pure read: never mutates lots or history.
func (l *Ledger) Snapshot(currentPrices map[string]float64, asOf time.Time) models.TaxSnapshot {
	snap := models.TaxSnapshot{
		UnrealizedShortTerm: decimal.Zero,
		UnrealizedLongTerm:  decimal.Zero,
		RealizedShortTerm:   decimal.Zero,
		RealizedLongTerm:    decimal.Zero,
		PotentialShortTax:   decimal.Zero,
		PotentialLongTax:    decimal.Zero,
		TaxPaid:             l.taxPaid,
	}

	for _, lot := range l.lots {
		if lot.Status != models.LotStatusOpen {
			continue
		}
		snap.OpenLots++
		longTerm := lot.IsLongTermAt(asOf)
		if longTerm {
			snap.LongTermLots++
		}
		price, ok := currentPrices[lot.Ticker]
		if !ok {
			continue
		}
		gain := lot.UnrealizedGain(decimal.NewFromFloat(price))
		if longTerm {
			snap.UnrealizedLongTerm = snap.UnrealizedLongTerm.Add(gain)
		} else {
			snap.UnrealizedShortTerm = snap.UnrealizedShortTerm.Add(gain)
		}
	}

	for _, rec := range l.history {
		snap.RealizedShortTerm = snap.RealizedShortTerm.Add(rec.ShortTermGain)
		snap.RealizedLongTerm = snap.RealizedLongTerm.Add(rec.LongTermGain)
	}

	snap.PotentialShortTax = snap.UnrealizedShortTerm.Mul(l.profile.EffectiveShortTermRate())
	snap.PotentialLongTax = snap.UnrealizedLongTerm.Mul(l.profile.EffectiveLongTermRate())
	return snap
}
