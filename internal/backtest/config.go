package backtest

import (
	"time"

	"github.com/yourusername/tax-aware-backtest/internal/models"
	"github.com/yourusername/tax-aware-backtest/internal/schedule"
	"github.com/yourusername/tax-aware-backtest/internal/taxledger"
)

// RunConfig is everything one simulation needs. Built from app config by
// cmd/backtest; engine code never reads viper directly.
type RunConfig struct {
	StartDate      time.Time
	EndDate        time.Time
	Frequency      schedule.Frequency
	PortfolioSize  int
	InitialCapital float64

	LotMethod   models.LotSelectionMethod
	TaxProfile  models.TaxProfile
	Constraints models.ConstraintSet

	HarvestEnabled   bool
	HarvestThreshold float64
	WashRule         taxledger.WashSaleRule
	WashWindowDays   int

	// LiquidityLookbackDays is the trailing window for ADV and realized vol.
	LiquidityLookbackDays int
	// MinPricedTickers is the coverage floor below which the run records a
	// DataSufficiencyWarning.
	MinPricedTickers int

	RiskFreeRate float64
}

// DefaultRunConfig fills the knobs most runs never touch.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Frequency:             schedule.Quarterly,
		PortfolioSize:         30,
		InitialCapital:        1_000_000,
		LotMethod:             models.MethodHIFO,
		TaxProfile:            models.DefaultTaxProfile(),
		Constraints:           models.DefaultConstraintSet(),
		HarvestEnabled:        false,
		HarvestThreshold:      1000,
		WashRule:              taxledger.WashSaleAroundSale,
		WashWindowDays:        30,
		LiquidityLookbackDays: 90,
		MinPricedTickers:      10,
		RiskFreeRate:          0.02,
	}
}

// Validate checks the run configuration before any simulation work starts.
func (c RunConfig) Validate() error {
	if !c.StartDate.Before(c.EndDate) {
		return models.NewConfigurationError("dates", "start %s is not before end %s",
			c.StartDate.Format("2006-01-02"), c.EndDate.Format("2006-01-02"))
	}
	if _, err := schedule.ParseFrequency(string(c.Frequency)); err != nil {
		return err
	}
	if c.PortfolioSize < 1 {
		return models.NewConfigurationError("portfolio_size", "must be at least 1, got %d", c.PortfolioSize)
	}
	if c.InitialCapital <= 0 {
		return models.NewConfigurationError("initial_capital", "must be positive, got %.2f", c.InitialCapital)
	}
	if _, err := models.ParseLotSelectionMethod(string(c.LotMethod)); err != nil {
		return err
	}
	if c.LotMethod == models.MethodSpecificID {
		return models.NewConfigurationError("lot_method", "SpecificID is reserved for harvest sales")
	}
	if c.HarvestEnabled {
		if c.HarvestThreshold < 0 {
			return models.NewConfigurationError("harvest_threshold", "cannot be negative")
		}
		if _, err := taxledger.ParseWashSaleRule(string(c.WashRule)); err != nil {
			return err
		}
		if c.WashWindowDays < 1 {
			return models.NewConfigurationError("wash_window_days", "must be at least 1")
		}
	}
	if c.LiquidityLookbackDays < 1 {
		return models.NewConfigurationError("liquidity_lookback_days", "must be at least 1")
	}
	return c.Constraints.Validate()
}
