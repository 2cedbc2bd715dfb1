// Package config provides configuration management for the backtesting engine.
package config

import (
	"time"

	"github.com/yourusername/tax-aware-backtest/internal/models"
)

// Config represents the complete application configuration
type Config struct {
	App         AppConfig         `mapstructure:"app" validate:"required"`
	Backtest    BacktestConfig    `mapstructure:"backtest" validate:"required"`
	Constraints ConstraintsConfig `mapstructure:"constraints" validate:"required"`
	Tax         TaxConfig         `mapstructure:"tax" validate:"required"`
	MarketData  MarketDataConfig  `mapstructure:"market_data" validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// BacktestConfig represents the simulation window and sizing
type BacktestConfig struct {
	StartDate      string  `mapstructure:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate        string  `mapstructure:"end_date" validate:"required,datetime=2006-01-02"`
	Frequency      string  `mapstructure:"frequency" validate:"required,oneof=monthly quarterly annually"`
	PortfolioSize  int     `mapstructure:"portfolio_size" validate:"required,gt=0"`
	InitialCapital float64 `mapstructure:"initial_capital" validate:"required,gt=0"`
	RiskFreeRate   float64 `mapstructure:"risk_free_rate" validate:"gte=0,lte=1"`
	OutputPath     string  `mapstructure:"output_path"`
}

// ConstraintsConfig represents portfolio construction limits
type ConstraintsConfig struct {
	SectorCaps       map[string]float64 `mapstructure:"sector_caps"`
	DefaultSectorCap float64            `mapstructure:"default_sector_cap" validate:"required,gt=0,lte=1"`
	SegmentBands     map[string]Band    `mapstructure:"segment_bands"`
	BetaMin          float64            `mapstructure:"beta_min"`
	BetaMax          float64            `mapstructure:"beta_max" validate:"required"`
	MaxPositionSize  float64            `mapstructure:"max_position_size" validate:"required,gt=0,lte=1"`
	MinPositions     int                `mapstructure:"min_positions" validate:"required,gt=0"`
	WarmUpCount      int                `mapstructure:"warm_up_count" validate:"gte=0"`
}

// Band is a [min, max] weight range in YAML
type Band struct {
	Min float64 `mapstructure:"min" validate:"gte=0"`
	Max float64 `mapstructure:"max" validate:"gte=0,lte=1"`
}

// TaxConfig represents the tax rate schedule and lot accounting rules
type TaxConfig struct {
	FederalShortTermRate    float64 `mapstructure:"federal_short_term_rate" validate:"gte=0,lte=1"`
	FederalLongTermRate     float64 `mapstructure:"federal_long_term_rate" validate:"gte=0,lte=1"`
	NetInvestmentIncomeRate float64 `mapstructure:"net_investment_income_rate" validate:"gte=0,lte=1"`
	StateRate               float64 `mapstructure:"state_rate" validate:"gte=0,lte=1"`
	LotMethod               string  `mapstructure:"lot_method" validate:"required,oneof=FIFO LIFO HIFO"`
	HarvestEnabled          bool    `mapstructure:"harvest_enabled"`
	HarvestThreshold        float64 `mapstructure:"harvest_threshold" validate:"gte=0"`
	WashSaleRule            string  `mapstructure:"wash_sale_rule" validate:"omitempty,oneof=since_acquisition around_sale"`
	WashWindowDays          int     `mapstructure:"wash_window_days" validate:"gte=0"`
}

// MarketDataConfig represents snapshot sources for replay and ingestion
type MarketDataConfig struct {
	BarsPath              string  `mapstructure:"bars_path"`
	RankingsPath          string  `mapstructure:"rankings_path"`
	APIBaseURL            string  `mapstructure:"api_base_url" validate:"omitempty,url"`
	APIKey                string  `mapstructure:"api_key"`
	RateLimit             float64 `mapstructure:"rate_limit" validate:"gte=0"`
	CacheTTLSeconds       int     `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
	LiquidityLookbackDays int     `mapstructure:"liquidity_lookback_days" validate:"gt=0"`
}

// DatabaseConfig represents optional result persistence
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name           string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"omitempty,gt=0"`
}

// Configured reports whether persistence has been set up at all.
func (d DatabaseConfig) Configured() bool {
	return d.Host != "" && d.Name != ""
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Path    string `mapstructure:"path"`
}

// Dates parses the configured window.
func (b BacktestConfig) Dates() (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", b.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, models.NewConfigurationError("backtest.start_date", "invalid date %q", b.StartDate)
	}
	end, err := time.Parse("2006-01-02", b.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, models.NewConfigurationError("backtest.end_date", "invalid date %q", b.EndDate)
	}
	return start, end, nil
}

// ConstraintSet converts the YAML form into the engine's constraint model.
func (c ConstraintsConfig) ConstraintSet() models.ConstraintSet {
	bands := make(map[models.MarketCapSegment]models.WeightBand, len(c.SegmentBands))
	for segment, band := range c.SegmentBands {
		bands[models.MarketCapSegment(segment)] = models.WeightBand{Min: band.Min, Max: band.Max}
	}
	return models.ConstraintSet{
		SectorCaps:       c.SectorCaps,
		DefaultSectorCap: c.DefaultSectorCap,
		SegmentBands:     bands,
		BetaBand:         models.WeightBand{Min: c.BetaMin, Max: c.BetaMax},
		MaxPositionSize:  c.MaxPositionSize,
		MinPositions:     c.MinPositions,
		WarmUpCount:      c.WarmUpCount,
	}
}

// TaxProfile converts the configured rates into the ledger's profile.
func (t TaxConfig) TaxProfile() models.TaxProfile {
	return models.TaxProfile{
		FederalShortTermRate:    t.FederalShortTermRate,
		FederalLongTermRate:     t.FederalLongTermRate,
		NetInvestmentIncomeRate: t.NetInvestmentIncomeRate,
		StateRate:               t.StateRate,
	}
}
