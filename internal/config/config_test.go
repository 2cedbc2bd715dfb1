package config

import (
	"os"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/yourusername/tax-aware-backtest/internal/models"
)

const (
	validConfigPath     = "testdata/valid_config.yaml"
	expansionConfigPath = "testdata/expansion_config.yaml"
	badEnvConfigPath    = "testdata/bad_environment.yaml"
	invertedDatesPath   = "testdata/inverted_dates.yaml"
	oversizedPath       = "testdata/oversized_position.yaml"
)

func TestLoadConfigSuccess(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}

	if cfg.App.Name != "tax-aware-backtest" {
		t.Errorf("app name = %q", cfg.App.Name)
	}
	if cfg.Backtest.Frequency != "quarterly" {
		t.Errorf("frequency = %q", cfg.Backtest.Frequency)
	}
	if cfg.Constraints.SectorCaps["Energy"] != 0.10 {
		t.Errorf("Energy sector cap = %v", cfg.Constraints.SectorCaps["Energy"])
	}
	if !cfg.Tax.HarvestEnabled {
		t.Error("harvest_enabled should be true")
	}
	if !cfg.Database.Configured() {
		t.Error("database should report configured")
	}
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := Load(expansionConfigPath)
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}

	if cfg.Backtest.Frequency != "quarterly" {
		t.Errorf("default frequency = %q, want quarterly", cfg.Backtest.Frequency)
	}
	if cfg.Backtest.PortfolioSize != 30 {
		t.Errorf("default portfolio_size = %d, want 30", cfg.Backtest.PortfolioSize)
	}
	if cfg.Constraints.MinPositions != 15 {
		t.Errorf("default min_positions = %d, want 15", cfg.Constraints.MinPositions)
	}
	if cfg.Tax.LotMethod != "HIFO" {
		t.Errorf("default lot_method = %q, want HIFO", cfg.Tax.LotMethod)
	}
}

func TestLoadConfigFileNotFound(t *testing.T) {
	if _, err := Load("testdata/nonexistent_config.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadConfigExpandsEnvironmentPlaceholders(t *testing.T) {
	os.Setenv("TEST_DB_PASSWORD", "hunter2")
	os.Setenv("TEST_MD_API_KEY", "key-123")
	defer os.Unsetenv("TEST_DB_PASSWORD")
	defer os.Unsetenv("TEST_MD_API_KEY")

	cfg, err := Load(expansionConfigPath)
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}
	if cfg.Database.Password != "hunter2" {
		t.Errorf("database password = %q, want expanded value", cfg.Database.Password)
	}
	if cfg.MarketData.APIKey != "key-123" {
		t.Errorf("api key = %q, want expanded value", cfg.MarketData.APIKey)
	}
}

func TestLoadConfigRejectsUnknownEnvironment(t *testing.T) {
	if _, err := Load(badEnvConfigPath); err == nil {
		t.Fatal("expected error for unknown environment")
	}
}

func TestLoadConfigRejectsInvertedDates(t *testing.T) {
	if _, err := Load(invertedDatesPath); err == nil {
		t.Fatal("expected error when start_date is after end_date")
	}
}

func TestLoadConfigRejectsOversizedEqualWeight(t *testing.T) {
	// 5 positions at equal weight is 0.20 each, above the 0.08 default cap.
	if _, err := Load(oversizedPath); err == nil {
		t.Fatal("expected error when 1/portfolio_size exceeds max_position_size")
	}
}

func TestConstraintSetConversion(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}

	cons := cfg.Constraints.ConstraintSet()
	band, ok := cons.SegmentBands[models.SegmentLargeCap]
	if !ok {
		t.Fatal("large cap segment band missing after conversion")
	}
	if band.Min != 0.30 || band.Max != 0.80 {
		t.Errorf("large band = [%v, %v], want [0.30, 0.80]", band.Min, band.Max)
	}
	if cons.BetaBand.Min != 0.5 || cons.BetaBand.Max != 1.5 {
		t.Errorf("beta band = [%v, %v]", cons.BetaBand.Min, cons.BetaBand.Max)
	}
}

func TestTaxProfileConversion(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}

	profile := cfg.Tax.TaxProfile()
	// 0.37 federal + 0.038 NIIT + 0.05 state.
	if got := profile.EffectiveShortTermRate(); !got.Equal(decimal.NewFromFloat(0.458)) {
		t.Errorf("effective short-term rate = %s, want 0.458", got)
	}
	if got := profile.EffectiveLongTermRate(); !got.Equal(decimal.NewFromFloat(0.288)) {
		t.Errorf("effective long-term rate = %s, want 0.288", got)
	}
}
