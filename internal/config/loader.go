package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads and parses the configuration from file and environment
// variables. Environment variable placeholders in the YAML file (${VAR})
// are expanded before parsing.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	v.SetEnvPrefix("TAB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults fills the knobs most configurations never touch.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "tax-aware-backtest")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("backtest.frequency", "quarterly")
	v.SetDefault("backtest.portfolio_size", 30)
	v.SetDefault("backtest.risk_free_rate", 0.02)
	v.SetDefault("backtest.output_path", "output")

	v.SetDefault("constraints.default_sector_cap", 0.15)
	v.SetDefault("constraints.beta_min", 0.5)
	v.SetDefault("constraints.beta_max", 1.5)
	v.SetDefault("constraints.max_position_size", 0.08)
	v.SetDefault("constraints.min_positions", 15)
	v.SetDefault("constraints.warm_up_count", 15)

	v.SetDefault("tax.federal_short_term_rate", 0.37)
	v.SetDefault("tax.federal_long_term_rate", 0.20)
	v.SetDefault("tax.net_investment_income_rate", 0.038)
	v.SetDefault("tax.state_rate", 0.0)
	v.SetDefault("tax.lot_method", "HIFO")
	v.SetDefault("tax.harvest_threshold", 1000)
	v.SetDefault("tax.wash_sale_rule", "around_sale")
	v.SetDefault("tax.wash_window_days", 30)

	v.SetDefault("market_data.rate_limit", 5.0)
	v.SetDefault("market_data.cache_ttl_seconds", 900)
	v.SetDefault("market_data.liquidity_lookback_days", 90)

	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
}
