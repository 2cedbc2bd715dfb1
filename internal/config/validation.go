package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yourusername/tax-aware-backtest/internal/models"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
// plus the cross-field checks the tag language cannot express.
func (cv *CustomValidator) Validate(cfg *Config) error {
	if err := cv.validator.Struct(cfg); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return validateCrossField(cfg)
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func validateCrossField(cfg *Config) error {
	start, end, err := cfg.Backtest.Dates()
	if err != nil {
		return err
	}
	if !start.Before(end) {
		return models.NewConfigurationError("backtest", "start_date %s must be before end_date %s",
			cfg.Backtest.StartDate, cfg.Backtest.EndDate)
	}

	if cfg.Constraints.BetaMin > cfg.Constraints.BetaMax {
		return models.NewConfigurationError("constraints.beta",
			"beta_min %.2f exceeds beta_max %.2f", cfg.Constraints.BetaMin, cfg.Constraints.BetaMax)
	}
	for segment, band := range cfg.Constraints.SegmentBands {
		if band.Min > band.Max {
			return models.NewConfigurationError("constraints.segment_bands",
				"%s: min %.2f exceeds max %.2f", segment, band.Min, band.Max)
		}
	}
	if err := cfg.Constraints.ConstraintSet().Validate(); err != nil {
		return err
	}

	// Equal weighting pins every position at 1/size.
	if cfg.Backtest.PortfolioSize > 0 {
		weight := 1.0 / float64(cfg.Backtest.PortfolioSize)
		if weight > cfg.Constraints.MaxPositionSize {
			return models.NewConfigurationError("constraints.max_position_size",
				"portfolio_size %d implies %.4f per position, above the %.4f cap",
				cfg.Backtest.PortfolioSize, weight, cfg.Constraints.MaxPositionSize)
		}
	}

	if cfg.Tax.HarvestEnabled && cfg.Tax.WashWindowDays < 1 {
		return models.NewConfigurationError("tax.wash_window_days",
			"must be at least 1 when harvesting is enabled")
	}
	return nil
}

// formatValidationErrors converts validator errors into a readable message
func formatValidationErrors(errs validator.ValidationErrors) error {
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, fmt.Sprintf("%s failed on %q", e.Namespace(), e.Tag()))
	}
	return models.NewConfigurationError("", "%s", strings.Join(messages, "; "))
}
