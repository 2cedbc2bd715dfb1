package models

import "fmt"

// ConfigurationError indicates invalid configuration (bad frequency,
// impossible constraint bounds). Fatal, never retried.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// NewConfigurationError creates a ConfigurationError for a named field
func NewConfigurationError(field, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// InsufficientLotsError indicates a sell request exceeding the open share
// count for a ticker. Fatal for that operation; the caller decides whether
// to abort the run or skip the trade.
type InsufficientLotsError struct {
	Ticker    string
	Requested float64
	Available float64
}

func (e *InsufficientLotsError) Error() string {
	return fmt.Sprintf("insufficient open lots for %s: requested %.4f shares, %.4f available",
		e.Ticker, e.Requested, e.Available)
}

// DataSufficiencyWarning flags degraded data coverage (too few priced
// tickers, missing liquidity profile). Non-fatal; recorded and logged.
type DataSufficiencyWarning struct {
	Reason string
}

func (w *DataSufficiencyWarning) Error() string {
	return fmt.Sprintf("data sufficiency warning: %s", w.Reason)
}

// ConstraintInfeasibleWarning flags a selection that could not reach the
// requested size under the configured constraints. Non-fatal; the caller
// falls back to a degraded selection and the degradation is recorded on the
// period so downstream analysis can discount it.
type ConstraintInfeasibleWarning struct {
	Requested int
	Selected  int
	Reason    string
}

func (w *ConstraintInfeasibleWarning) Error() string {
	return fmt.Sprintf("constraint infeasible: selected %d of %d requested: %s",
		w.Selected, w.Requested, w.Reason)
}
