package models

// WeightBand is an inclusive [Min, Max] weight range.
type WeightBand struct {
	Min float64 `mapstructure:"min" json:"min"`
	Max float64 `mapstructure:"max" json:"max"`
}

// ConstraintSet configures portfolio construction limits. Weights are
// fractions of portfolio position count (equal weighting is assumed
// throughout the engine).
type ConstraintSet struct {
	// SectorCaps maps sector name to its maximum weight. Sectors not
	// listed fall back to DefaultSectorCap.
	SectorCaps       map[string]float64          `mapstructure:"sector_caps" json:"sector_caps"`
	DefaultSectorCap float64                     `mapstructure:"default_sector_cap" json:"default_sector_cap"`
	SegmentBands     map[MarketCapSegment]WeightBand `mapstructure:"segment_bands" json:"segment_bands"`
	BetaBand         WeightBand                  `mapstructure:"beta_band" json:"beta_band"`
	MaxPositionSize  float64                     `mapstructure:"max_position_size" json:"max_position_size"`
	MinPositions     int                         `mapstructure:"min_positions" json:"min_positions"`
	// WarmUpCount is the portfolio size below which sector/segment/beta
	// constraints are not yet enforced, so a tiny early portfolio cannot
	// reject everything.
	WarmUpCount int `mapstructure:"warm_up_count" json:"warm_up_count"`
}

// SectorCap returns the configured cap for a sector, or the default.
func (c ConstraintSet) SectorCap(sector string) float64 {
	if cap, ok := c.SectorCaps[sector]; ok {
		return cap
	}
	return c.DefaultSectorCap
}

// DefaultConstraintSet mirrors the limits used by the production screens.
func DefaultConstraintSet() ConstraintSet {
	return ConstraintSet{
		SectorCaps: map[string]float64{
			"Information Technology": 0.35,
			"Health Care":            0.25,
			"Financials":             0.25,
			"Consumer Discretionary": 0.20,
			"Industrials":            0.20,
			"Communication Services": 0.15,
			"Consumer Staples":       0.15,
			"Energy":                 0.15,
			"Materials":              0.12,
			"Real Estate":            0.12,
			"Utilities":              0.10,
		},
		DefaultSectorCap: 0.15,
		SegmentBands: map[MarketCapSegment]WeightBand{
			SegmentLargeCap: {Min: 0.30, Max: 0.70},
			SegmentMidCap:   {Min: 0.20, Max: 0.50},
			SegmentSmallCap: {Min: 0.05, Max: 0.30},
		},
		BetaBand:        WeightBand{Min: 0.5, Max: 1.5},
		MaxPositionSize: 0.08,
		MinPositions:    15,
		WarmUpCount:     15,
	}
}

// Validate checks that the bounds are internally consistent.
func (c ConstraintSet) Validate() error {
	if c.BetaBand.Min > c.BetaBand.Max {
		return NewConfigurationError("beta_band", "min %.2f exceeds max %.2f", c.BetaBand.Min, c.BetaBand.Max)
	}
	for segment, band := range c.SegmentBands {
		if band.Min > band.Max {
			return NewConfigurationError("segment_bands", "%s: min %.2f exceeds max %.2f", segment, band.Min, band.Max)
		}
	}
	for sector, cap := range c.SectorCaps {
		if cap <= 0 || cap > 1 {
			return NewConfigurationError("sector_caps", "%s: cap %.2f outside (0, 1]", sector, cap)
		}
	}
	if c.DefaultSectorCap <= 0 || c.DefaultSectorCap > 1 {
		return NewConfigurationError("default_sector_cap", "%.2f outside (0, 1]", c.DefaultSectorCap)
	}
	if c.MinPositions < 1 {
		return NewConfigurationError("min_positions", "must be at least 1")
	}
	if c.WarmUpCount < 0 {
		return NewConfigurationError("warm_up_count", "cannot be negative")
	}
	return nil
}
