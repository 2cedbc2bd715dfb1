package models

// MarketCapTier buckets a stock for the base spread anchor. Coarser than
// MarketCapSegment on purpose: spreads cluster by tradability, not by the
// index-style size bands the selector balances.
type MarketCapTier string

const (
	TierLargeCap MarketCapTier = "large_cap"
	TierMidCap   MarketCapTier = "mid_cap"
	TierSmallCap MarketCapTier = "small_cap"
	TierMicroCap MarketCapTier = "micro_cap"
	TierUnknown  MarketCapTier = "unknown"
)

// TierForMarketCap buckets a market cap (USD) into a cost tier.
// Thresholds: >=$10B large, >=$2B mid, >=$500M small, below micro.
func TierForMarketCap(marketCap float64) MarketCapTier {
	switch {
	case marketCap >= 10e9:
		return TierLargeCap
	case marketCap >= 2e9:
		return TierMidCap
	case marketCap >= 500e6:
		return TierSmallCap
	default:
		return TierMicroCap
	}
}

// LiquidityProfile carries the trailing microstructure inputs for one
// ticker, recomputed per period. Available is false when the price service
// could not supply enough history.
type LiquidityProfile struct {
	Ticker            string  `json:"ticker"`
	MarketCap         float64 `json:"market_cap"`
	AvgDollarVolume   float64 `json:"avg_dollar_volume"`
	AnnualizedVol     float64 `json:"annualized_volatility"`
	CurrentPrice      float64 `json:"current_price"`
	ObservationCount  int     `json:"observation_count"`
	Available         bool    `json:"available"`
}

// CostEstimate is the per-trade output of the cost model, expressed as
// fractions of notional. Never cached across periods.
type CostEstimate struct {
	Ticker            string        `json:"ticker"`
	BaseSpreadCost    float64       `json:"base_spread_cost"`
	MarketImpactCost  float64       `json:"market_impact_cost"`
	TotalCost         float64       `json:"total_cost"`
	ParticipationRate float64       `json:"participation_rate"`
	Tier              MarketCapTier `json:"market_cap_tier"`
	CapacityFeasible  bool          `json:"capacity_feasible"`
	DataAvailable     bool          `json:"data_available"`
}
