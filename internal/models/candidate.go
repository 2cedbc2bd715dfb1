package models

// MarketCapSegment classifies a stock by market capitalisation for the
// size-balance constraints.
type MarketCapSegment string

const (
	SegmentLargeCap MarketCapSegment = "large_cap"
	SegmentMidCap   MarketCapSegment = "mid_cap"
	SegmentSmallCap MarketCapSegment = "small_cap"
	SegmentMicroCap MarketCapSegment = "micro_cap"
)

// SegmentForMarketCap buckets a market cap (USD) into a segment.
// Thresholds: >=$50B large, >=$5B mid, >=$1B small, below micro.
func SegmentForMarketCap(marketCap float64) MarketCapSegment {
	switch {
	case marketCap >= 50e9:
		return SegmentLargeCap
	case marketCap >= 5e9:
		return SegmentMidCap
	case marketCap >= 1e9:
		return SegmentSmallCap
	default:
		return SegmentMicroCap
	}
}

// CandidateStock is one row of the ranked candidate feed for a rebalance
// date. It is a read-only snapshot owned by the upstream ranking component;
// the engine never mutates it.
type CandidateStock struct {
	Ticker        string           `json:"ticker" validate:"required"`
	Sector        string           `json:"sector"`
	Segment       MarketCapSegment `json:"market_cap_segment"`
	MarketCap     float64          `json:"market_cap"`
	CompositeRank int              `json:"composite_rank" validate:"gt=0"`
	Beta          float64          `json:"beta"`
	BetaEstimated bool             `json:"beta_estimated"`
	Price         float64          `json:"price"`
}
