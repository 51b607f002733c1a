package scoring

import "github.com/aristath/sectorpilot/internal/domain"

// Trend is the qualitative direction of a sector's relative performance
type Trend string

const (
	TrendImproving     Trend = "Improving"
	TrendStable        Trend = "Stable"
	TrendDeteriorating Trend = "Deteriorating"
)

// StockRaw is an unscored stock with the metrics used for peer ranking.
// Nil metrics count as zero.
type StockRaw struct {
	Ticker         string   `json:"ticker" validate:"required"`
	Name           string   `json:"name"`
	SectorID       int      `json:"sector_id"`
	CurrentPrice   *float64 `json:"current_price,omitempty"`
	MarketCapCr    float64  `json:"market_cap_cr"`
	LiquidityScore float64  `json:"liquidity_score"`
	RelStrength1M  *float64 `json:"rel_strength_1m,omitempty"`
	RelStrength3M  *float64 `json:"rel_strength_3m,omitempty"`
	RevenueGrowth  *float64 `json:"revenue_growth,omitempty"`
	ROE            *float64 `json:"roe,omitempty"`
	ROIC           *float64 `json:"roic,omitempty"`
}

// ScoredStock is a stock with its percentile ranks, composite score and category
type ScoredStock struct {
	StockRaw
	RelStrengthPct   float64         `json:"rel_strength_rank_pct"`
	RevenueGrowthPct float64         `json:"revenue_growth_rank_pct"`
	ROEPct           float64         `json:"roe_rank_pct"`
	ROICPct          float64         `json:"roic_rank_pct"`
	CompositeScore   float64         `json:"composite_score"`
	Category         domain.Category `json:"leader_laggard"`
	Rank             int             `json:"rank"`
}

// Candidate converts the scored stock into a generator candidate
func (s ScoredStock) Candidate() domain.StockCandidate {
	return domain.StockCandidate{
		Ticker:         s.Ticker,
		SectorID:       s.SectorID,
		Name:           s.Name,
		CurrentPrice:   s.CurrentPrice,
		CompositeScore: s.CompositeScore,
		Category:       s.Category,
	}
}

// SectorRaw is an unscored sector with its relative performance and trend
type SectorRaw struct {
	SectorID  int      `json:"id"`
	Name      string   `json:"name"`
	NiftyCode string   `json:"nifty_code,omitempty"`
	GVAWeight float64  `json:"gva_weight,omitempty"`
	RelPerf1M *float64 `json:"rel_perf_1m,omitempty"`
	RelPerf3M *float64 `json:"rel_perf_3m,omitempty"`
	RelPerf6M *float64 `json:"rel_perf_6m,omitempty"`
	RelPerf1Y *float64 `json:"rel_perf_1y,omitempty"`
	Trend     Trend    `json:"trend"`
}

// SectorScored is a sector with its normalized performance and composite score
type SectorScored struct {
	SectorRaw
	NormalizedPerf  float64 `json:"rel_perf_normalized"`
	TrendScore      float64 `json:"trend_score"`
	VolatilityScore float64 `json:"volatility_score"`
	Score           float64 `json:"score"`
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
