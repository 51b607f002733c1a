// Package scoring ranks stocks within their sector and sectors against each other.
//
// Stock scores are weighted sums of peer percentile ranks; sector scores blend
// normalized relative performance with the sector trend. Both are pure
// computations over the records passed in.
package scoring

import (
	"github.com/aristath/sectorpilot/internal/domain"
	"gonum.org/v1/gonum/floats"
)

// StockWeights are the composite weights of the four stock metrics
type StockWeights struct {
	RelStrength   float64 `json:"rel_strength"`
	RevenueGrowth float64 `json:"revenue_growth"`
	ROE           float64 `json:"roe"`
	ROIC          float64 `json:"roic"`
}

func (w StockWeights) vector() []float64 {
	return []float64{w.RelStrength, w.RevenueGrowth, w.ROE, w.ROIC}
}

// SectorWeights are the composite weights of the sector components
type SectorWeights struct {
	RelPerf    float64 `json:"rel_perf"`
	Trend      float64 `json:"trend"`
	Volatility float64 `json:"volatility"`
}

func (w SectorWeights) vector() []float64 {
	return []float64{w.RelPerf, w.Trend, w.Volatility}
}

// Config holds the fixed lookup tables used by the engine
type Config struct {
	Stock             StockWeights
	Sector            SectorWeights
	TrendScores       map[Trend]float64
	UnknownTrendScore float64
	// VolatilityScore is a neutral placeholder; volatility is not computed from data.
	VolatilityScore  float64
	LeaderThreshold  float64
	LaggardThreshold float64
	// EqualPerfScore is the normalized performance used when every sector performed the same.
	EqualPerfScore float64
}

// DefaultConfig returns the production scoring configuration
func DefaultConfig() Config {
	return Config{
		Stock: StockWeights{
			RelStrength:   0.35,
			RevenueGrowth: 0.25,
			ROE:           0.20,
			ROIC:          0.20,
		},
		Sector: SectorWeights{
			RelPerf:    0.40,
			Trend:      0.30,
			Volatility: 0.30,
		},
		TrendScores: map[Trend]float64{
			TrendImproving:     100,
			TrendStable:        50,
			TrendDeteriorating: 0,
		},
		UnknownTrendScore: 50,
		VolatilityScore:   50,
		LeaderThreshold:   80,
		LaggardThreshold:  30,
		EqualPerfScore:    50,
	}
}

// Engine scores stocks and sectors with an immutable configuration
type Engine struct {
	cfg Config
}

// NewEngine creates a scoring engine. The trend table is copied so later
// changes to the caller's map do not affect scoring.
func NewEngine(cfg Config) *Engine {
	trends := make(map[Trend]float64, len(cfg.TrendScores))
	for k, v := range cfg.TrendScores {
		trends[k] = v
	}
	cfg.TrendScores = trends
	return &Engine{cfg: cfg}
}

// Config returns a copy of the engine configuration
func (e *Engine) Config() Config {
	cfg := e.cfg
	cfg.TrendScores = make(map[Trend]float64, len(e.cfg.TrendScores))
	for k, v := range e.cfg.TrendScores {
		cfg.TrendScores[k] = v
	}
	return cfg
}

// ScoreStocks scores a peer set of stocks from the same sector.
// The result keeps the input order.
func (e *Engine) ScoreStocks(peers []StockRaw) []ScoredStock {
	n := len(peers)
	result := make([]ScoredStock, n)
	if n == 0 {
		return result
	}

	relStrength := make([]float64, n)
	revGrowth := make([]float64, n)
	roe := make([]float64, n)
	roic := make([]float64, n)
	for i, p := range peers {
		relStrength[i] = valueOrZero(p.RelStrength3M)
		revGrowth[i] = valueOrZero(p.RevenueGrowth)
		roe[i] = valueOrZero(p.ROE)
		roic[i] = valueOrZero(p.ROIC)
	}

	rsPct := PercentileRanks(relStrength)
	rgPct := PercentileRanks(revGrowth)
	roePct := PercentileRanks(roe)
	roicPct := PercentileRanks(roic)

	weights := e.cfg.Stock.vector()
	composites := make([]float64, n)
	for i, p := range peers {
		composite := floats.Dot(weights, []float64{rsPct[i], rgPct[i], roePct[i], roicPct[i]})
		composites[i] = composite
		result[i] = ScoredStock{
			StockRaw:         p,
			RelStrengthPct:   rsPct[i],
			RevenueGrowthPct: rgPct[i],
			ROEPct:           roePct[i],
			ROICPct:          roicPct[i],
			CompositeScore:   composite,
			Category:         e.Categorize(composite),
		}
	}

	ranks := MinRanks(composites)
	for i := range result {
		result[i].Rank = ranks[i]
	}

	return result
}

// Categorize maps a composite score to Leader, Laggard or Neutral
func (e *Engine) Categorize(score float64) domain.Category {
	switch {
	case score >= e.cfg.LeaderThreshold:
		return domain.CategoryLeader
	case score <= e.cfg.LaggardThreshold:
		return domain.CategoryLaggard
	default:
		return domain.CategoryNeutral
	}
}

// ScoreSectors scores sectors against each other. The result keeps the input order.
func (e *Engine) ScoreSectors(sectors []SectorRaw) []SectorScored {
	n := len(sectors)
	result := make([]SectorScored, n)
	if n == 0 {
		return result
	}

	perf := make([]float64, n)
	for i, s := range sectors {
		perf[i] = valueOrZero(s.RelPerf3M)
	}
	minPerf := floats.Min(perf)
	maxPerf := floats.Max(perf)

	weights := e.cfg.Sector.vector()
	for i, s := range sectors {
		normalized := e.cfg.EqualPerfScore
		if maxPerf != minPerf {
			normalized = (perf[i] - minPerf) / (maxPerf - minPerf) * 100
		}
		trendScore := e.TrendScore(s.Trend)

		result[i] = SectorScored{
			SectorRaw:       s,
			NormalizedPerf:  normalized,
			TrendScore:      trendScore,
			VolatilityScore: e.cfg.VolatilityScore,
			Score:           floats.Dot(weights, []float64{normalized, trendScore, e.cfg.VolatilityScore}),
		}
	}

	return result
}

// TrendScore maps a trend label to its score; unknown labels score neutral
func (e *Engine) TrendScore(trend Trend) float64 {
	if score, ok := e.cfg.TrendScores[trend]; ok {
		return score
	}
	return e.cfg.UnknownTrendScore
}
