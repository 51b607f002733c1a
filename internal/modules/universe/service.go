package universe

import (
	"fmt"
	"sort"
	"time"

	"github.com/aristath/sectorpilot/internal/domain"
	"github.com/aristath/sectorpilot/internal/events"
	"github.com/aristath/sectorpilot/internal/metrics"
	"github.com/aristath/sectorpilot/internal/modules/scoring"
	"github.com/aristath/sectorpilot/pkg/formulas"
	"github.com/rs/zerolog"
)

// Service builds scored views of the universe and refreshes relative performance
type Service struct {
	sectors *SectorRepository
	stocks  *StockRepository
	prices  *PriceRepository
	engine  *scoring.Engine

	eventManager *events.Manager
	metrics      *metrics.Metrics
	log          zerolog.Logger
}

// NewService creates a new universe service. eventManager and m may be nil.
func NewService(
	sectors *SectorRepository,
	stocks *StockRepository,
	prices *PriceRepository,
	engine *scoring.Engine,
	eventManager *events.Manager,
	m *metrics.Metrics,
	log zerolog.Logger,
) *Service {
	return &Service{
		sectors:      sectors,
		stocks:       stocks,
		prices:       prices,
		engine:       engine,
		eventManager: eventManager,
		metrics:      m,
		log:          log.With().Str("service", "universe").Logger(),
	}
}

// GetScoredSectors scores every sector from its latest performance and orders
// them by the chosen period's relative performance, best first. Sectors with
// no value for the period sort last, by id.
func (s *Service) GetScoredSectors(period string) ([]SectorView, error) {
	if !validPeriod(period) {
		return nil, fmt.Errorf("%w: %q (expected one of 1m, 3m, 6m, 1y)", ErrInvalidPeriod, period)
	}

	sectors, err := s.sectors.GetAll()
	if err != nil {
		return nil, err
	}
	latest, err := s.sectors.GetLatestPerformance()
	if err != nil {
		return nil, err
	}

	views := s.scoreSectors(sectors, latest, period)
	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i].RelPerf, views[j].RelPerf
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return *a > *b
	})
	return views, nil
}

// GetSectorDetails returns a sector scored against all sectors, with up to
// SectorHistoryLimit performance rows, newest first
func (s *Service) GetSectorDetails(sectorID int) (*SectorDetail, error) {
	if _, err := s.sectors.GetByID(sectorID); err != nil {
		return nil, err
	}

	views, err := s.GetScoredSectors("3m")
	if err != nil {
		return nil, err
	}

	history, err := s.sectors.GetHistory(sectorID, SectorHistoryLimit)
	if err != nil {
		return nil, err
	}

	for _, v := range views {
		if v.SectorID == sectorID {
			return &SectorDetail{SectorView: v, History: history}, nil
		}
	}
	return nil, ErrSectorNotFound
}

// GetScoredStocks scores a sector's stocks against each other and returns them
// by rank, best first
func (s *Service) GetScoredStocks(sectorID int) ([]scoring.ScoredStock, error) {
	if _, err := s.sectors.GetByID(sectorID); err != nil {
		return nil, err
	}

	stocks, err := s.stocks.GetBySector(sectorID)
	if err != nil {
		return nil, err
	}
	latest, err := s.prices.GetLatest()
	if err != nil {
		return nil, err
	}

	scored := s.engine.ScoreStocks(toRaw(stocks, latest))
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Rank < scored[j].Rank })
	return scored, nil
}

// GetStockDetails returns a stock scored within its sector, with up to
// PriceHistoryLimit closes, oldest first
func (s *Service) GetStockDetails(ticker string) (*StockDetail, error) {
	stock, err := s.stocks.GetByTicker(ticker)
	if err != nil {
		return nil, err
	}

	peers, err := s.GetScoredStocks(stock.SectorID)
	if err != nil {
		return nil, err
	}

	history, err := s.prices.GetHistory(ticker, PriceHistoryLimit)
	if err != nil {
		return nil, err
	}

	for _, p := range peers {
		if p.Ticker != ticker {
			continue
		}
		detail := &StockDetail{
			ScoredStock:  p,
			PriceHistory: history,
			PeerCount:    len(peers),
		}
		if len(history) > 0 {
			detail.LastPriceDate = history[len(history)-1].Date
		}
		return detail, nil
	}
	return nil, ErrStockNotFound
}

// GetCandidates scores every sector's stocks and returns them as generator
// candidates, grouped by sector id in ticker order
func (s *Service) GetCandidates() ([]domain.StockCandidate, error) {
	started := time.Now()

	stocks, err := s.stocks.GetAll()
	if err != nil {
		return nil, err
	}
	latest, err := s.prices.GetLatest()
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.StockCandidate, 0, len(stocks))
	for _, peers := range groupBySector(stocks) {
		for _, scored := range s.engine.ScoreStocks(toRaw(peers, latest)) {
			candidates = append(candidates, scored.Candidate())
		}
	}

	if s.metrics != nil {
		s.metrics.ScoringDuration.Observe(time.Since(started).Seconds())
	}
	s.log.Debug().Int("candidates", len(candidates)).Msg("Scored universe")

	return candidates, nil
}

// GetSectorNames maps sector ids to names
func (s *Service) GetSectorNames() (map[int]string, error) {
	return s.sectors.GetNames()
}

// GetStocks returns every stock in the universe
func (s *Service) GetStocks() ([]Stock, error) {
	return s.stocks.GetAll()
}

// GetLatestPrices returns each ticker's most recent price row
func (s *Service) GetLatestPrices() (map[string]PricePoint, error) {
	return s.prices.GetLatest()
}

// RefreshPerformance recomputes sector relative performance from index closes
// and stock relative strength from stock closes, both against BenchmarkIndex,
// and stores the results on each series' latest date. Sectors and stocks
// without enough aligned history are left untouched.
func (s *Service) RefreshPerformance() (*RefreshResult, error) {
	result := &RefreshResult{AsOf: time.Now().UTC()}

	sectors, err := s.sectors.GetAll()
	if err != nil {
		return nil, err
	}

	perf := make([]SectorPerformance, 0, len(sectors))
	for _, sector := range sectors {
		dates, series, bench, err := s.prices.GetIndexSeries(sector.NiftyCode, BenchmarkIndex)
		if err != nil {
			return nil, err
		}
		if len(dates) <= formulas.Lookback1M {
			continue
		}

		p := SectorPerformance{
			SectorID:  sector.ID,
			Date:      dates[len(dates)-1],
			RelPerf1M: formulas.RelativePerformance(series, bench, formulas.Lookback1M),
			RelPerf3M: formulas.RelativePerformance(series, bench, formulas.Lookback3M),
			RelPerf6M: formulas.RelativePerformance(series, bench, formulas.Lookback6M),
			RelPerf1Y: formulas.RelativePerformance(series, bench, formulas.Lookback1Y),
		}
		p.Trend = scoring.Trend(formulas.SectorTrend(valueOrZero(p.RelPerf1M), valueOrZero(p.RelPerf3M)))
		perf = append(perf, p)
	}

	// Sector scores are relative to each other, so score the refreshed set together
	if len(perf) > 0 {
		raw := make([]scoring.SectorRaw, len(perf))
		for i, p := range perf {
			raw[i] = scoring.SectorRaw{SectorID: p.SectorID, RelPerf3M: p.RelPerf3M, Trend: p.Trend}
		}
		for i, scored := range s.engine.ScoreSectors(raw) {
			score := domain.Round(scored.Score, 2)
			perf[i].Score = &score
		}
		if err := s.sectors.UpsertPerformance(perf); err != nil {
			return nil, err
		}
	}
	result.Sectors = len(perf)

	stocks, err := s.stocks.GetAll()
	if err != nil {
		return nil, err
	}
	for _, stock := range stocks {
		dates, series, bench, err := s.prices.GetSeries(stock.Ticker, BenchmarkIndex)
		if err != nil {
			return nil, err
		}
		if len(dates) <= formulas.Lookback1M {
			continue
		}

		rs1m := formulas.RelativePerformance(series, bench, formulas.Lookback1M)
		rs3m := formulas.RelativePerformance(series, bench, formulas.Lookback3M)
		if err := s.prices.SetRelativeStrength(stock.Ticker, dates[len(dates)-1], rs1m, rs3m); err != nil {
			return nil, err
		}
		result.Stocks++
	}

	s.log.Info().
		Int("sectors", result.Sectors).
		Int("stocks", result.Stocks).
		Msg("Relative performance refreshed")

	if s.eventManager != nil {
		s.eventManager.EmitTyped("universe", &events.ScoresRefreshedData{
			Sectors: result.Sectors,
			Stocks:  result.Stocks,
		})
	}

	return result, nil
}

func (s *Service) scoreSectors(sectors []Sector, latest map[int]SectorPerformance, period string) []SectorView {
	raw := make([]scoring.SectorRaw, len(sectors))
	for i, sector := range sectors {
		p := latest[sector.ID]
		raw[i] = scoring.SectorRaw{
			SectorID:  sector.ID,
			Name:      sector.Name,
			NiftyCode: sector.NiftyCode,
			GVAWeight: sector.GVAWeight,
			RelPerf1M: p.RelPerf1M,
			RelPerf3M: p.RelPerf3M,
			RelPerf6M: p.RelPerf6M,
			RelPerf1Y: p.RelPerf1Y,
			Trend:     p.Trend,
		}
	}

	scored := s.engine.ScoreSectors(raw)
	views := make([]SectorView, len(scored))
	for i, sc := range scored {
		p := latest[sc.SectorID]
		views[i] = SectorView{
			SectorScored: sc,
			RelPerf:      p.ForPeriod(period),
			AsOf:         p.Date,
			Period:       period,
		}
	}
	return views
}

// toRaw joins stocks with their latest price row. Missing closes leave the
// candidate without a price.
func toRaw(stocks []Stock, latest map[string]PricePoint) []scoring.StockRaw {
	raw := make([]scoring.StockRaw, len(stocks))
	for i, st := range stocks {
		r := scoring.StockRaw{
			Ticker:         st.Ticker,
			Name:           st.Name,
			SectorID:       st.SectorID,
			MarketCapCr:    st.MarketCapCr,
			LiquidityScore: st.LiquidityScore,
			RevenueGrowth:  st.RevenueGrowth,
			ROE:            st.ROE,
			ROIC:           st.ROIC,
		}
		if p, ok := latest[st.Ticker]; ok {
			if p.Close > 0 {
				price := p.Close
				r.CurrentPrice = &price
			}
			r.RelStrength1M = p.RelStrength1M
			r.RelStrength3M = p.RelStrength3M
		}
		raw[i] = r
	}
	return raw
}

// groupBySector splits stocks into per-sector slices, ordered by sector id
func groupBySector(stocks []Stock) [][]Stock {
	bySector := make(map[int][]Stock)
	ids := make([]int, 0)
	for _, st := range stocks {
		if _, ok := bySector[st.SectorID]; !ok {
			ids = append(ids, st.SectorID)
		}
		bySector[st.SectorID] = append(bySector[st.SectorID], st)
	}
	sort.Ints(ids)

	groups := make([][]Stock, len(ids))
	for i, id := range ids {
		groups[i] = bySector[id]
	}
	return groups
}

func validPeriod(period string) bool {
	for _, p := range Periods {
		if p == period {
			return true
		}
	}
	return false
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
