package portfolio

import (
	"fmt"
	"math"
	"sort"

	"github.com/aristath/sectorpilot/internal/domain"
	"github.com/aristath/sectorpilot/internal/events"
	"github.com/aristath/sectorpilot/internal/modules/allocation"
	"github.com/aristath/sectorpilot/internal/modules/settings"
	"github.com/aristath/sectorpilot/internal/modules/universe"
	"github.com/rs/zerolog"
)

// UniverseProvider supplies prices and names for valuing holdings
type UniverseProvider interface {
	GetLatestPrices() (map[string]universe.PricePoint, error)
	GetSectorNames() (map[int]string, error)
	GetStocks() ([]universe.Stock, error)
}

// SettingsProvider supplies constraint values
type SettingsProvider interface {
	GetConstraintSet() (domain.ConstraintSet, error)
	GetValue(key string) (float64, error)
}

// TargetStore reads and writes sector targets
type TargetStore interface {
	GetSectorTargets() ([]allocation.SectorTarget, error)
	UpsertMany(targets []allocation.SectorTarget) error
}

// Service values holdings and builds the portfolio summary.
//
// It also implements the holdings and exposure providers used by the
// rebalancing service, so suggestions and the summary see the same numbers.
type Service struct {
	holdings     *HoldingRepository
	targets      TargetStore
	universe     UniverseProvider
	settings     SettingsProvider
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewService creates a new portfolio service. eventManager may be nil.
func NewService(
	holdings *HoldingRepository,
	targets TargetStore,
	universeProvider UniverseProvider,
	settingsProvider SettingsProvider,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Service {
	return &Service{
		holdings:     holdings,
		targets:      targets,
		universe:     universeProvider,
		settings:     settingsProvider,
		eventManager: eventManager,
		log:          log.With().Str("service", "portfolio").Logger(),
	}
}

// GetValuedHoldings prices every holding at its latest close and recomputes
// values (crore) and weights. Holdings without a stored close are valued at
// their average cost.
func (s *Service) GetValuedHoldings() ([]domain.Holding, error) {
	records, err := s.holdings.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to get holdings: %w", err)
	}
	prices, err := s.universe.GetLatestPrices()
	if err != nil {
		return nil, fmt.Errorf("failed to get prices: %w", err)
	}

	holdings, _ := s.value(records, prices)
	return holdings, nil
}

// GetSectorExposure compares the holdings' sector weights with the stored targets
func (s *Service) GetSectorExposure(holdings []domain.Holding) ([]domain.SectorExposure, error) {
	targets, err := s.targets.GetSectorTargets()
	if err != nil {
		return nil, fmt.Errorf("failed to get sector targets: %w", err)
	}
	names, err := s.universe.GetSectorNames()
	if err != nil {
		return nil, fmt.Errorf("failed to get sector names: %w", err)
	}
	return allocation.AssessSectorExposure(holdings, targets, names), nil
}

// GetSummary returns holdings with value, weight, drift and P&L, the sector
// exposure, drift statistics and constraint violations. An empty or
// worthless portfolio yields an empty summary.
func (s *Service) GetSummary() (*Summary, error) {
	records, err := s.holdings.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to get holdings: %w", err)
	}
	prices, err := s.universe.GetLatestPrices()
	if err != nil {
		return nil, fmt.Errorf("failed to get prices: %w", err)
	}

	summary := &Summary{
		Holdings:       make([]HoldingView, 0),
		SectorExposure: make([]SectorExposureView, 0),
		Violations:     make([]allocation.Violation, 0),
	}

	holdings, total := s.value(records, prices)
	if total <= 0 {
		return summary, nil
	}

	exposure, err := s.GetSectorExposure(holdings)
	if err != nil {
		return nil, err
	}
	constraints, err := s.settings.GetConstraintSet()
	if err != nil {
		return nil, fmt.Errorf("failed to get constraints: %w", err)
	}
	minLiquidity, err := s.settings.GetValue(settings.ConstraintMinLiquidityRatio)
	if err != nil {
		return nil, fmt.Errorf("failed to get liquidity ratio: %w", err)
	}
	alertThreshold, err := s.settings.GetValue(settings.ConstraintDriftAlertThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to get drift alert threshold: %w", err)
	}
	stockNames, err := s.stockNames()
	if err != nil {
		return nil, err
	}

	sectorNames := make(map[int]string, len(exposure))
	for _, e := range exposure {
		sectorNames[e.SectorID] = e.SectorName
	}

	invested := 0.0
	for i, h := range holdings {
		rec := records[i]
		price := prices[h.Ticker]
		drift := h.PortfolioWeight - rec.TargetWeight

		summary.Holdings = append(summary.Holdings, HoldingView{
			Ticker:           h.Ticker,
			Name:             stockNames[h.Ticker],
			Sector:           sectorNames[h.SectorID],
			PriceDate:        price.Date,
			SectorID:         h.SectorID,
			Quantity:         h.Quantity,
			AvgCost:          h.AvgCost,
			CurrentPrice:     h.CurrentPrice,
			CurrentValueCr:   domain.Round(h.CurrentValue, 2),
			PortfolioWeight:  domain.Round(h.PortfolioWeight, 2),
			TargetWeight:     rec.TargetWeight,
			Drift:            domain.Round(drift, 2),
			PnLPct:           domain.Round(pnlPct(h.AvgCost, h.CurrentPrice), 2),
			LiquidityWarning: liquidityWarning(price.Volume, h.Quantity, minLiquidity),
			DriftAlert:       math.Abs(drift) > alertThreshold,
		})
		invested += domain.ValueCr(h.Quantity, h.AvgCost)
	}

	for _, e := range exposure {
		drift := e.Drift()
		rounded := e
		rounded.ActualWeight = domain.Round(e.ActualWeight, 2)
		rounded.TargetWeight = domain.Round(e.TargetWeight, 2)
		summary.SectorExposure = append(summary.SectorExposure, SectorExposureView{
			SectorExposure: rounded,
			Drift:          domain.Round(drift, 2),
			DriftAlert:     math.Abs(drift) > alertThreshold,
		})
	}

	drift := allocation.SummarizeDrift(exposure)
	summary.Drift = allocation.DriftSummary{
		TotalAbsDrift: domain.Round(drift.TotalAbsDrift, 2),
		MaxAbsDrift:   domain.Round(drift.MaxAbsDrift, 2),
		MeanAbsDrift:  domain.Round(drift.MeanAbsDrift, 2),
		Sectors:       drift.Sectors,
	}
	summary.Violations = allocation.CheckViolations(exposure, holdings, constraints)
	summary.StalePrices = s.checkPriceStaleness(records, prices)
	summary.TotalValueCr = domain.Round(total, 2)
	if invested > 0 {
		summary.TotalPnLPct = domain.Round((total-invested)/invested*100, 2)
	}

	return summary, nil
}

// UpdateStockTargets sets target weights on held stocks. Tickers that are not
// held are skipped and returned.
func (s *Service) UpdateStockTargets(updates []StockTargetUpdate) ([]string, error) {
	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: no updates given", ErrInvalidTarget)
	}

	weights := make(map[string]float64, len(updates))
	for _, u := range updates {
		if err := domain.ValidateRecord(u); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTarget, u.Ticker, err)
		}
		weights[u.Ticker] = u.TargetWeight
	}

	skipped, err := s.holdings.SetTargetWeights(weights)
	if err != nil {
		return nil, err
	}
	sort.Strings(skipped)

	skippedSet := make(map[string]bool, len(skipped))
	for _, t := range skipped {
		skippedSet[t] = true
	}

	changes := make([]events.TargetChange, 0, len(weights))
	for ticker, weight := range weights {
		if !skippedSet[ticker] {
			changes = append(changes, events.TargetChange{Key: ticker, TargetWeight: weight})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Key < changes[j].Key })

	if len(skipped) > 0 {
		s.log.Warn().Strs("tickers", skipped).Msg("Skipped targets for stocks not held")
	}
	s.log.Info().Int("updated", len(changes)).Msg("Stock targets updated")

	if s.eventManager != nil && len(changes) > 0 {
		s.eventManager.EmitTyped("portfolio", &events.TargetsUpdatedData{Scope: "stock", Changes: changes})
	}

	return skipped, nil
}

// UpdateSectorTargets sets target weights for known sectors, creating targets
// that do not exist yet. Every update is applied or none is.
func (s *Service) UpdateSectorTargets(updates []SectorTargetUpdate) error {
	if len(updates) == 0 {
		return fmt.Errorf("%w: no updates given", ErrInvalidTarget)
	}

	names, err := s.universe.GetSectorNames()
	if err != nil {
		return fmt.Errorf("failed to get sector names: %w", err)
	}

	targets := make([]allocation.SectorTarget, 0, len(updates))
	changes := make([]events.TargetChange, 0, len(updates))
	for _, u := range updates {
		if err := domain.ValidateRecord(u); err != nil {
			return fmt.Errorf("%w: sector %d: %v", ErrInvalidTarget, u.SectorID, err)
		}
		name, ok := names[u.SectorID]
		if !ok {
			return fmt.Errorf("%w: unknown sector %d", ErrInvalidTarget, u.SectorID)
		}
		targets = append(targets, allocation.SectorTarget{SectorID: u.SectorID, TargetWeight: u.TargetWeight})
		changes = append(changes, events.TargetChange{Key: name, TargetWeight: u.TargetWeight})
	}

	if err := s.targets.UpsertMany(targets); err != nil {
		return err
	}

	s.log.Info().Int("updated", len(targets)).Msg("Sector targets updated")

	if s.eventManager != nil {
		s.eventManager.EmitTyped("portfolio", &events.TargetsUpdatedData{Scope: "sector", Changes: changes})
	}
	return nil
}

// value converts stored holdings to valued domain holdings, in record order
func (s *Service) value(records []HoldingRecord, prices map[string]universe.PricePoint) ([]domain.Holding, float64) {
	holdings := make([]domain.Holding, len(records))
	for i, rec := range records {
		price := rec.AvgCost
		if p, ok := prices[rec.Ticker]; ok && p.Close > 0 {
			price = p.Close
		} else {
			s.log.Warn().Str("ticker", rec.Ticker).Msg("No price for holding, valuing at average cost")
		}
		holdings[i] = domain.Holding{
			Ticker:       rec.Ticker,
			SectorID:     rec.SectorID,
			Quantity:     rec.Quantity,
			AvgCost:      rec.AvgCost,
			CurrentPrice: price,
		}
	}
	return domain.RecomputeWeights(holdings)
}

func (s *Service) stockNames() (map[string]string, error) {
	stocks, err := s.universe.GetStocks()
	if err != nil {
		return nil, fmt.Errorf("failed to get stocks: %w", err)
	}
	names := make(map[string]string, len(stocks))
	for _, st := range stocks {
		names[st.Ticker] = st.Name
	}
	return names, nil
}

// checkPriceStaleness returns held tickers whose latest close is missing or
// older than the newest close in the universe
func (s *Service) checkPriceStaleness(records []HoldingRecord, prices map[string]universe.PricePoint) []string {
	newest := ""
	for _, p := range prices {
		if p.Date > newest {
			newest = p.Date
		}
	}

	var stale []string
	for _, rec := range records {
		p, ok := prices[rec.Ticker]
		if !ok || p.Date < newest {
			stale = append(stale, rec.Ticker)
		}
	}

	if len(stale) > 0 {
		s.log.Warn().
			Int("stale_count", len(stale)).
			Int("total_holdings", len(records)).
			Strs("stale_tickers", stale).
			Str("newest_price_date", newest).
			Msg("Portfolio contains holdings with stale prices")
	}
	return stale
}

func pnlPct(avgCost, price float64) float64 {
	if avgCost <= 0 {
		return 0
	}
	return (price - avgCost) / avgCost * 100
}

// liquidityWarning flags positions whose daily volume is below ratio times the
// position size. Unknown volume never warns.
func liquidityWarning(volume int64, quantity int, ratio float64) bool {
	if volume <= 0 || quantity <= 0 {
		return false
	}
	return float64(volume)/float64(quantity) < ratio
}
