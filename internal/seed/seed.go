// Package seed loads a YAML description of the universe and portfolio into
// the databases.
package seed

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aristath/sectorpilot/internal/domain"
	"github.com/aristath/sectorpilot/internal/events"
	"github.com/aristath/sectorpilot/internal/modules/allocation"
	"github.com/aristath/sectorpilot/internal/modules/portfolio"
	"github.com/aristath/sectorpilot/internal/modules/settings"
	"github.com/aristath/sectorpilot/internal/modules/universe"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// ErrInvalidSeed is returned when a seed file references unknown sectors or
// stocks, or has no sectors
var ErrInvalidSeed = errors.New("invalid seed file")

// File is the seed file layout
type File struct {
	Source        string                           `yaml:"source"`
	Sectors       []SectorSeed                     `yaml:"sectors"`
	IndexPrices   map[string][]universe.IndexPrice `yaml:"index_prices"`
	Stocks        []StockSeed                      `yaml:"stocks"`
	Holdings      []portfolio.HoldingRecord        `yaml:"holdings"`
	SectorTargets map[int]float64                  `yaml:"sector_targets"`
	Constraints   map[string]float64               `yaml:"constraints"`
}

// SectorSeed is a sector with optional performance history
type SectorSeed struct {
	universe.Sector `yaml:",inline"`
	Performance     []universe.SectorPerformance `yaml:"performance"`
}

// StockSeed is a stock with optional daily closes
type StockSeed struct {
	universe.Stock `yaml:",inline"`
	Prices         []universe.PricePoint `yaml:"prices"`
}

// Load reads and parses a seed file. The source defaults to the file name.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if f.Source == "" {
		f.Source = filepath.Base(path)
	}
	return f, nil
}

// Parse decodes seed YAML
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &f, nil
}

// Seeder writes seed files through the module repositories
type Seeder struct {
	sectors      *universe.SectorRepository
	stocks       *universe.StockRepository
	prices       *universe.PriceRepository
	holdings     *portfolio.HoldingRepository
	targets      *allocation.Repository
	settings     *settings.Service
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewSeeder creates a new seeder. eventManager may be nil.
func NewSeeder(
	sectors *universe.SectorRepository,
	stocks *universe.StockRepository,
	prices *universe.PriceRepository,
	holdings *portfolio.HoldingRepository,
	targets *allocation.Repository,
	settingsService *settings.Service,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Seeder {
	return &Seeder{
		sectors:      sectors,
		stocks:       stocks,
		prices:       prices,
		holdings:     holdings,
		targets:      targets,
		settings:     settingsService,
		eventManager: eventManager,
		log:          log.With().Str("component", "seeder").Logger(),
	}
}

// NeedsSeed reports whether the universe has no stocks yet
func (s *Seeder) NeedsSeed() (bool, error) {
	n, err := s.stocks.Count()
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// Apply validates a seed file and upserts its contents. Holdings without a
// sector take their stock's sector. Without explicit sector targets every
// sector gets an equal share of 100%. Constraints not in the file keep
// their stored or default values.
func (s *Seeder) Apply(f *File) (*events.UniverseSeededData, error) {
	if err := validate(f); err != nil {
		return nil, err
	}

	sectors := make([]universe.Sector, len(f.Sectors))
	var performance []universe.SectorPerformance
	for i, sec := range f.Sectors {
		sectors[i] = sec.Sector
		for _, p := range sec.Performance {
			p.SectorID = sec.ID
			performance = append(performance, p)
		}
	}
	if err := s.sectors.UpsertMany(sectors); err != nil {
		return nil, err
	}
	if len(performance) > 0 {
		if err := s.sectors.UpsertPerformance(performance); err != nil {
			return nil, err
		}
	}

	var indexPrices []universe.IndexPrice
	for code, closes := range f.IndexPrices {
		for _, p := range closes {
			p.Code = code
			indexPrices = append(indexPrices, p)
		}
	}
	if len(indexPrices) > 0 {
		if err := s.prices.UpsertIndexPrices(indexPrices); err != nil {
			return nil, err
		}
	}

	stocks := make([]universe.Stock, len(f.Stocks))
	stockSectors := make(map[string]int, len(f.Stocks))
	var prices []universe.PricePoint
	for i, st := range f.Stocks {
		stocks[i] = st.Stock
		stockSectors[st.Ticker] = st.SectorID
		for _, p := range st.Prices {
			p.Ticker = st.Ticker
			prices = append(prices, p)
		}
	}
	if err := s.stocks.UpsertMany(stocks); err != nil {
		return nil, err
	}
	if len(prices) > 0 {
		if err := s.prices.UpsertPrices(prices); err != nil {
			return nil, err
		}
	}

	holdings := make([]portfolio.HoldingRecord, len(f.Holdings))
	for i, h := range f.Holdings {
		if h.SectorID == 0 {
			h.SectorID = stockSectors[h.Ticker]
		}
		holdings[i] = h
	}
	if len(holdings) > 0 {
		if err := s.holdings.UpsertMany(holdings); err != nil {
			return nil, err
		}
	}

	if err := s.targets.UpsertMany(sectorTargets(f)); err != nil {
		return nil, err
	}

	if len(f.Constraints) > 0 {
		if err := s.settings.Update(f.Constraints); err != nil {
			return nil, err
		}
	}
	if err := s.settings.SeedDefaults(); err != nil {
		return nil, err
	}

	result := &events.UniverseSeededData{
		Source:   f.Source,
		Sectors:  len(sectors),
		Stocks:   len(stocks),
		Prices:   len(prices),
		Holdings: len(holdings),
	}

	s.log.Info().
		Str("source", result.Source).
		Int("sectors", result.Sectors).
		Int("stocks", result.Stocks).
		Int("prices", result.Prices).
		Int("index_prices", len(indexPrices)).
		Int("holdings", result.Holdings).
		Msg("Seed applied")

	if s.eventManager != nil {
		s.eventManager.EmitTyped("seed", result)
	}
	return result, nil
}

// sectorTargets returns the file's targets, or equal weights when it has none
func sectorTargets(f *File) []allocation.SectorTarget {
	targets := make([]allocation.SectorTarget, 0, len(f.Sectors))
	if len(f.SectorTargets) > 0 {
		for _, sec := range f.Sectors {
			if w, ok := f.SectorTargets[sec.ID]; ok {
				targets = append(targets, allocation.SectorTarget{SectorID: sec.ID, TargetWeight: w})
			}
		}
		return targets
	}

	equal := domain.Round(100/float64(len(f.Sectors)), 2)
	for _, sec := range f.Sectors {
		targets = append(targets, allocation.SectorTarget{SectorID: sec.ID, TargetWeight: equal})
	}
	return targets
}

func validate(f *File) error {
	if len(f.Sectors) == 0 {
		return fmt.Errorf("%w: no sectors", ErrInvalidSeed)
	}

	sectorIDs := make(map[int]bool, len(f.Sectors))
	for _, sec := range f.Sectors {
		if sec.ID <= 0 || sec.Name == "" {
			return fmt.Errorf("%w: sector needs a positive id and a name", ErrInvalidSeed)
		}
		sectorIDs[sec.ID] = true
	}

	tickers := make(map[string]bool, len(f.Stocks))
	for _, st := range f.Stocks {
		if st.Ticker == "" {
			return fmt.Errorf("%w: stock without ticker", ErrInvalidSeed)
		}
		if !sectorIDs[st.SectorID] {
			return fmt.Errorf("%w: stock %s references unknown sector %d", ErrInvalidSeed, st.Ticker, st.SectorID)
		}
		tickers[st.Ticker] = true
	}

	for _, h := range f.Holdings {
		if !tickers[h.Ticker] {
			return fmt.Errorf("%w: holding %s is not a seeded stock", ErrInvalidSeed, h.Ticker)
		}
		if h.Quantity < 0 || h.AvgCost < 0 {
			return fmt.Errorf("%w: holding %s has negative quantity or cost", ErrInvalidSeed, h.Ticker)
		}
	}

	for sectorID, w := range f.SectorTargets {
		if !sectorIDs[sectorID] {
			return fmt.Errorf("%w: target for unknown sector %d", ErrInvalidSeed, sectorID)
		}
		if w < 0 || w > 100 {
			return fmt.Errorf("%w: target for sector %d out of range", ErrInvalidSeed, sectorID)
		}
	}

	return nil
}
