package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aristath/sectorpilot/internal/events"
	"github.com/aristath/sectorpilot/internal/modules/allocation"
	"github.com/aristath/sectorpilot/internal/modules/portfolio"
	"github.com/aristath/sectorpilot/internal/modules/settings"
	"github.com/aristath/sectorpilot/internal/modules/universe"
	testingutil "github.com/aristath/sectorpilot/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSeed = `
source: test
sectors:
  - id: 1
    name: IT
    nifty_code: "^CNXIT"
    gva_weight: 14.5
    performance:
      - date: "2025-01-31"
        rel_perf_3m: 4.2
        trend: Improving
  - id: 2
    name: FMCG
    nifty_code: "^CNXFMCG"
    gva_weight: 8.1
  - id: 3
    name: Pharma
    nifty_code: "^CNXPHARMA"
    gva_weight: 5.2
index_prices:
  "^NSEI":
    - date: "2025-01-30"
      close: 23000
    - date: "2025-01-31"
      close: 23500
stocks:
  - ticker: TCS.NS
    name: Tata Consultancy Services
    sector_id: 1
    market_cap_cr: 1500000
    revenue_growth: 12
    roe: 45
    roic: 50
    liquidity_score: 9
    prices:
      - date: "2025-01-30"
        close: 3950
        volume: 1800000
      - date: "2025-01-31"
        close: 4000
        volume: 2000000
  - ticker: ITC.NS
    name: ITC
    sector_id: 2
    prices:
      - date: 2025-01-31
        close: 450
        volume: 15000000
holdings:
  - ticker: TCS.NS
    quantity: 10000
    avg_cost: 3500
    target_weight: 4
  - ticker: ITC.NS
    sector_id: 2
    quantity: 10000
    avg_cost: 400
constraints:
  max_trades_per_run: 5
`

type seedFixture struct {
	seeder   *Seeder
	stocks   *universe.StockRepository
	prices   *universe.PriceRepository
	sectors  *universe.SectorRepository
	holdings *portfolio.HoldingRepository
	targets  *allocation.Repository
	settings *settings.Service
	events   []*events.Event
}

func newSeedFixture(t *testing.T) (*seedFixture, func()) {
	t.Helper()

	universeDB, cleanupUniverse := testingutil.NewTestDB(t, "universe")
	portfolioDB, cleanupPortfolio := testingutil.NewTestDB(t, "portfolio")

	log := zerolog.Nop()
	f := &seedFixture{
		sectors:  universe.NewSectorRepository(universeDB.Conn(), log),
		stocks:   universe.NewStockRepository(universeDB.Conn(), log),
		prices:   universe.NewPriceRepository(universeDB.Conn(), log),
		holdings: portfolio.NewHoldingRepository(portfolioDB.Conn(), log),
		targets:  allocation.NewRepository(portfolioDB.Conn(), log),
		settings: settings.NewService(settings.NewRepository(portfolioDB.Conn(), log), nil, log),
	}

	bus := events.NewBus(log)
	bus.Subscribe(events.UniverseSeeded, func(e *events.Event) { f.events = append(f.events, e) })

	f.seeder = NewSeeder(f.sectors, f.stocks, f.prices, f.holdings, f.targets, f.settings, events.NewManager(bus, log), log)
	return f, func() {
		cleanupPortfolio()
		cleanupUniverse()
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sectors:\n  - id: 1\n    name: IT\n    nifty_code: \"^CNXIT\"\n"), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "seed.yaml", f.Source)
	require.Len(t, f.Sectors, 1)
	assert.Equal(t, "^CNXIT", f.Sectors[0].NiftyCode)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Parse([]byte("sectors: [unterminated"))
	assert.Error(t, err)
}

func TestSeeder_Apply(t *testing.T) {
	fx, cleanup := newSeedFixture(t)
	defer cleanup()

	needs, err := fx.seeder.NeedsSeed()
	require.NoError(t, err)
	assert.True(t, needs)

	file, err := Parse([]byte(sampleSeed))
	require.NoError(t, err)

	result, err := fx.seeder.Apply(file)
	require.NoError(t, err)
	assert.Equal(t, &events.UniverseSeededData{Source: "test", Sectors: 3, Stocks: 2, Prices: 3, Holdings: 2}, result)

	needs, err = fx.seeder.NeedsSeed()
	require.NoError(t, err)
	assert.False(t, needs)

	t.Run("universe", func(t *testing.T) {
		perf, err := fx.sectors.GetLatestPerformance()
		require.NoError(t, err)
		require.Contains(t, perf, 1)
		assert.Equal(t, 4.2, *perf[1].RelPerf3M)

		itc, err := fx.stocks.GetByTicker("ITC.NS")
		require.NoError(t, err)
		assert.Nil(t, itc.ROE)

		latest, err := fx.prices.GetLatest()
		require.NoError(t, err)
		assert.Equal(t, 4000.0, latest["TCS.NS"].Close)
		assert.Equal(t, "2025-01-31", latest["ITC.NS"].Date)

		dates, _, _, err := fx.prices.GetSeries("TCS.NS", universe.BenchmarkIndex)
		require.NoError(t, err)
		assert.Len(t, dates, 2)
	})

	t.Run("holdings take their stock's sector", func(t *testing.T) {
		tcs, err := fx.holdings.GetByTicker("TCS.NS")
		require.NoError(t, err)
		assert.Equal(t, 1, tcs.SectorID)
		assert.Equal(t, 4.0, tcs.TargetWeight)
	})

	t.Run("equal weight sector targets", func(t *testing.T) {
		targets, err := fx.targets.GetSectorTargets()
		require.NoError(t, err)
		require.Len(t, targets, 3)
		for _, target := range targets {
			assert.Equal(t, 33.33, target.TargetWeight)
		}
	})

	t.Run("constraints", func(t *testing.T) {
		cs, err := fx.settings.GetConstraintSet()
		require.NoError(t, err)
		assert.Equal(t, 5, cs.MaxTradesPerRun)
		assert.Equal(t, 7.5, cs.MaxStockWeight)

		constraints, err := fx.settings.GetConstraints()
		require.NoError(t, err)
		// Every known key is stored after seeding
		for _, c := range constraints {
			assert.False(t, c.IsDefault, c.Key)
		}
	})

	require.Len(t, fx.events, 1)
	assert.Equal(t, "Seeded 3 sectors, 2 stocks and 2 holdings from test", fx.events[0].Description)
}

func TestSeeder_ExplicitTargets(t *testing.T) {
	fx, cleanup := newSeedFixture(t)
	defer cleanup()

	file, err := Parse([]byte(sampleSeed + "sector_targets:\n  1: 50\n  2: 50\n"))
	require.NoError(t, err)

	_, err = fx.seeder.Apply(file)
	require.NoError(t, err)

	targets, err := fx.targets.GetSectorTargets()
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, 50.0, targets[0].TargetWeight)
}

func TestSeeder_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no sectors", "stocks: []"},
		{"unknown stock sector", "sectors:\n  - {id: 1, name: IT}\nstocks:\n  - {ticker: X.NS, name: X, sector_id: 7}\n"},
		{"holding not seeded", "sectors:\n  - {id: 1, name: IT}\nholdings:\n  - {ticker: X.NS, quantity: 1, avg_cost: 1}\n"},
		{"target out of range", "sectors:\n  - {id: 1, name: IT}\nsector_targets:\n  1: 120\n"},
		{"target for unknown sector", "sectors:\n  - {id: 1, name: IT}\nsector_targets:\n  4: 10\n"},
	}

	fx, cleanup := newSeedFixture(t)
	defer cleanup()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)

			_, err = fx.seeder.Apply(file)
			assert.ErrorIs(t, err, ErrInvalidSeed)
		})
	}

	sectors, err := fx.sectors.GetAll()
	require.NoError(t, err)
	assert.Empty(t, sectors)
}
