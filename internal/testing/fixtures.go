package testing

import (
	"database/sql"
	"testing"
	"time"
)

// SectorFixture is a sector row with its latest performance
type SectorFixture struct {
	ID        int
	Name      string
	NiftyCode string
	GVAWeight float64
	RelPerf3M float64
	Trend     string
}

// StockFixture is a stock row with fundamentals and a latest close
type StockFixture struct {
	Ticker        string
	Name          string
	SectorID      int
	RevenueGrowth float64
	ROE           float64
	ROIC          float64
	RelStrength3M float64
	Close         float64
	Volume        int64
}

// HoldingFixture is a portfolio holding row
type HoldingFixture struct {
	Ticker       string
	SectorID     int
	Quantity     int
	AvgCost      float64
	TargetWeight float64
}

// FixtureDate is the as-of date used for seeded performance and price rows
const FixtureDate = "2025-01-31"

// NewSectorFixtures returns a small set of NSE sectors
func NewSectorFixtures() []SectorFixture {
	return []SectorFixture{
		{ID: 1, Name: "IT", NiftyCode: "^CNXIT", GVAWeight: 14.5, RelPerf3M: 4.2, Trend: "Improving"},
		{ID: 2, Name: "Banking & Financial Services", NiftyCode: "^NSEBANK", GVAWeight: 7.4, RelPerf3M: -1.5, Trend: "Stable"},
		{ID: 3, Name: "FMCG", NiftyCode: "^CNXFMCG", GVAWeight: 8.1, RelPerf3M: -3.0, Trend: "Deteriorating"},
	}
}

// NewStockFixtures returns stocks for the sector fixtures
func NewStockFixtures() []StockFixture {
	return []StockFixture{
		{Ticker: "TCS.NS", Name: "Tata Consultancy Services", SectorID: 1, RevenueGrowth: 12, ROE: 45, ROIC: 50, RelStrength3M: 6, Close: 4000, Volume: 2_000_000},
		{Ticker: "INFY.NS", Name: "Infosys", SectorID: 1, RevenueGrowth: 9, ROE: 30, ROIC: 35, RelStrength3M: 2, Close: 1800, Volume: 5_000_000},
		{Ticker: "WIPRO.NS", Name: "Wipro", SectorID: 1, RevenueGrowth: 2, ROE: 14, ROIC: 15, RelStrength3M: -4, Close: 500, Volume: 8_000_000},
		{Ticker: "HDFCBANK.NS", Name: "HDFC Bank", SectorID: 2, RevenueGrowth: 18, ROE: 17, ROIC: 12, RelStrength3M: 3, Close: 1600, Volume: 9_000_000},
		{Ticker: "SBIN.NS", Name: "State Bank of India", SectorID: 2, RevenueGrowth: 11, ROE: 15, ROIC: 10, RelStrength3M: -2, Close: 800, Volume: 12_000_000},
		{Ticker: "ITC.NS", Name: "ITC", SectorID: 3, RevenueGrowth: 7, ROE: 28, ROIC: 30, RelStrength3M: 1, Close: 450, Volume: 15_000_000},
	}
}

// NewHoldingFixtures returns holdings spread over the stock fixtures
func NewHoldingFixtures() []HoldingFixture {
	return []HoldingFixture{
		{Ticker: "TCS.NS", SectorID: 1, Quantity: 10_000, AvgCost: 3500, TargetWeight: 4},
		{Ticker: "WIPRO.NS", SectorID: 1, Quantity: 40_000, AvgCost: 450, TargetWeight: 4},
		{Ticker: "SBIN.NS", SectorID: 2, Quantity: 20_000, AvgCost: 600, TargetWeight: 4},
		{Ticker: "ITC.NS", SectorID: 3, Quantity: 10_000, AvgCost: 400, TargetWeight: 4},
	}
}

// SeedUniverse inserts sector, performance, stock and price fixtures into a universe database
func SeedUniverse(t *testing.T, db *sql.DB, sectors []SectorFixture, stocks []StockFixture) {
	t.Helper()

	for _, s := range sectors {
		mustExec(t, db, `INSERT INTO sectors (id, name, nifty_code, gva_weight) VALUES (?, ?, ?, ?)`,
			s.ID, s.Name, s.NiftyCode, s.GVAWeight)
		mustExec(t, db, `INSERT INTO sector_performance (sector_id, date, rel_perf_3m, trend) VALUES (?, ?, ?, ?)`,
			s.ID, FixtureDate, s.RelPerf3M, s.Trend)
	}

	for _, s := range stocks {
		mustExec(t, db, `INSERT INTO stocks (ticker, name, sector_id, market_cap_cr, revenue_growth, roe, roic, liquidity_score)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			s.Ticker, s.Name, s.SectorID, 100000.0, s.RevenueGrowth, s.ROE, s.ROIC, 8.0)
		if s.Close > 0 {
			mustExec(t, db, `INSERT INTO stock_prices (ticker, date, close_price, volume, rel_strength_3m) VALUES (?, ?, ?, ?, ?)`,
				s.Ticker, FixtureDate, s.Close, s.Volume, s.RelStrength3M)
		}
	}
}

// SeedPortfolio inserts holdings and sector targets into a portfolio database
func SeedPortfolio(t *testing.T, db *sql.DB, holdings []HoldingFixture, sectorTargets map[int]float64) {
	t.Helper()

	now := time.Now().Unix()
	for _, h := range holdings {
		mustExec(t, db, `INSERT INTO holdings (ticker, sector_id, quantity, avg_cost, target_weight, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			h.Ticker, h.SectorID, h.Quantity, h.AvgCost, h.TargetWeight, now)
	}
	for sectorID, weight := range sectorTargets {
		mustExec(t, db, `INSERT INTO sector_targets (sector_id, target_weight, updated_at) VALUES (?, ?, ?)`,
			sectorID, weight, now)
	}
}

func mustExec(t *testing.T, db *sql.DB, query string, args ...interface{}) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("Failed to seed fixture: %v", err)
	}
}
