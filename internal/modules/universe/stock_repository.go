package universe

import (
	"database/sql"
	"fmt"

	"github.com/aristath/sectorpilot/internal/database"
	"github.com/rs/zerolog"
)

// stockColumns is the column list for the stocks table, in scanStock order
const stockColumns = `ticker, name, sector_id, market_cap_cr, revenue_growth, roe, roic, liquidity_score`

// StockRepository handles stock database operations
// Database: universe.db (stocks table)
type StockRepository struct {
	universeDB *sql.DB
	log        zerolog.Logger
}

// NewStockRepository creates a new stock repository
func NewStockRepository(universeDB *sql.DB, log zerolog.Logger) *StockRepository {
	return &StockRepository{
		universeDB: universeDB,
		log:        log.With().Str("repo", "stock").Logger(),
	}
}

// GetAll returns every stock ordered by sector then ticker
func (r *StockRepository) GetAll() ([]Stock, error) {
	return r.query("SELECT " + stockColumns + " FROM stocks ORDER BY sector_id, ticker")
}

// GetBySector returns a sector's stocks ordered by ticker
func (r *StockRepository) GetBySector(sectorID int) ([]Stock, error) {
	return r.query("SELECT "+stockColumns+" FROM stocks WHERE sector_id = ? ORDER BY ticker", sectorID)
}

// GetByTicker returns a stock or ErrStockNotFound
func (r *StockRepository) GetByTicker(ticker string) (*Stock, error) {
	stocks, err := r.query("SELECT "+stockColumns+" FROM stocks WHERE ticker = ?", ticker)
	if err != nil {
		return nil, err
	}
	if len(stocks) == 0 {
		return nil, ErrStockNotFound
	}
	return &stocks[0], nil
}

// UpsertMany inserts or updates stocks atomically
func (r *StockRepository) UpsertMany(stocks []Stock) error {
	return database.WithTransaction(r.universeDB, func(tx *sql.Tx) error {
		for _, s := range stocks {
			if _, err := tx.Exec(`
				INSERT INTO stocks (`+stockColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(ticker) DO UPDATE SET
					name = excluded.name,
					sector_id = excluded.sector_id,
					market_cap_cr = excluded.market_cap_cr,
					revenue_growth = excluded.revenue_growth,
					roe = excluded.roe,
					roic = excluded.roic,
					liquidity_score = excluded.liquidity_score
			`, s.Ticker, s.Name, s.SectorID, s.MarketCapCr, s.RevenueGrowth, s.ROE, s.ROIC, s.LiquidityScore); err != nil {
				return fmt.Errorf("failed to upsert stock %s: %w", s.Ticker, err)
			}
		}
		return nil
	})
}

// Count returns the number of stocks in the universe
func (r *StockRepository) Count() (int, error) {
	var n int
	if err := r.universeDB.QueryRow("SELECT COUNT(*) FROM stocks").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count stocks: %w", err)
	}
	return n, nil
}

func (r *StockRepository) query(query string, args ...interface{}) ([]Stock, error) {
	rows, err := r.universeDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stocks: %w", err)
	}
	defer rows.Close()

	stocks := make([]Stock, 0)
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stocks = append(stocks, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stocks: %w", err)
	}

	return stocks, nil
}

func scanStock(rows *sql.Rows) (Stock, error) {
	var s Stock
	var marketCap, revenueGrowth, roe, roic, liquidity sql.NullFloat64

	if err := rows.Scan(&s.Ticker, &s.Name, &s.SectorID, &marketCap, &revenueGrowth, &roe, &roic, &liquidity); err != nil {
		return s, err
	}

	s.MarketCapCr = marketCap.Float64
	s.LiquidityScore = liquidity.Float64
	s.RevenueGrowth = nullFloatPtr(revenueGrowth)
	s.ROE = nullFloatPtr(roe)
	s.ROIC = nullFloatPtr(roic)
	return s, nil
}
