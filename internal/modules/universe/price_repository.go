package universe

import (
	"database/sql"
	"fmt"

	"github.com/aristath/sectorpilot/internal/database"
	"github.com/rs/zerolog"
)

const priceColumns = `ticker, date, close_price, volume, rel_strength_1m, rel_strength_3m`

// PriceRepository handles stock and index price history
// Database: universe.db (stock_prices, index_prices tables)
type PriceRepository struct {
	universeDB *sql.DB
	log        zerolog.Logger
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(universeDB *sql.DB, log zerolog.Logger) *PriceRepository {
	return &PriceRepository{
		universeDB: universeDB,
		log:        log.With().Str("repo", "price").Logger(),
	}
}

// GetLatest returns the most recent price row per ticker
func (r *PriceRepository) GetLatest() (map[string]PricePoint, error) {
	rows, err := r.universeDB.Query(`
		SELECT ` + priceColumns + `
		FROM stock_prices sp
		WHERE date = (SELECT MAX(date) FROM stock_prices WHERE ticker = sp.ticker)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest prices: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]PricePoint)
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		latest[p.Ticker] = p
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices: %w", err)
	}

	return latest, nil
}

// GetHistory returns up to limit of a ticker's most recent prices, oldest first
func (r *PriceRepository) GetHistory(ticker string, limit int) ([]PricePoint, error) {
	rows, err := r.universeDB.Query(`
		SELECT `+priceColumns+` FROM (
			SELECT `+priceColumns+` FROM stock_prices
			WHERE ticker = ?
			ORDER BY date DESC
			LIMIT ?
		) ORDER BY date ASC
	`, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	history := make([]PricePoint, 0)
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		history = append(history, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price history: %w", err)
	}

	return history, nil
}

// UpsertPrices inserts or updates stock prices atomically.
// Stored relative strength values are kept when the new row carries none.
func (r *PriceRepository) UpsertPrices(prices []PricePoint) error {
	return database.WithTransaction(r.universeDB, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO stock_prices (` + priceColumns + `)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(ticker, date) DO UPDATE SET
				close_price = excluded.close_price,
				volume = excluded.volume,
				rel_strength_1m = COALESCE(excluded.rel_strength_1m, stock_prices.rel_strength_1m),
				rel_strength_3m = COALESCE(excluded.rel_strength_3m, stock_prices.rel_strength_3m)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare price upsert: %w", err)
		}
		defer stmt.Close()

		for _, p := range prices {
			if _, err := stmt.Exec(p.Ticker, p.Date, p.Close, p.Volume, p.RelStrength1M, p.RelStrength3M); err != nil {
				return fmt.Errorf("failed to upsert price %s on %s: %w", p.Ticker, p.Date, err)
			}
		}
		return nil
	})
}

// SetRelativeStrength stores relative strength on a ticker's price row
func (r *PriceRepository) SetRelativeStrength(ticker, date string, rs1m, rs3m *float64) error {
	_, err := r.universeDB.Exec(`
		UPDATE stock_prices SET rel_strength_1m = ?, rel_strength_3m = ?
		WHERE ticker = ? AND date = ?
	`, rs1m, rs3m, ticker, date)
	if err != nil {
		return fmt.Errorf("failed to set relative strength for %s: %w", ticker, err)
	}
	return nil
}

// GetSeries returns aligned closes for a stock and an index, oldest first.
// Only dates present in both series are included.
func (r *PriceRepository) GetSeries(ticker, indexCode string) (dates []string, stock, index []float64, err error) {
	rows, err := r.universeDB.Query(`
		SELECT sp.date, sp.close_price, ip.close_price
		FROM stock_prices sp
		JOIN index_prices ip ON ip.date = sp.date AND ip.index_code = ?
		WHERE sp.ticker = ?
		ORDER BY sp.date ASC
	`, indexCode, ticker)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to query aligned series: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d string
		var s, i float64
		if err := rows.Scan(&d, &s, &i); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to scan aligned series: %w", err)
		}
		dates = append(dates, d)
		stock = append(stock, s)
		index = append(index, i)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("error iterating aligned series: %w", err)
	}

	return dates, stock, index, nil
}

// GetIndexSeries returns aligned closes for two indices, oldest first
func (r *PriceRepository) GetIndexSeries(code, benchmark string) (dates []string, series, bench []float64, err error) {
	rows, err := r.universeDB.Query(`
		SELECT a.date, a.close_price, b.close_price
		FROM index_prices a
		JOIN index_prices b ON b.date = a.date AND b.index_code = ?
		WHERE a.index_code = ?
		ORDER BY a.date ASC
	`, benchmark, code)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to query index series: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d string
		var a, b float64
		if err := rows.Scan(&d, &a, &b); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to scan index series: %w", err)
		}
		dates = append(dates, d)
		series = append(series, a)
		bench = append(bench, b)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("error iterating index series: %w", err)
	}

	return dates, series, bench, nil
}

// UpsertIndexPrices inserts or updates index closes atomically
func (r *PriceRepository) UpsertIndexPrices(prices []IndexPrice) error {
	return database.WithTransaction(r.universeDB, func(tx *sql.Tx) error {
		for _, p := range prices {
			if _, err := tx.Exec(`
				INSERT INTO index_prices (index_code, date, close_price)
				VALUES (?, ?, ?)
				ON CONFLICT(index_code, date) DO UPDATE SET close_price = excluded.close_price
			`, p.Code, p.Date, p.Close); err != nil {
				return fmt.Errorf("failed to upsert index price %s on %s: %w", p.Code, p.Date, err)
			}
		}
		return nil
	})
}

func scanPrice(rows *sql.Rows) (PricePoint, error) {
	var p PricePoint
	var volume sql.NullInt64
	var rs1m, rs3m sql.NullFloat64

	if err := rows.Scan(&p.Ticker, &p.Date, &p.Close, &volume, &rs1m, &rs3m); err != nil {
		return p, err
	}

	p.Volume = volume.Int64
	p.RelStrength1M = nullFloatPtr(rs1m)
	p.RelStrength3M = nullFloatPtr(rs3m)
	return p, nil
}
