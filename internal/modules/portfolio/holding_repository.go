package portfolio

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/sectorpilot/internal/database"
	"github.com/rs/zerolog"
)

const holdingColumns = `ticker, sector_id, quantity, avg_cost, target_weight, updated_at`

// HoldingRepository handles holding database operations
// Database: portfolio.db (holdings table)
type HoldingRepository struct {
	portfolioDB *sql.DB
	log         zerolog.Logger
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(portfolioDB *sql.DB, log zerolog.Logger) *HoldingRepository {
	return &HoldingRepository{
		portfolioDB: portfolioDB,
		log:         log.With().Str("repo", "holding").Logger(),
	}
}

// GetAll returns all holdings ordered by ticker
func (r *HoldingRepository) GetAll() ([]HoldingRecord, error) {
	rows, err := r.portfolioDB.Query(`SELECT ` + holdingColumns + ` FROM holdings ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	holdings := make([]HoldingRecord, 0)
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	return holdings, nil
}

// GetByTicker returns a holding, or ErrHoldingNotFound
func (r *HoldingRepository) GetByTicker(ticker string) (*HoldingRecord, error) {
	rows, err := r.portfolioDB.Query(`SELECT `+holdingColumns+` FROM holdings WHERE ticker = ?`, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to query holding: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error reading holding: %w", err)
		}
		return nil, fmt.Errorf("%w: %s", ErrHoldingNotFound, ticker)
	}

	h, err := scanHolding(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan holding: %w", err)
	}
	return &h, nil
}

// GetCount returns the number of holdings
func (r *HoldingRepository) GetCount() (int, error) {
	var count int
	if err := r.portfolioDB.QueryRow("SELECT COUNT(*) FROM holdings").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count holdings: %w", err)
	}
	return count, nil
}

// UpsertMany inserts or updates holdings in one transaction
func (r *HoldingRepository) UpsertMany(holdings []HoldingRecord) error {
	now := time.Now().Unix()

	err := database.WithTransaction(r.portfolioDB, func(tx *sql.Tx) error {
		for _, h := range holdings {
			_, err := tx.Exec(`
				INSERT INTO holdings (`+holdingColumns+`)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(ticker) DO UPDATE SET
					sector_id = excluded.sector_id,
					quantity = excluded.quantity,
					avg_cost = excluded.avg_cost,
					target_weight = excluded.target_weight,
					updated_at = excluded.updated_at
			`, h.Ticker, h.SectorID, h.Quantity, h.AvgCost, h.TargetWeight, now)
			if err != nil {
				return fmt.Errorf("failed to upsert holding %s: %w", h.Ticker, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Debug().Int("count", len(holdings)).Msg("Holdings upserted")
	return nil
}

// SetTargetWeights updates target weights of existing holdings in one
// transaction. Tickers that are not held are skipped and returned.
func (r *HoldingRepository) SetTargetWeights(targets map[string]float64) ([]string, error) {
	now := time.Now().Unix()
	skipped := make([]string, 0)

	err := database.WithTransaction(r.portfolioDB, func(tx *sql.Tx) error {
		for ticker, weight := range targets {
			result, err := tx.Exec(`UPDATE holdings SET target_weight = ?, updated_at = ? WHERE ticker = ?`,
				weight, now, ticker)
			if err != nil {
				return fmt.Errorf("failed to update target for %s: %w", ticker, err)
			}
			if n, _ := result.RowsAffected(); n == 0 {
				skipped = append(skipped, ticker)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return skipped, nil
}

// Delete removes a holding
func (r *HoldingRepository) Delete(ticker string) error {
	result, err := r.portfolioDB.Exec("DELETE FROM holdings WHERE ticker = ?", ticker)
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.log.Debug().
		Str("ticker", ticker).
		Int64("rows_affected", rowsAffected).
		Msg("Holding deleted")

	return nil
}

func scanHolding(rows *sql.Rows) (HoldingRecord, error) {
	var h HoldingRecord
	var updatedAt sql.NullInt64
	if err := rows.Scan(&h.Ticker, &h.SectorID, &h.Quantity, &h.AvgCost, &h.TargetWeight, &updatedAt); err != nil {
		return h, err
	}
	if updatedAt.Valid {
		h.UpdatedAt = time.Unix(updatedAt.Int64, 0).UTC()
	}
	return h, nil
}
