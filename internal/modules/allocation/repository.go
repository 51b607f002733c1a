package allocation

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/sectorpilot/internal/database"
	"github.com/rs/zerolog"
)

// Repository handles sector target database operations
// Database: portfolio.db (sector_targets table)
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new allocation repository
// db parameter should be portfolio.db connection
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "allocation").Logger(),
	}
}

// GetSectorTargets returns all sector targets ordered by sector id
func (r *Repository) GetSectorTargets() ([]SectorTarget, error) {
	rows, err := r.db.Query("SELECT sector_id, target_weight, updated_at FROM sector_targets ORDER BY sector_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query sector targets: %w", err)
	}
	defer rows.Close()

	targets := make([]SectorTarget, 0)
	for rows.Next() {
		var target SectorTarget
		var updatedAt sql.NullInt64
		if err := rows.Scan(&target.SectorID, &target.TargetWeight, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sector target: %w", err)
		}
		if updatedAt.Valid {
			target.UpdatedAt = time.Unix(updatedAt.Int64, 0).UTC()
		}
		targets = append(targets, target)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sector targets: %w", err)
	}

	return targets, nil
}

// Upsert inserts or updates a single sector target
func (r *Repository) Upsert(target SectorTarget) error {
	return r.UpsertMany([]SectorTarget{target})
}

// UpsertMany writes several sector targets in one transaction
func (r *Repository) UpsertMany(targets []SectorTarget) error {
	now := time.Now().Unix()

	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		for _, t := range targets {
			_, err := tx.Exec(`
				INSERT INTO sector_targets (sector_id, target_weight, updated_at)
				VALUES (?, ?, ?)
				ON CONFLICT(sector_id) DO UPDATE SET
					target_weight = excluded.target_weight,
					updated_at = excluded.updated_at
			`, t.SectorID, t.TargetWeight, now)
			if err != nil {
				return fmt.Errorf("failed to upsert sector target %d: %w", t.SectorID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Debug().Int("count", len(targets)).Msg("Sector targets upserted")
	return nil
}

// Delete removes a sector target
func (r *Repository) Delete(sectorID int) error {
	result, err := r.db.Exec("DELETE FROM sector_targets WHERE sector_id = ?", sectorID)
	if err != nil {
		return fmt.Errorf("failed to delete sector target: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.log.Debug().
		Int("sector_id", sectorID).
		Int64("rows_affected", rowsAffected).
		Msg("Sector target deleted")

	return nil
}
