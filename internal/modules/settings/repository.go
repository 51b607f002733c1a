// Package settings manages the risk constraints stored in the portfolio database.
package settings

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/sectorpilot/internal/database"
	"github.com/rs/zerolog"
)

// Repository handles constraint database operations.
// Constraints are numeric key-value pairs with a description. Keys that have no
// stored row fall back to the defaults in ConstraintDefinitions.
//
// Database: portfolio.db (constraints table)
type Repository struct {
	db  *sql.DB        // portfolio.db - constraints table
	log zerolog.Logger // Structured logger
}

// storedConstraint is a raw constraints row
type storedConstraint struct {
	UpdatedAt   *time.Time
	Key         string
	Description string
	Value       float64
}

// NewRepository creates a new constraints repository.
//
// Parameters:
//   - db: Database connection to portfolio.db
//   - log: Structured logger
//
// Returns:
//   - *Repository: Initialized repository instance
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "settings").Logger(),
	}
}

// Get retrieves a constraint value by key.
// Returns nil if the constraint is not stored (not an error).
//
// Parameters:
//   - key: Constraint key (e.g., "max_stock_weight")
//
// Returns:
//   - *float64: Stored value if found, nil if not found
//   - error: Error if query fails
func (r *Repository) Get(key string) (*float64, error) {
	var value float64
	err := r.db.QueryRow("SELECT value FROM constraints WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get constraint %s: %w", key, err)
	}
	return &value, nil
}

// GetFloat retrieves a constraint value, or defaultValue when it is not stored.
//
// Parameters:
//   - key: Constraint key
//   - defaultValue: Value returned when the key has no row
//
// Returns:
//   - float64: Stored value or defaultValue
//   - error: Error if query fails
func (r *Repository) GetFloat(key string, defaultValue float64) (float64, error) {
	value, err := r.Get(key)
	if err != nil {
		return defaultValue, err
	}
	if value == nil {
		return defaultValue, nil
	}
	return *value, nil
}

// GetAll retrieves every stored constraint as a map.
//
// Returns:
//   - map[string]float64: Map of constraint keys to values
//   - error: Error if query fails
func (r *Repository) GetAll() (map[string]float64, error) {
	rows, err := r.list()
	if err != nil {
		return nil, err
	}

	result := make(map[string]float64, len(rows))
	for _, row := range rows {
		result[row.Key] = row.Value
	}
	return result, nil
}

// SetMany upserts several constraints atomically. Descriptions for known keys
// are taken from ConstraintDefinitions.
//
// Parameters:
//   - values: Map of constraint keys to new values
//
// Returns:
//   - error: Error if any write fails (no value is written in that case)
func (r *Repository) SetMany(values map[string]float64) error {
	now := time.Now().Unix()

	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		for key, value := range values {
			description := ConstraintDefinitions[key].Description
			if _, err := tx.Exec(`
				INSERT INTO constraints (key, value, description, updated_at)
				VALUES (?, ?, ?, ?)
				ON CONFLICT(key) DO UPDATE SET
					value = excluded.value,
					description = excluded.description,
					updated_at = excluded.updated_at
			`, key, value, description, now); err != nil {
				return fmt.Errorf("failed to set constraint %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Debug().Int("count", len(values)).Msg("Constraints updated")
	return nil
}

// SeedDefaults inserts a row for every known constraint that has none.
// Existing values are left untouched.
//
// Returns:
//   - int: Number of rows inserted
//   - error: Error if any insert fails
func (r *Repository) SeedDefaults() (int, error) {
	inserted := 0
	now := time.Now().Unix()

	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		for key, def := range ConstraintDefinitions {
			result, err := tx.Exec(`
				INSERT OR IGNORE INTO constraints (key, value, description, updated_at)
				VALUES (?, ?, ?, ?)
			`, key, def.Default, def.Description, now)
			if err != nil {
				return fmt.Errorf("failed to seed constraint %s: %w", key, err)
			}
			n, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read seed result: %w", err)
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}

func (r *Repository) list() ([]storedConstraint, error) {
	rows, err := r.db.Query("SELECT key, value, description, updated_at FROM constraints ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("failed to get constraints: %w", err)
	}
	defer rows.Close()

	result := make([]storedConstraint, 0)
	for rows.Next() {
		var row storedConstraint
		var updatedAt sql.NullInt64
		if err := rows.Scan(&row.Key, &row.Value, &row.Description, &updatedAt); err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan constraint row")
			continue
		}
		if updatedAt.Valid {
			t := time.Unix(updatedAt.Int64, 0).UTC()
			row.UpdatedAt = &t
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating constraints: %w", err)
	}

	return result, nil
}
