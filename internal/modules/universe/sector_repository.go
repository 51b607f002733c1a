package universe

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/aristath/sectorpilot/internal/database"
	"github.com/aristath/sectorpilot/internal/modules/scoring"
	"github.com/rs/zerolog"
)

const performanceColumns = `sector_id, date, rel_perf_1m, rel_perf_3m, rel_perf_6m, rel_perf_1y, trend, score`

// SectorRepository handles sector and sector performance database operations
// Database: universe.db (sectors, sector_performance tables)
type SectorRepository struct {
	universeDB *sql.DB
	log        zerolog.Logger
}

// NewSectorRepository creates a new sector repository
func NewSectorRepository(universeDB *sql.DB, log zerolog.Logger) *SectorRepository {
	return &SectorRepository{
		universeDB: universeDB,
		log:        log.With().Str("repo", "sector").Logger(),
	}
}

// GetAll returns every sector ordered by id
func (r *SectorRepository) GetAll() ([]Sector, error) {
	rows, err := r.universeDB.Query("SELECT id, name, nifty_code, gva_weight FROM sectors ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query sectors: %w", err)
	}
	defer rows.Close()

	sectors := make([]Sector, 0)
	for rows.Next() {
		var s Sector
		if err := rows.Scan(&s.ID, &s.Name, &s.NiftyCode, &s.GVAWeight); err != nil {
			return nil, fmt.Errorf("failed to scan sector: %w", err)
		}
		sectors = append(sectors, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sectors: %w", err)
	}

	return sectors, nil
}

// GetByID returns a sector or ErrSectorNotFound
func (r *SectorRepository) GetByID(id int) (*Sector, error) {
	var s Sector
	err := r.universeDB.QueryRow(
		"SELECT id, name, nifty_code, gva_weight FROM sectors WHERE id = ?", id,
	).Scan(&s.ID, &s.Name, &s.NiftyCode, &s.GVAWeight)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSectorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sector %d: %w", id, err)
	}
	return &s, nil
}

// GetNames maps sector ids to names
func (r *SectorRepository) GetNames() (map[int]string, error) {
	sectors, err := r.GetAll()
	if err != nil {
		return nil, err
	}
	names := make(map[int]string, len(sectors))
	for _, s := range sectors {
		names[s.ID] = s.Name
	}
	return names, nil
}

// UpsertMany inserts or updates sectors atomically
func (r *SectorRepository) UpsertMany(sectors []Sector) error {
	return database.WithTransaction(r.universeDB, func(tx *sql.Tx) error {
		for _, s := range sectors {
			if _, err := tx.Exec(`
				INSERT INTO sectors (id, name, nifty_code, gva_weight)
				VALUES (?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					name = excluded.name,
					nifty_code = excluded.nifty_code,
					gva_weight = excluded.gva_weight
			`, s.ID, s.Name, s.NiftyCode, s.GVAWeight); err != nil {
				return fmt.Errorf("failed to upsert sector %d: %w", s.ID, err)
			}
		}
		return nil
	})
}

// GetLatestPerformance returns each sector's most recent performance row,
// keyed by sector id
func (r *SectorRepository) GetLatestPerformance() (map[int]SectorPerformance, error) {
	rows, err := r.universeDB.Query(`
		SELECT ` + performanceColumns + `
		FROM sector_performance sp
		WHERE date = (SELECT MAX(date) FROM sector_performance WHERE sector_id = sp.sector_id)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest sector performance: %w", err)
	}
	defer rows.Close()

	result := make(map[int]SectorPerformance)
	for rows.Next() {
		p, err := scanPerformance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sector performance: %w", err)
		}
		result[p.SectorID] = p
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sector performance: %w", err)
	}

	return result, nil
}

// GetHistory returns up to limit performance rows for a sector, newest first
func (r *SectorRepository) GetHistory(sectorID, limit int) ([]SectorPerformance, error) {
	rows, err := r.universeDB.Query(`
		SELECT `+performanceColumns+`
		FROM sector_performance
		WHERE sector_id = ?
		ORDER BY date DESC
		LIMIT ?
	`, sectorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sector history: %w", err)
	}
	defer rows.Close()

	history := make([]SectorPerformance, 0)
	for rows.Next() {
		p, err := scanPerformance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sector performance: %w", err)
		}
		history = append(history, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sector history: %w", err)
	}

	return history, nil
}

// UpsertPerformance inserts or replaces performance rows atomically
func (r *SectorRepository) UpsertPerformance(rows []SectorPerformance) error {
	return database.WithTransaction(r.universeDB, func(tx *sql.Tx) error {
		for _, p := range rows {
			var trend interface{}
			if p.Trend != "" {
				trend = string(p.Trend)
			}
			if _, err := tx.Exec(`
				INSERT INTO sector_performance (`+performanceColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(sector_id, date) DO UPDATE SET
					rel_perf_1m = excluded.rel_perf_1m,
					rel_perf_3m = excluded.rel_perf_3m,
					rel_perf_6m = excluded.rel_perf_6m,
					rel_perf_1y = excluded.rel_perf_1y,
					trend = excluded.trend,
					score = excluded.score
			`, p.SectorID, p.Date, p.RelPerf1M, p.RelPerf3M, p.RelPerf6M, p.RelPerf1Y, trend, p.Score); err != nil {
				return fmt.Errorf("failed to upsert performance for sector %d on %s: %w", p.SectorID, p.Date, err)
			}
		}
		return nil
	})
}

func scanPerformance(rows *sql.Rows) (SectorPerformance, error) {
	var p SectorPerformance
	var rel1m, rel3m, rel6m, rel1y, score sql.NullFloat64
	var trend sql.NullString

	if err := rows.Scan(&p.SectorID, &p.Date, &rel1m, &rel3m, &rel6m, &rel1y, &trend, &score); err != nil {
		return p, err
	}

	p.RelPerf1M = nullFloatPtr(rel1m)
	p.RelPerf3M = nullFloatPtr(rel3m)
	p.RelPerf6M = nullFloatPtr(rel6m)
	p.RelPerf1Y = nullFloatPtr(rel1y)
	p.Score = nullFloatPtr(score)
	if trend.Valid {
		p.Trend = scoring.Trend(trend.String)
	}
	return p, nil
}

func nullFloatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
