package di

import (
	"fmt"
	"path/filepath"

	"github.com/aristath/sectorpilot/internal/config"
	"github.com/aristath/sectorpilot/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens the three databases and applies their schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	defs := []struct {
		name    string
		profile database.DatabaseProfile
		target  **database.DB
	}{
		// Sectors, stocks, closes and relative performance
		{database.NameUniverse, database.ProfileStandard, &container.UniverseDB},
		// Holdings, sector targets, constraints
		{database.NamePortfolio, database.ProfileStandard, &container.PortfolioDB},
		// Rebalance runs, suggestions and the audit trail
		{database.NameLedger, database.ProfileLedger, &container.LedgerDB},
	}

	for _, def := range defs {
		db, err := database.New(database.Config{
			Path:    filepath.Join(cfg.DataDir, def.name+".db"),
			Profile: def.profile,
			Name:    def.name,
		})
		if err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to initialize %s database: %w", def.name, err)
		}
		*def.target = db

		if err := db.Migrate(); err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to apply schema to %s: %w", def.name, err)
		}
	}

	log.Info().Str("data_dir", cfg.DataDir).Msg("All databases initialized and schemas applied")

	return container, nil
}
