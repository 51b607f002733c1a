package di

import (
	"fmt"

	"github.com/aristath/sectorpilot/internal/modules/allocation"
	"github.com/aristath/sectorpilot/internal/modules/audit"
	"github.com/aristath/sectorpilot/internal/modules/portfolio"
	"github.com/aristath/sectorpilot/internal/modules/rebalancing"
	"github.com/aristath/sectorpilot/internal/modules/settings"
	"github.com/aristath/sectorpilot/internal/modules/universe"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates all repositories on the open databases
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	universeDB := container.UniverseDB.Conn()
	portfolioDB := container.PortfolioDB.Conn()
	ledgerDB := container.LedgerDB.Conn()

	// universe.db
	container.SectorRepo = universe.NewSectorRepository(universeDB, log)
	container.StockRepo = universe.NewStockRepository(universeDB, log)
	container.PriceRepo = universe.NewPriceRepository(universeDB, log)

	// portfolio.db
	container.HoldingRepo = portfolio.NewHoldingRepository(portfolioDB, log)
	container.TargetRepo = allocation.NewRepository(portfolioDB, log)
	container.SettingsRepo = settings.NewRepository(portfolioDB, log)

	// ledger.db
	container.AuditRepo = audit.NewRepository(ledgerDB, log)
	container.RunRepo = rebalancing.NewRunRepository(ledgerDB, log)

	log.Info().Msg("Repositories initialized")

	return nil
}
