package di

import (
	"fmt"

	"github.com/aristath/sectorpilot/internal/events"
	"github.com/aristath/sectorpilot/internal/metrics"
	"github.com/aristath/sectorpilot/internal/modules/audit"
	"github.com/aristath/sectorpilot/internal/modules/portfolio"
	"github.com/aristath/sectorpilot/internal/modules/rebalancing"
	"github.com/aristath/sectorpilot/internal/modules/scoring"
	"github.com/aristath/sectorpilot/internal/modules/settings"
	"github.com/aristath/sectorpilot/internal/modules/universe"
	"github.com/aristath/sectorpilot/internal/seed"
	"github.com/rs/zerolog"
)

// InitializeServices creates the event bus, metrics and services.
// Order matters: universe and settings feed portfolio, which feeds rebalancing.
func InitializeServices(container *Container, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)
	container.Metrics = metrics.New()

	// The audit trail records every domain event synchronously
	audit.RegisterListeners(container.EventBus, container.AuditRepo, log)

	container.ScoringEngine = scoring.NewEngine(scoring.DefaultConfig())

	container.UniverseService = universe.NewService(
		container.SectorRepo,
		container.StockRepo,
		container.PriceRepo,
		container.ScoringEngine,
		container.EventManager,
		container.Metrics,
		log,
	)

	container.SettingsService = settings.NewService(container.SettingsRepo, container.EventManager, log)
	if err := container.SettingsService.SeedDefaults(); err != nil {
		return fmt.Errorf("failed to seed default constraints: %w", err)
	}

	container.PortfolioService = portfolio.NewService(
		container.HoldingRepo,
		container.TargetRepo,
		container.UniverseService,
		container.SettingsService,
		container.EventManager,
		log,
	)

	container.Generator = rebalancing.NewGenerator(log)
	container.RebalancingService = rebalancing.NewService(
		container.Generator,
		container.PortfolioService,
		container.PortfolioService,
		container.UniverseService,
		container.SettingsService,
		container.RunRepo,
		container.EventManager,
		container.Metrics,
		log,
	)

	container.Seeder = seed.NewSeeder(
		container.SectorRepo,
		container.StockRepo,
		container.PriceRepo,
		container.HoldingRepo,
		container.TargetRepo,
		container.SettingsService,
		container.EventManager,
		log,
	)

	log.Info().Msg("Services initialized")

	return nil
}
