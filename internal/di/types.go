// Package di wires databases, repositories, services and jobs into a Container.
package di

import (
	"github.com/aristath/sectorpilot/internal/database"
	"github.com/aristath/sectorpilot/internal/events"
	"github.com/aristath/sectorpilot/internal/metrics"
	"github.com/aristath/sectorpilot/internal/modules/allocation"
	"github.com/aristath/sectorpilot/internal/modules/audit"
	"github.com/aristath/sectorpilot/internal/modules/portfolio"
	"github.com/aristath/sectorpilot/internal/modules/rebalancing"
	"github.com/aristath/sectorpilot/internal/modules/scoring"
	"github.com/aristath/sectorpilot/internal/modules/settings"
	"github.com/aristath/sectorpilot/internal/modules/universe"
	"github.com/aristath/sectorpilot/internal/scheduler"
	"github.com/aristath/sectorpilot/internal/seed"
)

// Container holds all application dependencies.
// It is created by Wire and handed to the server and CLI.
type Container struct {
	// Databases
	UniverseDB  *database.DB
	PortfolioDB *database.DB
	LedgerDB    *database.DB

	// Infrastructure
	EventBus     *events.Bus
	EventManager *events.Manager
	Metrics      *metrics.Metrics

	// Repositories
	SectorRepo   *universe.SectorRepository
	StockRepo    *universe.StockRepository
	PriceRepo    *universe.PriceRepository
	HoldingRepo  *portfolio.HoldingRepository
	TargetRepo   *allocation.Repository
	SettingsRepo *settings.Repository
	AuditRepo    *audit.Repository
	RunRepo      *rebalancing.RunRepository

	// Services
	ScoringEngine      *scoring.Engine
	UniverseService    *universe.Service
	SettingsService    *settings.Service
	PortfolioService   *portfolio.Service
	Generator          *rebalancing.Generator
	RebalancingService *rebalancing.Service
	Seeder             *seed.Seeder
}

// JobInstances holds job references for scheduling and manual triggering
type JobInstances struct {
	Rebalance          scheduler.Job
	CheckCoreDatabases scheduler.Job
	WALCheckpoint      scheduler.Job
}

// Close closes every open database
func (c *Container) Close() {
	for _, db := range []*database.DB{c.UniverseDB, c.PortfolioDB, c.LedgerDB} {
		if db != nil {
			_ = db.Close()
		}
	}
}
