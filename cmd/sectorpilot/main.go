// Package main is the sectorpilot command line tool: seed the databases, print
// scores and generate rebalancing suggestions without running the server.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/aristath/sectorpilot/internal/config"
	"github.com/aristath/sectorpilot/internal/di"
	"github.com/aristath/sectorpilot/pkg/logger"
)

// globalOptions are the persistent flags shared by every subcommand
type globalOptions struct {
	dataDir  string
	logLevel string
}

func (o *globalOptions) bind(fs *pflag.FlagSet) {
	fs.StringVar(&o.dataDir, "data-dir", "", "Directory holding the SQLite databases (overrides SECTORPILOT_DATA_DIR)")
	fs.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
}

// newRootCmd builds the command tree
func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "sectorpilot",
		Short: "Sector scoring and rebalancing suggestions",
		Long: `sectorpilot scores sectors and stocks by relative performance and
fundamentals, and suggests constraint-bounded trades that move sector weights
toward their targets.`,
		SilenceUsage: true,
	}
	opts.bind(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newSeedCmd(opts),
		newScoreCmd(opts),
		newGenerateCmd(opts),
	)

	return rootCmd
}

// open loads configuration, applies flag overrides and wires the container.
// The scheduler is not started from the CLI.
func (o *globalOptions) open(cmd *cobra.Command) (*di.Container, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load configuration: %w", err)
	}

	if o.dataDir != "" {
		abs, err := filepath.Abs(o.dataDir)
		if err != nil {
			return nil, zerolog.Nop(), fmt.Errorf("failed to resolve data directory: %w", err)
		}
		if err := os.MkdirAll(abs, 0755); err != nil {
			return nil, zerolog.Nop(), fmt.Errorf("failed to create data directory: %w", err)
		}
		cfg.DataDir = abs
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	// Seeding is explicit on the command line
	cfg.SeedFile = ""

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
		Output: cmd.ErrOrStderr(),
	})

	container, _, err := di.Wire(cfg, log, nil)
	if err != nil {
		return nil, log, err
	}
	return container, log, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
