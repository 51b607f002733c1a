package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aristath/sectorpilot/internal/seed"
)

func newSeedCmd(opts *globalOptions) *cobra.Command {
	var (
		file  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a seed YAML file into the databases",
		Long: `Load sectors, index closes, stocks, prices, holdings, sector targets and
constraint overrides from a YAML file.

Example usage:
  sectorpilot seed --file data/seed.yaml
  sectorpilot seed --file data/seed.yaml --force   # upsert into a populated universe`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := seed.Load(file)
			if err != nil {
				return err
			}

			container, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer container.Close()

			needed, err := container.Seeder.NeedsSeed()
			if err != nil {
				return err
			}
			if !needed && !force {
				return fmt.Errorf("universe already populated, use --force to upsert")
			}

			result, err := container.Seeder.Apply(f)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d sectors, %d stocks, %d prices and %d holdings from %s\n",
				result.Sectors, result.Stocks, result.Prices, result.Holdings, result.Source)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to the seed YAML file")
	cmd.Flags().BoolVar(&force, "force", false, "Upsert even when the universe already has stocks")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
