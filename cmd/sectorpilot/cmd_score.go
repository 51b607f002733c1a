package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aristath/sectorpilot/internal/modules/scoring"
	"github.com/aristath/sectorpilot/internal/modules/universe"
)

func newScoreCmd(opts *globalOptions) *cobra.Command {
	var (
		sectorID int
		period   string
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Print scored sectors, or the scored stocks of one sector",
		Long: `Print every sector ranked by relative performance over --period, or,
with --sector, the stocks of that sector ranked by composite score.

Example usage:
  sectorpilot score
  sectorpilot score --period 6m
  sectorpilot score --sector 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer container.Close()

			out := cmd.OutOrStdout()
			if cmd.Flags().Changed("sector") {
				stocks, err := container.UniverseService.GetScoredStocks(sectorID)
				if err != nil {
					return err
				}
				printStocks(out, stocks)
				return nil
			}

			sectors, err := container.UniverseService.GetScoredSectors(period)
			if err != nil {
				return err
			}
			printSectors(out, sectors)
			return nil
		},
	}

	cmd.Flags().IntVar(&sectorID, "sector", 0, "Sector id whose stocks to score")
	cmd.Flags().StringVar(&period, "period", "3m", "Relative performance period: 1m, 3m, 6m, 1y")

	return cmd
}

func printSectors(out io.Writer, sectors []universe.SectorView) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSECTOR\tREL PERF\tTREND\tSCORE")
	for _, s := range sectors {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.2f\n", s.SectorID, s.Name, formatOptional(s.RelPerf), s.Trend, s.Score)
	}
	_ = w.Flush()
}

func printStocks(out io.Writer, stocks []scoring.ScoredStock) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tTICKER\tNAME\tCOMPOSITE\tCATEGORY")
	for _, s := range stocks {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%s\n", s.Rank, s.Ticker, s.Name, s.CompositeScore, s.Category)
	}
	_ = w.Flush()
}

func formatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
