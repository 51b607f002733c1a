package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aristath/sectorpilot/internal/modules/rebalancing"
)

func newGenerateCmd(opts *globalOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate rebalancing suggestions from stored data",
		Long: `Run the suggestion generator against the stored holdings, scores, targets
and constraints. The run is persisted unless --dry-run is set.

Example usage:
  sectorpilot generate
  sectorpilot generate --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer container.Close()

			run, err := container.RebalancingService.Generate(rebalancing.TriggerCLI, dryRun)
			if err != nil {
				return err
			}

			printRun(cmd.OutOrStdout(), run)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Generate without persisting the run")

	return cmd
}

func printRun(out io.Writer, run *rebalancing.Run) {
	buys, sells := run.Counts()
	label := run.ID
	if run.DryRun {
		label = "dry run"
	}
	fmt.Fprintf(out, "Run %s: %d suggestions (%d buy, %d sell), drift %.2f -> %.2f, portfolio %.2f Cr\n",
		label, len(run.Suggestions), buys, sells, run.DriftBefore, run.DriftAfterEst, run.TotalValueCr)

	if len(run.Suggestions) == 0 {
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tACTION\tTICKER\tQTY\tVALUE (CR)\tWEIGHT\tDRIFT\tBINDING")
	for i, s := range run.Suggestions {
		binding := s.BindingConstraint
		if binding == "" {
			binding = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%.2f\t%.2f\t%.2f\t%s\n",
			i+1, s.Action, s.Ticker, s.Quantity, s.EstValueCr, s.PostTradeWeight, s.PostTradeDrift, binding)
	}
	_ = w.Flush()
}
