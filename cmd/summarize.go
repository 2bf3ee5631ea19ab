package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bubble-cli/internal/export"
	"github.com/sells-group/bubble-cli/internal/model"
	"github.com/sells-group/bubble-cli/internal/stats"
	"github.com/sells-group/bubble-cli/internal/store"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [run-id]",
	Short: "Recompute coverage statistics for a stored run",
	Long: "Reads a run's region results from the store (the latest complete run of --type when no id is given), " +
		"prints the metric summaries and, with --write, rewrites statistics.csv and statistics.xlsx.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("summarize"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		regionType, _ := cmd.Flags().GetString("type")
		run, err := resolveRun(ctx, st, args, model.RegionType(regionType))
		if err != nil {
			return err
		}

		results, err := st.ListRegionResults(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "summarize")
		}
		summaries, err := summarizeResults(results)
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintf(os.Stdout, "Run %s (%s, %d regions)\n\n", run.ID, run.RegionType, len(results))
		formatSummaries(os.Stdout, summaries)

		if write, _ := cmd.Flags().GetBool("write"); !write {
			return nil
		}
		dir, _ := cmd.Flags().GetString("output")
		if dir == "" {
			dir = cfg.Output.Dir
		}
		layout, err := export.NewLayout(dir, run.RegionType)
		if err != nil {
			return err
		}
		if err := export.WriteStatisticsFile(layout.StatisticsCSV(), results, summaries); err != nil {
			return err
		}
		if err := export.WriteWorkbook(layout.StatisticsWorkbook(), results, summaries); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(os.Stdout, "\nWrote %s and %s\n", layout.StatisticsCSV(), layout.StatisticsWorkbook())
		return nil
	},
}

// resolveRun returns the run named in args, or the latest complete run of
// regionType.
func resolveRun(ctx context.Context, st store.Store, args []string, regionType model.RegionType) (*model.Run, error) {
	if len(args) == 1 {
		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return nil, eris.Wrapf(err, "run %s", args[0])
		}
		return run, nil
	}
	if !regionType.Valid() {
		return nil, eris.Errorf("unknown region type %q", regionType)
	}
	run, err := st.LatestRun(ctx, regionType)
	if errors.Is(err, store.ErrNotFound) {
		return nil, eris.Errorf("no complete %s run; run generate first", regionType)
	}
	if err != nil {
		return nil, eris.Wrap(err, "latest run")
	}
	return run, nil
}

// summarizeResults reduces the coverage of every processed region.
func summarizeResults(results []model.RegionResult) ([]model.Summary, error) {
	coverages := make([]model.Coverage, 0, len(results))
	for _, r := range results {
		if !r.Failed() {
			coverages = append(coverages, r.Coverage)
		}
	}
	summaries, err := stats.SummarizeAll(coverages)
	if err != nil {
		return nil, eris.Wrap(err, "summarize")
	}
	return summaries, nil
}

func init() {
	summarizeCmd.Flags().String("type", "constituencies", "region type of the latest run (constituencies, wards)")
	summarizeCmd.Flags().Bool("write", false, "rewrite statistics.csv and statistics.xlsx")
	summarizeCmd.Flags().String("output", "", "output root directory (default from config)")
	rootCmd.AddCommand(summarizeCmd)
}
