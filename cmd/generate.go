package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bubble-cli/internal/export"
	"github.com/sells-group/bubble-cli/internal/model"
	"github.com/sells-group/bubble-cli/internal/monitoring"
	"github.com/sells-group/bubble-cli/internal/pipeline"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate bubbles for every region of a boundary set",
	Long: "Loads constituency or ward boundaries, packs inclusion (and optionally exclusion) bubbles into each, " +
		"scores coverage and writes bubbles.csv, per-region CSVs and JPEGs, statistics.csv/xlsx and bubbles.geojson.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyGenerateFlags(cmd)
		if err := cfg.Validate("generate"); err != nil {
			return err
		}
		regionType := model.RegionType(cfg.Regions.Type)

		kernels, err := kernelFactory(cfg.Regions.Kernel)
		if err != nil {
			return err
		}
		projector, err := initProjector()
		if err != nil {
			return err
		}
		regions, err := loadRegions(ctx, regionType, cfg.Regions.Name)
		if err != nil {
			return err
		}

		layout, err := export.NewLayout(cfg.Output.Dir, regionType)
		if err != nil {
			return err
		}
		exporter, err := pipeline.NewExportObserver(layout, projector, pipeline.ExportOptions{
			Workbook: cfg.Output.Workbook,
			GeoJSON:  cfg.Output.GeoJSON,
		})
		if err != nil {
			return err
		}
		observers := []pipeline.Observer{exporter}
		if cfg.Output.Images {
			observers = append(observers, pipeline.NewRenderObserver(layout))
		}

		metrics, err := monitoring.NewMetrics(nil)
		if err != nil {
			return err
		}
		opts := []pipeline.Option{pipeline.WithObservers(observers...), pipeline.WithMetrics(metrics)}

		if noStore, _ := cmd.Flags().GetBool("no-store"); !noStore {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			opts = append(opts, pipeline.WithStore(st))
		}

		runner, err := pipeline.NewRunner(pipeline.Config{
			RegionType:  regionType,
			Options:     cfg.Engine,
			Kernels:     kernels,
			KernelName:  cfg.Regions.Kernel,
			Region:      cfg.Regions.Name,
			Concurrency: cfg.Batch.Concurrency,
		}, opts...)
		if err != nil {
			return err
		}

		report, err := runner.Run(ctx, regions)
		if err != nil {
			return eris.Wrap(err, "generate")
		}

		formatReport(os.Stdout, report, layout.Dir)
		if report.Failed == len(report.Results) && len(report.Results) > 0 {
			return eris.Errorf("generate: all %d regions failed", report.Failed)
		}
		return nil
	},
}

// applyGenerateFlags copies explicitly set flags over the loaded config.
func applyGenerateFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("type") {
		cfg.Regions.Type, _ = f.GetString("type")
	}
	if f.Changed("region") {
		cfg.Regions.Name, _ = f.GetString("region")
	}
	if f.Changed("kernel") {
		cfg.Regions.Kernel, _ = f.GetString("kernel")
	}
	if f.Changed("limit") {
		cfg.Engine.Limit, _ = f.GetInt("limit")
	}
	if f.Changed("exclusions") {
		cfg.Engine.Exclusions, _ = f.GetBool("exclusions")
	}
	if f.Changed("padding") {
		cfg.Engine.Padding, _ = f.GetFloat64("padding")
	}
	if f.Changed("concurrency") {
		cfg.Batch.Concurrency, _ = f.GetInt("concurrency")
	}
	if f.Changed("output") {
		cfg.Output.Dir, _ = f.GetString("output")
	}
	if noImages, _ := f.GetBool("no-images"); noImages {
		cfg.Output.Images = false
	}
	zap.L().Debug("generate settings",
		zap.String("region_type", cfg.Regions.Type),
		zap.String("kernel", cfg.Regions.Kernel),
		zap.Int("limit", cfg.Engine.Limit),
		zap.Bool("exclusions", cfg.Engine.Exclusions),
		zap.Float64("padding", cfg.Engine.Padding),
	)
}

// formatReport writes the run summary table to out.
func formatReport(out io.Writer, report *pipeline.Report, dir string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if report.RunID != "" {
		_, _ = fmt.Fprintf(w, "Run:\t%s\n", report.RunID)
	}
	_, _ = fmt.Fprintf(w, "Regions:\t%d\n", len(report.Results))
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", report.Failed)
	_, _ = fmt.Fprintf(w, "Output:\t%s\n", dir)
	_ = w.Flush()

	if len(report.Summaries) > 0 {
		_, _ = fmt.Fprintln(out)
		formatSummaries(out, report.Summaries)
	}
}

// formatSummaries writes one row per coverage metric.
func formatSummaries(out io.Writer, summaries []model.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "METRIC\tCOUNT\tMEAN\tMEDIAN\tMIN\tMAX\tSIGMA")
	for _, s := range summaries {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\n",
			s.Metric, s.Count, s.Mean, s.Median, s.Min, s.Max, s.StdDev)
	}
	_ = w.Flush()
}

func init() {
	f := generateCmd.Flags()
	f.String("type", "constituencies", "region type (constituencies, wards)")
	f.String("region", "", "process only the region with this name")
	f.String("kernel", "geos", "geometry kernel (geos, planar)")
	f.Int("limit", 200, "max inclusion bubbles per region")
	f.Bool("exclusions", false, "add a perimeter ring of exclusion bubbles")
	f.Float64("padding", 0, "grow each region by this many meters before placement")
	f.Int("concurrency", 4, "regions processed in parallel")
	f.String("output", "output", "output root directory")
	f.Bool("no-images", false, "skip the per-region JPEG renderings")
	f.Bool("no-store", false, "do not record the run in the result store")
	rootCmd.AddCommand(generateCmd)
}
