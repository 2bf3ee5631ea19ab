package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bubble-cli/internal/export"
	"github.com/sells-group/bubble-cli/internal/model"
	"github.com/sells-group/bubble-cli/internal/resilience"
	"github.com/sells-group/bubble-cli/internal/upload"
	"github.com/sells-group/bubble-cli/pkg/meta"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [bubbles.csv ...]",
	Short: "Create a paused campaign with one geofenced ad set per region",
	Long: "Parses bubble CSVs (bubbles.csv or per-region files; defaults to <output>/<type>/bubbles.csv) " +
		"and creates a paused awareness campaign with one paused ad set per region targeting its bubbles.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		paths := args
		if len(paths) == 0 {
			regionType, _ := cmd.Flags().GetString("type")
			rt := model.RegionType(regionType)
			if !rt.Valid() {
				return eris.Errorf("unknown region type %q", regionType)
			}
			paths = []string{export.Layout{Dir: filepath.Join(cfg.Output.Dir, regionType)}.BubblesCSV()}
		}

		var groups []upload.Group
		for _, p := range paths {
			g, err := upload.ParseFile(p)
			if err != nil {
				return err
			}
			groups = append(groups, g...)
		}
		if len(groups) == 0 {
			return eris.New("upload: no bubbles found")
		}

		if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
			formatGroups(os.Stdout, groups)
			return nil
		}

		if cmd.Flags().Changed("daily-budget") {
			cfg.Meta.DailyBudget, _ = cmd.Flags().GetInt("daily-budget")
		}
		if cmd.Flags().Changed("bid-amount") {
			cfg.Meta.BidAmount, _ = cmd.Flags().GetInt("bid-amount")
		}
		if err := cfg.Validate("upload"); err != nil {
			return err
		}

		policy := resilience.DefaultPolicy()
		policy.Attempts = cfg.Meta.MaxAttempts
		policy.OnRetry = resilience.LogRetries("meta", "create")
		client := meta.NewClient(cfg.Meta.AccessToken, cfg.Meta.AccountID,
			meta.WithBaseURL(cfg.Meta.BaseURL),
			meta.WithAPIVersion(cfg.Meta.APIVersion),
			meta.WithRateLimit(cfg.Meta.RatePerSec),
			meta.WithRetry(policy),
			meta.WithAppSecret(cfg.Meta.AppSecret),
		)

		prefix, _ := cmd.Flags().GetString("prefix")
		report, err := upload.Publish(ctx, client, groups, upload.Options{
			Prefix:      prefix,
			DailyBudget: cfg.Meta.DailyBudget,
			BidAmount:   cfg.Meta.BidAmount,
		})
		if err != nil {
			return err
		}

		formatUpload(os.Stdout, report)
		if report.Created() == 0 {
			return eris.New("upload: no ad sets were created")
		}
		return nil
	},
}

// formatGroups lists what an upload would create.
func formatGroups(out io.Writer, groups []upload.Group) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "REGION\tINCLUDE\tEXCLUDE")
	for _, g := range groups {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\n", g.Name, len(g.Include), len(g.Exclude))
	}
	_ = w.Flush()
}

// formatUpload writes the created ad sets and failures.
func formatUpload(out io.Writer, report *upload.Report) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Campaign:\t%s\n", report.CampaignID)
	_, _ = fmt.Fprintf(w, "Ad sets:\t%d of %d\n", report.Created(), len(report.Outcomes))
	for _, o := range report.Outcomes {
		if o.Err != nil {
			_, _ = fmt.Fprintf(w, "  %s\tFAILED: %v\n", o.Name, o.Err)
			continue
		}
		_, _ = fmt.Fprintf(w, "  %s\t%s\n", o.Name, o.AdSetID)
	}
	_ = w.Flush()
}

func init() {
	uploadCmd.Flags().String("type", "constituencies", "region type whose bubbles.csv is uploaded when no file is given")
	uploadCmd.Flags().String("prefix", "", "prefix for campaign and ad set names")
	uploadCmd.Flags().Int("daily-budget", 0, "ad set daily budget in minor currency units (default from config)")
	uploadCmd.Flags().Int("bid-amount", 0, "ad set bid amount in minor currency units (default from config)")
	uploadCmd.Flags().Bool("dry-run", false, "parse and list the regions without calling the API")
	rootCmd.AddCommand(uploadCmd)
}
