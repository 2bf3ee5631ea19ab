package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bubble-cli/internal/config"
	"github.com/sells-group/bubble-cli/internal/monitoring"
)

var (
	cfg         *config.Config
	stopTracing func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:          "bubble-cli",
	Short:        "Geofence bubble generation for UK constituencies and wards",
	Long:         "Packs inclusion and exclusion circles into electoral boundaries, scores their coverage, exports CSV/JPEG/GeoJSON and uploads them as ad-set geo targets.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		shutdown, err := monitoring.InitTracing(cmd.Context(), cfg.Trace, os.Stderr)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		stopTracing = shutdown
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stopTracing != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := stopTracing(ctx); err != nil {
				zap.L().Warn("tracing shutdown failed", zap.Error(err))
			}
			cancel()
		}
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
