// Package store persists generation runs and their per-region results.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bubble-cli/internal/model"
)

// ErrNotFound is returned when a run or region result does not exist.
var ErrNotFound = eris.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	RegionType   model.RegionType `json:"region_type,omitempty"`
	Status       model.RunStatus  `json:"status,omitempty"`
	CreatedAfter time.Time        `json:"created_after,omitempty"`
	Limit        int              `json:"limit,omitempty"`
	Offset       int              `json:"offset,omitempty"`
}

// RunSummary is the final tally written when a run ends.
type RunSummary struct {
	Status    model.RunStatus
	Summaries []model.Summary
	Regions   int
	Failed    int
}

// Store defines the persistence interface for generation runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, regionType model.RegionType, params model.RunParams) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, summary RunSummary) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	LatestRun(ctx context.Context, regionType model.RegionType) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Region results
	SaveRegionResult(ctx context.Context, runID string, result model.RegionResult) error
	ListRegionResults(ctx context.Context, runID string) ([]model.RegionResult, error)
	GetRegionResult(ctx context.Context, runID, name string) (*model.RegionResult, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the configured backend: "sqlite" (the default) or
// "postgres".
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	switch driver {
	case "", "sqlite":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

const defaultListLimit = 100

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}
