package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bubble-cli/internal/model"
	"github.com/sells-group/bubble-cli/internal/store"
)

// Snapshot is a point-in-time view of generation health.
type Snapshot struct {
	// Runs started within the lookback window.
	RunsTotal    int `json:"runs_total"`
	RunsComplete int `json:"runs_complete"`
	RunsFailed   int `json:"runs_failed"`
	RunsRunning  int `json:"runs_running"`

	// Regions of finished runs.
	Regions        int     `json:"regions"`
	RegionsFailed  int     `json:"regions_failed"`
	RegionFailRate float64 `json:"region_fail_rate"`

	// Mean of the per-run net coverage means; zero when no run has one.
	MeanNetCoverage float64 `json:"mean_net_coverage"`
	// Lowest per-run net coverage mean and the run it came from.
	MinNetCoverage float64 `json:"min_net_coverage"`
	MinNetRunID    string  `json:"min_net_run_id,omitempty"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers snapshots from the run store.
type Collector struct {
	store store.Store
}

// NewCollector creates a collector over st.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect summarizes the runs created within the last lookbackHours.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := time.Now().UTC()
	snap := &Snapshot{LookbackHours: lookbackHours, CollectedAt: now}

	runs, err := c.store.ListRuns(ctx, store.RunFilter{
		CreatedAfter: now.Add(-time.Duration(lookbackHours) * time.Hour),
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.RunsTotal = len(runs)
	var netSum float64
	var netRuns int
	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusFailed:
			snap.RunsFailed++
		case model.RunStatusRunning:
			snap.RunsRunning++
			continue
		}
		snap.Regions += r.Regions
		snap.RegionsFailed += r.Failed

		for _, s := range r.Summaries {
			if s.Metric != model.MetricNet || s.Count == 0 {
				continue
			}
			if netRuns == 0 || s.Mean < snap.MinNetCoverage {
				snap.MinNetCoverage = s.Mean
				snap.MinNetRunID = r.ID
			}
			netSum += s.Mean
			netRuns++
		}
	}

	if snap.Regions > 0 {
		snap.RegionFailRate = float64(snap.RegionsFailed) / float64(snap.Regions)
	}
	if netRuns > 0 {
		snap.MeanNetCoverage = netSum / float64(netRuns)
	}
	return snap, nil
}
