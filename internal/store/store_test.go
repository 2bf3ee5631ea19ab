package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bubble-cli/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testParams() model.RunParams {
	return model.RunParams{BubbleLimit: 200, ExclusionRadius: 1000, ExclusionLimit: 400, Kernel: "planar"}
}

func testResult(name string) model.RegionResult {
	return model.RegionResult{
		Name:       name,
		Inclusion:  []model.Bubble{model.NewBubble(1000, 2000, 2000, model.KindInclusion)},
		Exclusion:  []model.Bubble{model.NewBubble(3000, 4000, 1000, model.KindExclusion)},
		Coverage:   model.Coverage{InternalInclusion: 80, ExternalInclusion: 5, Exclusion: 1, Net: 79},
		UpperBound: 2000,
		AreaSqM:    16e6,
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndGetRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, model.RegionConstituencies, testParams())
		require.NoError(t, err)
		assert.NotEmpty(t, run.ID)
		assert.Equal(t, model.RunStatusRunning, run.Status)

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, model.RegionConstituencies, got.RegionType)
		assert.Equal(t, model.RunStatusRunning, got.Status)
		assert.Equal(t, testParams(), got.Params)
		assert.Nil(t, got.CompletedAt)
		assert.Empty(t, got.Summaries)
	})

	t.Run("GetRunNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetRun(context.Background(), "missing")
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrNotFound))
	})

	t.Run("CompleteRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, model.RegionWards, testParams())
		require.NoError(t, err)

		summaries := []model.Summary{{Metric: model.MetricNet, Count: 3, Mean: 50, Median: 40, Min: 10, Max: 100, StdDev: 37.4}}
		require.NoError(t, s.CompleteRun(ctx, run.ID, RunSummary{
			Status: model.RunStatusComplete, Summaries: summaries, Regions: 3, Failed: 1,
		}))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusComplete, got.Status)
		assert.Equal(t, summaries, got.Summaries)
		assert.Equal(t, 3, got.Regions)
		assert.Equal(t, 1, got.Failed)
		require.NotNil(t, got.CompletedAt)
	})

	t.Run("CompleteRunNotFound", func(t *testing.T) {
		s := newStore(t)
		err := s.CompleteRun(context.Background(), "missing", RunSummary{Status: model.RunStatusFailed})
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrNotFound))
	})

	t.Run("LatestRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.LatestRun(ctx, model.RegionWards)
		assert.True(t, eris.Is(err, ErrNotFound))

		first, err := s.CreateRun(ctx, model.RegionWards, testParams())
		require.NoError(t, err)
		require.NoError(t, s.CompleteRun(ctx, first.ID, RunSummary{Status: model.RunStatusComplete}))
		time.Sleep(5 * time.Millisecond)

		second, err := s.CreateRun(ctx, model.RegionWards, testParams())
		require.NoError(t, err)
		require.NoError(t, s.CompleteRun(ctx, second.ID, RunSummary{Status: model.RunStatusComplete}))
		time.Sleep(5 * time.Millisecond)

		// Still running, so not the latest result.
		_, err = s.CreateRun(ctx, model.RegionWards, testParams())
		require.NoError(t, err)
		// Other region type.
		other, err := s.CreateRun(ctx, model.RegionConstituencies, testParams())
		require.NoError(t, err)
		require.NoError(t, s.CompleteRun(ctx, other.ID, RunSummary{Status: model.RunStatusComplete}))

		got, err := s.LatestRun(ctx, model.RegionWards)
		require.NoError(t, err)
		assert.Equal(t, second.ID, got.ID)
	})

	t.Run("ListRuns", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			_, err := s.CreateRun(ctx, model.RegionConstituencies, testParams())
			require.NoError(t, err)
		}
		_, err := s.CreateRun(ctx, model.RegionWards, testParams())
		require.NoError(t, err)

		all, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 4)

		wards, err := s.ListRuns(ctx, RunFilter{RegionType: model.RegionWards})
		require.NoError(t, err)
		assert.Len(t, wards, 1)

		limited, err := s.ListRuns(ctx, RunFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, limited, 2)

		complete, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
		require.NoError(t, err)
		assert.Empty(t, complete)

		future, err := s.ListRuns(ctx, RunFilter{CreatedAfter: time.Now().Add(time.Hour)})
		require.NoError(t, err)
		assert.Empty(t, future)
	})

	t.Run("RegionResults", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, model.RegionConstituencies, testParams())
		require.NoError(t, err)

		require.NoError(t, s.SaveRegionResult(ctx, run.ID, testResult("Bolsover")))
		require.NoError(t, s.SaveRegionResult(ctx, run.ID, testResult("Ashfield")))
		require.NoError(t, s.SaveRegionResult(ctx, run.ID, model.RegionResult{Name: "Broken", Error: "boundary: degenerate region"}))

		list, err := s.ListRegionResults(ctx, run.ID)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "Ashfield", list[0].Name)
		assert.Equal(t, "Broken", list[1].Name)
		assert.True(t, list[1].Failed())
		assert.Empty(t, list[1].Inclusion)

		got, err := s.GetRegionResult(ctx, run.ID, "Bolsover")
		require.NoError(t, err)
		want := testResult("Bolsover")
		want.RunID = run.ID
		assert.Equal(t, want, *got)

		_, err = s.GetRegionResult(ctx, run.ID, "Nowhere")
		assert.True(t, eris.Is(err, ErrNotFound))
	})

	t.Run("SaveRegionResultReplaces", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, model.RegionConstituencies, testParams())
		require.NoError(t, err)

		r := testResult("Ashfield")
		require.NoError(t, s.SaveRegionResult(ctx, run.ID, r))
		r.Coverage.Net = 12
		r.Fallback = true
		require.NoError(t, s.SaveRegionResult(ctx, run.ID, r))

		list, err := s.ListRegionResults(ctx, run.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, 12.0, list[0].Coverage.Net)
		assert.True(t, list[0].Fallback)
	})

	t.Run("Ping", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Ping(context.Background()))
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), "", filepath.Join(t.TempDir(), "a.db"), nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(context.Background(), "mongo", "x", nil)
	assert.Error(t, err)
}

func TestNewSQLite_InvalidPath(t *testing.T) {
	_, err := NewSQLite(filepath.Join(t.TempDir(), "missing", "dir", "a.db"))
	assert.Error(t, err)
}
