package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bubble-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var runColumns = []string{"id", "region_type", "status", "params", "summaries", "regions", "failed", "created_at", "completed_at"}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), "wards", "running", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), model.RegionWards, testParams())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2024, 7, 4, 22, 0, 0, 0, time.UTC)
	completed := created.Add(time.Hour)

	mock.ExpectQuery(`SELECT id, region_type, status, params, summaries, regions, failed, created_at, completed_at FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows(runColumns).AddRow(
			"run-1", "constituencies", "complete",
			[]byte(`{"bubble_limit":200,"kernel":"geos"}`),
			[]byte(`[{"metric":"net","count":2,"mean":55}]`),
			2, 0, created, &completed,
		))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RegionConstituencies, run.RegionType)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, 200, run.Params.BubbleLimit)
	assert.Equal(t, "geos", run.Params.Kernel)
	require.Len(t, run.Summaries, 1)
	assert.Equal(t, 55.0, run.Summaries[0].Mean)
	assert.Equal(t, 2, run.Regions)
	require.NotNil(t, run.CompletedAt)
	assert.True(t, completed.Equal(*run.CompletedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM runs WHERE region_type = \$1 AND status = \$2`).
		WithArgs("wards", "complete").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.LatestRun(context.Background(), model.RegionWards)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs("complete", pgxmock.AnyArg(), 3, 0, pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteRun(context.Background(), "missing", RunSummary{Status: model.RunStatusComplete, Regions: 3})
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRegionResult_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT \(run_id, name\) DO UPDATE`).
		WithArgs("run-1", "Ashfield", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), 2000, false, 16e6, "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveRegionResult(context.Background(), "run-1", testResult("Ashfield"))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_Filters(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`WHERE true AND region_type = \$1 AND status = \$2 ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("wards", "complete", 5, 10).
		WillReturnRows(pgxmock.NewRows(runColumns))

	runs, err := s.ListRuns(context.Background(), RunFilter{
		RegionType: model.RegionWards, Status: model.RunStatusComplete, Limit: 5, Offset: 10,
	})
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRegionResults(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	cols := []string{"run_id", "name", "coverage", "inclusion", "exclusion", "upper_bound", "fallback", "area", "error"}
	mock.ExpectQuery(`FROM region_results WHERE run_id = \$1 ORDER BY name`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("run-1", "Ashfield", []byte(`{"net":42}`), []byte(`[{"x":1,"y":2,"radius_m":2000,"radius_km":2,"kind":"inclusion"}]`), []byte(`[]`), 2000, false, 16e6, "").
			AddRow("run-1", "Broken", []byte(`{}`), []byte(`[]`), []byte(`[]`), 0, false, 0.0, "boom"))

	results, err := s.ListRegionResults(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 42.0, results[0].Coverage.Net)
	require.Len(t, results[0].Inclusion, 1)
	assert.Equal(t, 2, results[0].Inclusion[0].RadiusKM)
	assert.True(t, results[1].Failed())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Ping(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`SELECT 1`).WillReturnResult(pgxmock.NewResult("SELECT", 1))
	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
