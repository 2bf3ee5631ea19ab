package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/bubble-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection. Region
// results are written once per region from every worker.
var preparedStatements = map[string]string{
	"insert_run":   `INSERT INTO runs (id, region_type, status, params, created_at) VALUES ($1, $2, $3, $4, $5)`,
	"save_region":  saveRegionSQL,
	"get_run":      `SELECT ` + pgRunColumns + ` FROM runs WHERE id = $1`,
	"list_regions": `SELECT ` + pgRegionColumns + ` FROM region_results WHERE run_id = $1 ORDER BY name`,
	"get_region":   `SELECT ` + pgRegionColumns + ` FROM region_results WHERE run_id = $1 AND name = $2`,
	"complete_run": completeRunSQL,
	"latest_run":   latestRunSQL,
}

const (
	pgRunColumns    = `id, region_type, status, params, summaries, regions, failed, created_at, completed_at`
	pgRegionColumns = `run_id, name, coverage, inclusion, exclusion, upper_bound, fallback, area, error`

	saveRegionSQL = `INSERT INTO region_results (run_id, name, coverage, inclusion, exclusion, upper_bound, fallback, area, error)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (run_id, name) DO UPDATE SET
	coverage = EXCLUDED.coverage,
	inclusion = EXCLUDED.inclusion,
	exclusion = EXCLUDED.exclusion,
	upper_bound = EXCLUDED.upper_bound,
	fallback = EXCLUDED.fallback,
	area = EXCLUDED.area,
	error = EXCLUDED.error`

	completeRunSQL = `UPDATE runs SET status = $1, summaries = $2, regions = $3, failed = $4, completed_at = $5 WHERE id = $6`

	latestRunSQL = `SELECT ` + pgRunColumns + ` FROM runs WHERE region_type = $1 AND status = $2 ORDER BY created_at DESC LIMIT 1`
)

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	region_type  TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	params       JSONB NOT NULL,
	summaries    JSONB,
	regions      INTEGER NOT NULL DEFAULT 0,
	failed       INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS region_results (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	coverage    JSONB NOT NULL,
	inclusion   JSONB NOT NULL,
	exclusion   JSONB NOT NULL,
	upper_bound INTEGER NOT NULL DEFAULT 0,
	fallback    BOOLEAN NOT NULL DEFAULT false,
	area        DOUBLE PRECISION NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, name)
);

CREATE INDEX IF NOT EXISTS idx_runs_type_status ON runs(region_type, status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, regionType model.RegionType, params model.RunParams) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal params")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, region_type, status, params, created_at) VALUES ($1, $2, $3, $4, $5)`,
		id, string(regionType), string(model.RunStatusRunning), paramsJSON, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:         id,
		RegionType: regionType,
		Status:     model.RunStatusRunning,
		Params:     params,
		CreatedAt:  now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, summary RunSummary) error {
	summariesJSON, err := json.Marshal(summary.Summaries)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summaries")
	}

	tag, err := s.pool.Exec(ctx, completeRunSQL,
		string(summary.Status), summariesJSON, summary.Regions, summary.Failed, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	return scanPgRun(s.pool.QueryRow(ctx, `SELECT `+pgRunColumns+` FROM runs WHERE id = $1`, runID))
}

func (s *PostgresStore) LatestRun(ctx context.Context, regionType model.RegionType) (*model.Run, error) {
	return scanPgRun(s.pool.QueryRow(ctx, latestRunSQL, string(regionType), string(model.RunStatusComplete)))
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + pgRunColumns + ` FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.RegionType != "" {
		query += fmt.Sprintf(` AND region_type = $%d`, argIdx)
		args = append(args, string(filter.RegionType))
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if !filter.CreatedAfter.IsZero() {
		query += fmt.Sprintf(` AND created_at > $%d`, argIdx)
		args = append(args, filter.CreatedAfter.UTC())
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) SaveRegionResult(ctx context.Context, runID string, result model.RegionResult) error {
	enc, err := encodeRegionResult(result)
	if err != nil {
		return eris.Wrap(err, "postgres: encode region result")
	}
	_, err = s.pool.Exec(ctx, saveRegionSQL,
		runID, result.Name, enc.coverage, enc.inclusion, enc.exclusion,
		result.UpperBound, result.Fallback, result.AreaSqM, result.Error,
	)
	return eris.Wrapf(err, "postgres: save region %q", result.Name)
}

func (s *PostgresStore) ListRegionResults(ctx context.Context, runID string) ([]model.RegionResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgRegionColumns+` FROM region_results WHERE run_id = $1 ORDER BY name`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list region results")
	}
	defer rows.Close()

	var out []model.RegionResult
	for rows.Next() {
		r, err := scanPgRegion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list region results iterate")
}

func (s *PostgresStore) GetRegionResult(ctx context.Context, runID, name string) (*model.RegionResult, error) {
	return scanPgRegion(s.pool.QueryRow(ctx,
		`SELECT `+pgRegionColumns+` FROM region_results WHERE run_id = $1 AND name = $2`,
		runID, name,
	))
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var regionType, status string
	var paramsJSON, summariesJSON []byte

	err := row.Scan(&r.ID, &regionType, &status, &paramsJSON, &summariesJSON,
		&r.Regions, &r.Failed, &r.CreatedAt, &r.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "postgres: get run")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	r.RegionType = model.RegionType(regionType)
	r.Status = model.RunStatus(status)
	if err := decodeRun(&r, paramsJSON, summariesJSON); err != nil {
		return nil, eris.Wrap(err, "postgres: decode run")
	}
	return &r, nil
}

func scanPgRegion(row pgx.Row) (*model.RegionResult, error) {
	var r model.RegionResult
	var enc encodedRegion

	err := row.Scan(&r.RunID, &r.Name, &enc.coverage, &enc.inclusion, &enc.exclusion,
		&r.UpperBound, &r.Fallback, &r.AreaSqM, &r.Error)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "postgres: get region result")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan region result")
	}
	if err := enc.decode(&r); err != nil {
		return nil, eris.Wrap(err, "postgres: decode region result")
	}
	return &r, nil
}
