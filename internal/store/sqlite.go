package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/bubble-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	region_type  TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	params       TEXT NOT NULL,
	summaries    TEXT,
	regions      INTEGER NOT NULL DEFAULT 0,
	failed       INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at DATETIME
);

CREATE TABLE IF NOT EXISTS region_results (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	name        TEXT NOT NULL,
	coverage    TEXT NOT NULL,
	inclusion   TEXT NOT NULL,
	exclusion   TEXT NOT NULL,
	upper_bound INTEGER NOT NULL DEFAULT 0,
	fallback    INTEGER NOT NULL DEFAULT 0,
	area        REAL NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, name)
);

CREATE INDEX IF NOT EXISTS idx_runs_type_status ON runs(region_type, status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, regionType model.RegionType, params model.RunParams) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal params")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, region_type, status, params, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(regionType), string(model.RunStatusRunning), string(paramsJSON), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:         id,
		RegionType: regionType,
		Status:     model.RunStatusRunning,
		Params:     params,
		CreatedAt:  now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary RunSummary) error {
	summariesJSON, err := json.Marshal(summary.Summaries)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summaries")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, summaries = ?, regions = ?, failed = ?, completed_at = ? WHERE id = ?`,
		string(summary.Status), string(summariesJSON), summary.Regions, summary.Failed, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

const sqliteRunColumns = `id, region_type, status, params, summaries, regions, failed, created_at, completed_at`

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) LatestRun(ctx context.Context, regionType model.RegionType) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM runs WHERE region_type = ? AND status = ?
		 ORDER BY created_at DESC LIMIT 1`,
		string(regionType), string(model.RunStatusComplete),
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + sqliteRunColumns + ` FROM runs WHERE 1=1`
	var args []any

	if filter.RegionType != "" {
		query += ` AND region_type = ?`
		args = append(args, string(filter.RegionType))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND created_at > ?`
		args = append(args, filter.CreatedAfter.UTC())
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveRegionResult(ctx context.Context, runID string, result model.RegionResult) error {
	enc, err := encodeRegionResult(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: encode region result")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO region_results (run_id, name, coverage, inclusion, exclusion, upper_bound, fallback, area, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, name) DO UPDATE SET
			coverage = excluded.coverage,
			inclusion = excluded.inclusion,
			exclusion = excluded.exclusion,
			upper_bound = excluded.upper_bound,
			fallback = excluded.fallback,
			area = excluded.area,
			error = excluded.error`,
		runID, result.Name, string(enc.coverage), string(enc.inclusion), string(enc.exclusion),
		result.UpperBound, result.Fallback, result.AreaSqM, result.Error,
	)
	return eris.Wrapf(err, "sqlite: save region %q", result.Name)
}

const sqliteRegionColumns = `run_id, name, coverage, inclusion, exclusion, upper_bound, fallback, area, error`

func (s *SQLiteStore) ListRegionResults(ctx context.Context, runID string) ([]model.RegionResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteRegionColumns+` FROM region_results WHERE run_id = ? ORDER BY name`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list region results")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.RegionResult
	for rows.Next() {
		r, err := scanRegionResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list region results iterate")
}

func (s *SQLiteStore) GetRegionResult(ctx context.Context, runID, name string) (*model.RegionResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRegionColumns+` FROM region_results WHERE run_id = ? AND name = ?`,
		runID, name,
	)
	return scanRegionResult(row)
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var paramsJSON string
	var summariesJSON sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(&r.ID, &r.RegionType, &r.Status, &paramsJSON, &summariesJSON,
		&r.Regions, &r.Failed, &r.CreatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "sqlite: run")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if err := decodeRun(&r, []byte(paramsJSON), nullBytes(summariesJSON)); err != nil {
		return nil, eris.Wrap(err, "sqlite: decode run")
	}
	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	return &r, nil
}

func scanRegionResult(row scannable) (*model.RegionResult, error) {
	var r model.RegionResult
	var enc encodedRegion

	err := row.Scan(&r.RunID, &r.Name, &enc.coverage, &enc.inclusion, &enc.exclusion,
		&r.UpperBound, &r.Fallback, &r.AreaSqM, &r.Error)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "sqlite: region result")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan region result")
	}
	if err := enc.decode(&r); err != nil {
		return nil, eris.Wrap(err, "sqlite: decode region result")
	}
	return &r, nil
}

func nullBytes(s sql.NullString) []byte {
	if !s.Valid {
		return nil
	}
	return []byte(s.String)
}
