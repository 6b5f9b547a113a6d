package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/meridian-legal/casebook-cli/internal/model"
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
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	source          TEXT NOT NULL,
	state           TEXT NOT NULL DEFAULT 'running',
	started_at      DATETIME NOT NULL,
	completed_at    DATETIME,
	units_processed INTEGER NOT NULL DEFAULT 0,
	units_skipped   INTEGER NOT NULL DEFAULT 0,
	case_count      INTEGER NOT NULL DEFAULT 0,
	duplicate_count INTEGER NOT NULL DEFAULT 0,
	error_count     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS unit_errors (
	id       TEXT PRIMARY KEY,
	run_id   TEXT NOT NULL REFERENCES runs(id),
	unit     INTEGER NOT NULL,
	stage    TEXT NOT NULL,
	reason   TEXT NOT NULL,
	attempts INTEGER NOT NULL DEFAULT 0,
	at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_state ON runs(state);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_unit_errors_run_id ON unit_errors(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, source string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, state, started_at) VALUES (?, ?, ?, ?)`,
		id, source, string(model.RunStateRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Source:    source,
		State:     model.RunStateRunning,
		StartedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET state = ?, completed_at = ?, units_processed = ?, units_skipped = ?,
		        case_count = ?, duplicate_count = ?, error_count = ?
		 WHERE id = ?`,
		string(summary.State), now, summary.UnitsProcessed, summary.UnitsSkipped,
		summary.CaseCount, summary.DuplicateCount, summary.ErrorCount, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, state, started_at, completed_at, units_processed, units_skipped,
		        case_count, duplicate_count, error_count
		 FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, source, state, started_at, completed_at, units_processed, units_skipped,
	                 case_count, duplicate_count, error_count
	          FROM runs WHERE 1=1`
	var args []any

	if filter.State != "" {
		query += ` AND state = ?`
		args = append(args, string(filter.State))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

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

func (s *SQLiteStore) RecordUnitErrors(ctx context.Context, runID string, errs []model.UnitError) error {
	if len(errs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin unit errors")
	}
	defer tx.Rollback()

	for _, e := range errs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO unit_errors (id, run_id, unit, stage, reason, attempts, at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), runID, e.Unit, e.Stage, e.Reason, e.Attempts, e.At.UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert unit error for run %s", runID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit unit errors")
}

func (s *SQLiteStore) ListUnitErrors(ctx context.Context, runID string) ([]model.UnitError, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT unit, stage, reason, attempts, at FROM unit_errors WHERE run_id = ? ORDER BY unit, at`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list unit errors for run %s", runID)
	}
	defer rows.Close()

	var errs []model.UnitError
	for rows.Next() {
		var e model.UnitError
		if err := rows.Scan(&e.Unit, &e.Stage, &e.Reason, &e.Attempts, &e.At); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan unit error")
		}
		errs = append(errs, e)
	}
	return errs, eris.Wrap(rows.Err(), "sqlite: list unit errors iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var completedAt sql.NullTime

	err := row.Scan(&r.ID, &r.Source, &r.State, &r.StartedAt, &completedAt,
		&r.UnitsProcessed, &r.UnitsSkipped, &r.CaseCount, &r.DuplicateCount, &r.ErrorCount)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	return &r, nil
}
