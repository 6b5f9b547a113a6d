package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig describes one bulk upsert target.
type UpsertConfig struct {
	// Table is the target table, optionally schema-qualified ("public.cases").
	Table string
	// Columns lists every column the rows carry, in row order.
	Columns []string
	// ConflictKeys are the columns of the unique constraint the upsert
	// resolves on.
	ConflictKeys []string
	// UpdateCols restricts which columns a conflicting row rewrites.
	// Nil rewrites every non-key column.
	UpdateCols []string
}

func (cfg UpsertConfig) updateColumns() []string {
	if cfg.UpdateCols != nil {
		return cfg.UpdateCols
	}
	keys := make(map[string]struct{}, len(cfg.ConflictKeys))
	for _, k := range cfg.ConflictKeys {
		keys[k] = struct{}{}
	}
	var cols []string
	for _, c := range cfg.Columns {
		if _, ok := keys[c]; !ok {
			cols = append(cols, c)
		}
	}
	return cols
}

// BulkUpsert writes rows to the target table in one round trip: COPY into
// a session temp table, then INSERT ... ON CONFLICT DO UPDATE from it.
// Everything runs in a single transaction, so a failed batch leaves the
// target untouched. Returns the number of rows written.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(cfg.Columns) == 0 {
		return 0, eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return 0, eris.New("db: upsert: no conflict keys specified")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	temp := tempTableFor(cfg.Table)
	create := fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{temp}.Sanitize(), sanitizeTable(cfg.Table))
	if _, err := tx.Exec(ctx, create); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: create temp table for %s", cfg.Table)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{temp}, cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: COPY into temp table for %s", cfg.Table)
	}

	tag, err := tx.Exec(ctx, upsertSQL(cfg, temp))
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: INSERT ON CONFLICT for %s", cfg.Table)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}
	return tag.RowsAffected(), nil
}

func upsertSQL(cfg UpsertConfig, temp string) string {
	cols := quoteAndJoin(cfg.Columns)
	sets := make([]string, 0, len(cfg.Columns))
	for _, col := range cfg.updateColumns() {
		q := pgx.Identifier{col}.Sanitize()
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", q, q))
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO UPDATE SET %s",
		sanitizeTable(cfg.Table), cols, cols,
		pgx.Identifier{temp}.Sanitize(),
		quoteAndJoin(cfg.ConflictKeys),
		strings.Join(sets, ", "),
	)
}

func tempTableFor(table string) string {
	return "_tmp_upsert_" + strings.ReplaceAll(table, ".", "_")
}

// sanitizeTable quotes a table name, keeping schema qualification intact.
func sanitizeTable(table string) string {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pgx.Identifier{schema, name}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
