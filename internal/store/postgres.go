package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/meridian-legal/casebook-cli/internal/db"
	"github.com/meridian-legal/casebook-cli/internal/model"
)

// Publisher pushes consolidated cases into the Postgres instance the
// downstream search service reads from.
type Publisher struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPublisher creates a Publisher with a connection pool.
func NewPublisher(ctx context.Context, connString string, poolCfg *PoolConfig) (*Publisher, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults. Publishing is
	// a single bulk write, so the pool stays small.
	maxConns := int32(4)
	minConns := int32(1)
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

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &Publisher{pool: pool, closeFn: pool.Close}, nil
}

const publishMigration = `
CREATE TABLE IF NOT EXISTS cases (
	case_id      TEXT PRIMARY KEY,
	case_name    TEXT NOT NULL,
	year         INTEGER,
	court        TEXT,
	payload      JSONB NOT NULL,
	published_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_cases_case_name ON cases(case_name);
CREATE INDEX IF NOT EXISTS idx_cases_year ON cases(year);
`

func (p *Publisher) Ping(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (p *Publisher) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, publishMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (p *Publisher) Close() error {
	if p.closeFn != nil {
		p.closeFn()
	}
	return nil
}

var publishColumns = []string{"case_id", "case_name", "year", "court", "payload", "published_at"}

// PublishCases upserts the consolidated cases keyed by case ID, so
// republishing after a re-run updates rows in place. Cases without an
// ID cannot be keyed and are skipped with a warning. The full case is
// carried in the payload column; the scalar columns exist for indexing.
func (p *Publisher) PublishCases(ctx context.Context, cases []*model.ConsolidatedCase) (int64, error) {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(cases))
	for _, c := range cases {
		if c == nil {
			continue
		}
		if c.CaseID == "" {
			zap.L().Warn("postgres: skipping case without id",
				zap.String("case_name", c.CaseName))
			continue
		}
		payload, err := json.Marshal(c)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: marshal case %s", c.CaseID)
		}
		var year any
		if c.Year.Valid {
			year = c.Year.Value
		}
		var court any
		if c.Court != "" {
			court = c.Court
		}
		rows = append(rows, []any{c.CaseID, c.CaseName, year, court, payload, now})
	}

	n, err := db.BulkUpsert(ctx, p.pool, db.UpsertConfig{
		Table:        "cases",
		Columns:      publishColumns,
		ConflictKeys: []string{"case_id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: publish cases")
	}
	zap.L().Info("postgres: published cases",
		zap.Int64("rows", n),
		zap.Int("skipped", len(cases)-len(rows)))
	return n, nil
}

// CaseCount reports how many cases the target table currently holds.
func (p *Publisher) CaseCount(ctx context.Context) (int, error) {
	var n int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM cases`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count cases")
	}
	return n, nil
}
