package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mihdan/recrawler/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS recrawler_events (
    id          UUID PRIMARY KEY,
    url         TEXT        NOT NULL,
    action      VARCHAR(10) NOT NULL,
    occurred_at TIMESTAMPTZ NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (url, action, occurred_at)
);

CREATE TABLE IF NOT EXISTS recrawler_log (
    id            BIGSERIAL PRIMARY KEY,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    level         VARCHAR(10) NOT NULL,
    search_engine VARCHAR(30) NOT NULL,
    direction     VARCHAR(10) NOT NULL,
    status_code   INT         NOT NULL,
    message       TEXT        NOT NULL
);

CREATE INDEX IF NOT EXISTS recrawler_log_engine_idx ON recrawler_log (search_engine, created_at DESC);
`

// NewPool creates a pgx connection pool and ensures the schema exists.
func NewPool(cfg *config.Config) (*pgxpool.Pool, error) {
	ctx := context.Background()

	poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}

	if cfg.Postgres.Pool.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.Postgres.Pool.MaxConns)
	}
	if cfg.Postgres.Pool.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.Postgres.Pool.MinConns)
	}
	if cfg.Postgres.Pool.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.Postgres.Pool.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ensure schema: %w", err)
	}

	return pool, nil
}
