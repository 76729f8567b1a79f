package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/errors"
)

// NewPool opens and pings a pgx pool. Loading is a single transaction, so the pool stays small.
func NewPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, errors.NewConfigurationError("INVALID_DATABASE_URL", "cannot parse database url").WithCause(err)
	}
	cfg.MaxConns = 4
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.NewExternalError(errors.StageLoad, "postgres", "cannot create pool").WithCause(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.NewExternalError(errors.StageLoad, "postgres", "ping failed").WithCause(err)
	}
	return pool, nil
}
