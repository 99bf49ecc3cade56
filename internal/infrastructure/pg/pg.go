package pg

import (
	"context"
	"fmt"
	"time"

	infraconfig "fxconvert-service/internal/infrastructure/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultConnIdleTime = 2 * time.Minute

// PoolOptions sizes the connection pool. Zero fields keep the package defaults.
type PoolOptions struct {
	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
}

func (o PoolOptions) apply(cfg *pgxpool.Config) {
	cfg.MaxConns = infraconfig.DefaultPGMaxConns
	if o.MaxConns > 0 {
		cfg.MaxConns = o.MaxConns
	}
	cfg.MinConns = infraconfig.DefaultPGMinConns
	if o.MinConns > 0 {
		cfg.MinConns = o.MinConns
	}
	if cfg.MinConns > cfg.MaxConns {
		cfg.MinConns = cfg.MaxConns
	}
	cfg.MaxConnIdleTime = defaultConnIdleTime
	if o.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = o.MaxConnIdleTime
	}
}

// DB holds the pool behind the transaction ledger.
type DB struct{ Pool *pgxpool.Pool }

// Connect builds the pool lazily; the first query or RunMigrations dials the server.
func Connect(ctx context.Context, url string, opts PoolOptions) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	opts.apply(cfg)
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pg pool: %w", err)
	}
	return &DB{Pool: pool}, nil
}

func (d *DB) Close()                         { d.Pool.Close() }
func (d *DB) Ping(ctx context.Context) error { return d.Pool.Ping(ctx) }
