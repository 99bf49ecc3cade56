package pg

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	pgdriver "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// pinger is the part of *sql.DB that waitReady needs.
type pinger interface {
	PingContext(ctx context.Context) error
}

// startupBackOff waits up to 30s for a freshly started server to accept connections.
func startupBackOff(ctx context.Context) backoff.BackOffContext {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 200 * time.Millisecond
	exp.MaxInterval = 2 * time.Second
	exp.MaxElapsedTime = 30 * time.Second
	return backoff.WithContext(exp, ctx)
}

func waitReady(ctx context.Context, db pinger, b backoff.BackOff) error {
	if err := backoff.Retry(func() error { return db.PingContext(ctx) }, b); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}
	return nil
}

// RunMigrations applies the embedded schema over a database/sql handle opened with
// the pool's DSN. It is a no-op when the schema is current.
func RunMigrations(ctx context.Context, db *DB) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	sqldb, err := sql.Open("pgx", db.Pool.Config().ConnString())
	if err != nil {
		return fmt.Errorf("open sql db: %w", err)
	}
	defer sqldb.Close()

	if err := waitReady(ctx, sqldb, startupBackOff(ctx)); err != nil {
		return err
	}

	driver, err := pgdriver.WithInstance(sqldb, &pgdriver.Config{})
	if err != nil {
		return fmt.Errorf("migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
