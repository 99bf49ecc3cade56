package pg_test

import (
	"context"
	"os"
	"testing"
	"time"

	"fxconvert-service/internal/infrastructure/pg"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// ledgerDB starts a throwaway postgres, migrates it and returns the pool. Everything
// is torn down through t.Cleanup.
func ledgerDB(t *testing.T) *pg.DB {
	t.Helper()
	if os.Getenv("TESTCONTAINERS") == "" {
		t.Skip("set TESTCONTAINERS=1 to run the postgres ledger tests")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := postgres.RunContainer(ctx,
		postgres.WithDatabase("fxconvert"),
		postgres.WithUsername("fx"),
		postgres.WithPassword("fx"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := pg.Connect(ctx, dsn, pg.PoolOptions{MaxConns: 4, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, pg.RunMigrations(ctx, db))
	return db
}
