package pg_test

import (
	"context"
	"testing"
	"time"

	"fxconvert-service/internal/application"
	"fxconvert-service/internal/domain"
	"fxconvert-service/internal/infrastructure/pg"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func sampleTx(at time.Time) domain.Transaction {
	return domain.Transaction{
		ID:        uuid.NewString(),
		From:      domain.USD,
		To:        domain.BRL,
		FromValue: decimal.RequireFromString("100.1234"),
		ToValue:   decimal.RequireFromString("525.6479"),
		Rate:      decimal.RequireFromString("5.25000001"),
		Timestamp: at,
	}
}

func TestTransactionRepo_InsertList(t *testing.T) {
	db := ledgerDB(t)
	ctx := context.Background()
	repo := pg.NewTransactionRepo(db)

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	older, newer := sampleTx(base), sampleTx(base.Add(time.Minute))
	require.NoError(t, repo.Insert(ctx, older))
	require.NoError(t, repo.Insert(ctx, newer))

	items, total, err := repo.List(ctx, 0, 10)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, items, 2)
	require.Equal(t, newer.ID, items[0].ID)
	require.Equal(t, "5.25000001", items[0].Rate.String())
	require.True(t, newer.ToValue.Equal(items[0].ToValue))
	require.Equal(t, newer.Timestamp, items[0].Timestamp)
	require.False(t, items[0].CreatedAt.IsZero())

	items, total, err = repo.List(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, items, 1)
	require.Equal(t, older.ID, items[0].ID)
}

func TestTransactionRepo_DuplicateIsConflict(t *testing.T) {
	db := ledgerDB(t)
	ctx := context.Background()
	repo := pg.NewTransactionRepo(db)

	tx := sampleTx(time.Now().UTC())
	require.NoError(t, repo.Insert(ctx, tx))
	require.ErrorIs(t, repo.Insert(ctx, tx), application.ErrConflict)
}

func TestPing(t *testing.T) {
	db := ledgerDB(t)
	require.NoError(t, db.Ping(context.Background()))
}
