package pg

import (
	"context"
	"errors"
	"fmt"

	"fxconvert-service/internal/application"
	"fxconvert-service/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var _ application.TransactionRepo = (*TransactionRepo)(nil)

const uniqueViolation = "23505"

// TransactionRepo stores transactions. Decimals cross the driver as text so no
// precision is lost to float conversion.
type TransactionRepo struct{ db *DB }

func NewTransactionRepo(db *DB) *TransactionRepo { return &TransactionRepo{db: db} }

func (r *TransactionRepo) Insert(ctx context.Context, tx domain.Transaction) error {
	id, err := uuid.Parse(tx.ID)
	if err != nil {
		return fmt.Errorf("transaction id %q: %w", tx.ID, err)
	}
	const ins = `
        INSERT INTO transactions(id, from_currency, to_currency, from_value, to_value, rate, timestamp)
        VALUES ($1, $2, $3, $4::text::numeric, $5::text::numeric, $6::text::numeric, $7)`
	_, err = r.db.q(ctx).Exec(ctx, ins,
		id, string(tx.From), string(tx.To),
		tx.FromValue.String(), tx.ToValue.String(), tx.Rate.String(),
		tx.Timestamp.UTC(),
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return application.ErrConflict
	}
	return err
}

func (r *TransactionRepo) List(ctx context.Context, offset, limit int) ([]domain.Transaction, int, error) {
	q := r.db.q(ctx)

	var total int
	if err := q.QueryRow(ctx, `SELECT count(*) FROM transactions`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	rows, err := q.Query(ctx, `
        SELECT id::text, from_currency, to_currency, from_value::text, to_value::text, rate::text, timestamp, created_at
        FROM transactions
        ORDER BY timestamp DESC, id DESC
        OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []domain.Transaction{}
	for rows.Next() {
		var (
			t                   domain.Transaction
			from, to            string
			fromV, toV, rateTxt string
		)
		if err := rows.Scan(&t.ID, &from, &to, &fromV, &toV, &rateTxt, &t.Timestamp, &t.CreatedAt); err != nil {
			return nil, 0, err
		}
		t.From, t.To = domain.Code(from), domain.Code(to)
		if t.FromValue, err = decimal.NewFromString(fromV); err != nil {
			return nil, 0, err
		}
		if t.ToValue, err = decimal.NewFromString(toV); err != nil {
			return nil, 0, err
		}
		if t.Rate, err = decimal.NewFromString(rateTxt); err != nil {
			return nil, 0, err
		}
		t.Timestamp, t.CreatedAt = t.Timestamp.UTC(), t.CreatedAt.UTC()
		out = append(out, t)
	}
	return out, total, rows.Err()
}
