package application

import "context"

// UnitOfWork scopes ledger reads and writes to one storage transaction. The
// transaction travels in the ctx handed to fn, so TransactionRepo calls made with
// that ctx join it and calls made with any other ctx do not.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// UnitOfWorkFunc lets a plain function serve as a UnitOfWork.
type UnitOfWorkFunc func(ctx context.Context, fn func(ctx context.Context) error) error

func (f UnitOfWorkFunc) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return f(ctx, fn)
}

// NoopUoW is used with the in-memory ledger, whose calls are atomic on their own.
type NoopUoW struct{}

func (NoopUoW) Do(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
