package application

import (
	"context"
	"time"

	"fxconvert-service/internal/domain"

	"github.com/shopspring/decimal"
)

// RateCache stores rates by pair and UTC day. Implementations must be safe for
// concurrent use; a miss is reported as ok == false with a nil error.
type RateCache interface {
	Get(ctx context.Context, key domain.RateKey) (decimal.Decimal, bool, error)
	Put(ctx context.Context, key domain.RateKey, rate decimal.Decimal, ttl time.Duration) error
}

// RateFetcher talks to the upstream rate provider. Errors are classified (*domain.Error).
type RateFetcher interface {
	FetchRate(ctx context.Context, from, to domain.Code) (domain.Quote, error)
	// FetchRates issues a single upstream call; targets missing from the response are
	// absent from the returned map.
	FetchRates(ctx context.Context, from domain.Code, to []domain.Code) (map[domain.Code]domain.Quote, error)
}

type TransactionRepo interface {
	Insert(ctx context.Context, tx domain.Transaction) error
	List(ctx context.Context, offset, limit int) ([]domain.Transaction, int, error)
}

type EventPublisher interface {
	PublishTransactionCreated(ctx context.Context, tx domain.Transaction) error
}

// NoopPublisher drops events; used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishTransactionCreated(context.Context, domain.Transaction) error { return nil }
