package provider

import (
	"context"
	"time"

	"fxconvert-service/internal/application"
	"fxconvert-service/internal/domain"

	"github.com/shopspring/decimal"
)

// Ensure Fake implements application.RateFetcher.
var _ application.RateFetcher = (*Fake)(nil)

// Fake answers every supported pair with the same rate. Used with PROVIDER=fake.
type Fake struct {
	rate decimal.Decimal
}

func NewFake(rate decimal.Decimal) *Fake { return &Fake{rate: rate} }

func (f *Fake) FetchRate(_ context.Context, from, to domain.Code) (domain.Quote, error) {
	if err := validateCodes(from, to); err != nil {
		return domain.Quote{}, err
	}
	return domain.Quote{From: from, To: to, Rate: f.rate, FetchedAt: time.Now().UTC()}, nil
}

func (f *Fake) FetchRates(ctx context.Context, from domain.Code, to []domain.Code) (map[domain.Code]domain.Quote, error) {
	out := make(map[domain.Code]domain.Quote, len(to))
	for _, c := range to {
		q, err := f.FetchRate(ctx, from, c)
		if err != nil {
			return nil, err
		}
		out[c] = q
	}
	return out, nil
}
