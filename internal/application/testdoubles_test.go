package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"fxconvert-service/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	ErrRepo  = errors.New("repo error")
	ErrCache = errors.New("cache error")
)

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

type fixedIDGen string

func (g fixedIDGen) NewID() string { return string(g) }

type fakeCache struct {
	mu     sync.Mutex
	store  map[domain.RateKey]decimal.Decimal
	ttls   map[domain.RateKey]time.Duration
	getErr error
	putErr error
	puts   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: map[domain.RateKey]decimal.Decimal{}, ttls: map[domain.RateKey]time.Duration{}}
}

func (f *fakeCache) Get(_ context.Context, k domain.RateKey) (decimal.Decimal, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return decimal.Decimal{}, false, f.getErr
	}
	r, ok := f.store[k]
	return r, ok, nil
}

func (f *fakeCache) Put(_ context.Context, k domain.RateKey, r decimal.Decimal, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.putErr != nil {
		return f.putErr
	}
	f.store[k] = r
	f.ttls[k] = ttl
	return nil
}

type fakeFetcher struct {
	mu     sync.Mutex
	rates  map[domain.Code]decimal.Decimal
	err    error
	calls  int
	before func(ctx context.Context)
}

func (f *fakeFetcher) FetchRate(ctx context.Context, from, to domain.Code) (domain.Quote, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.before != nil {
		f.before(ctx)
	}
	if f.err != nil {
		return domain.Quote{}, f.err
	}
	r, ok := f.rates[to]
	if !ok {
		return domain.Quote{}, domain.RateUnavailable("No exchange rate available for "+string(from)+" -> "+string(to), from, to, nil)
	}
	return domain.Quote{From: from, To: to, Rate: r}, nil
}

func (f *fakeFetcher) FetchRates(ctx context.Context, from domain.Code, to []domain.Code) (map[domain.Code]domain.Quote, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := map[domain.Code]domain.Quote{}
	for _, c := range to {
		if r, ok := f.rates[c]; ok {
			out[c] = domain.Quote{From: from, To: c, Rate: r}
		}
	}
	return out, nil
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRepo struct {
	items []domain.Transaction
	err   error
}

func (f *fakeRepo) Insert(_ context.Context, tx domain.Transaction) error {
	if f.err != nil {
		return f.err
	}
	f.items = append(f.items, tx)
	return nil
}

func (f *fakeRepo) List(_ context.Context, offset, limit int) ([]domain.Transaction, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	if offset >= len(f.items) {
		return nil, len(f.items), nil
	}
	end := offset + limit
	if end > len(f.items) {
		end = len(f.items)
	}
	return f.items[offset:end], len(f.items), nil
}

type fakeIdem struct {
	seen     map[string]bool
	released []string
}

func (f *fakeIdem) TryReserve(_ context.Context, k string) (bool, error) {
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[k] {
		return false, nil
	}
	f.seen[k] = true
	return true, nil
}

func (f *fakeIdem) Release(_ context.Context, k string) error {
	delete(f.seen, k)
	f.released = append(f.released, k)
	return nil
}

type fakePublisher struct {
	events []domain.Transaction
	err    error
}

func (f *fakePublisher) PublishTransactionCreated(_ context.Context, tx domain.Transaction) error {
	f.events = append(f.events, tx)
	return f.err
}

type countingObserver struct {
	hits, misses int
	outcomes     []string
}

func (o *countingObserver) CacheLookup(hit bool) {
	if hit {
		o.hits++
	} else {
		o.misses++
	}
}

func (o *countingObserver) ConversionDone(outcome string) { o.outcomes = append(o.outcomes, outcome) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
