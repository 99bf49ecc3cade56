package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"fxconvert-service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func newSvc(c *fakeCache, f *fakeFetcher, opts ...Option) *ConversionService {
	opts = append([]Option{WithClock(fakeClock{t: now})}, opts...)
	return NewConversionService(c, f, opts...)
}

func req(from, to, amount string) domain.ConversionRequest {
	return domain.ConversionRequest{From: domain.Code(from), To: domain.Code(to), Amount: dec(amount)}
}

func Test_Convert_CacheHit_NoFetch(t *testing.T) {
	t.Parallel()
	c := newFakeCache()
	c.store[domain.NewRateKey(domain.USD, domain.BRL, now)] = dec("5.25")
	f := &fakeFetcher{}
	obs := &countingObserver{}
	svc := newSvc(c, f, WithObserver(obs))

	res, err := svc.Convert(context.Background(), req("USD", "BRL", "100.00"))
	require.NoError(t, err)
	require.True(t, dec("525.00").Equal(res.ToAmount))
	require.True(t, dec("5.25").Equal(res.Rate))
	require.True(t, dec("100").Equal(res.FromAmount))
	require.Equal(t, now, res.ComputedAt)
	require.Zero(t, f.Calls())
	require.Equal(t, 1, obs.hits)
	require.Equal(t, []string{"ok"}, obs.outcomes)
}

func Test_Convert_Miss_FetchesAndCaches(t *testing.T) {
	t.Parallel()
	c := newFakeCache()
	f := &fakeFetcher{rates: map[domain.Code]decimal.Decimal{domain.EUR: dec("0.85")}}
	obs := &countingObserver{}
	svc := newSvc(c, f, WithObserver(obs))

	res, err := svc.Convert(context.Background(), req("USD", "EUR", "100.00"))
	require.NoError(t, err)
	require.True(t, dec("85.00").Equal(res.ToAmount))
	require.Equal(t, 1, f.Calls())
	require.Equal(t, 1, obs.misses)

	key := domain.NewRateKey(domain.USD, domain.EUR, now)
	require.True(t, dec("0.85").Equal(c.store[key]))
	require.Equal(t, DefaultRateTTL, c.ttls[key])

	// second call is answered from the cache
	_, err = svc.Convert(context.Background(), req("USD", "EUR", "1"))
	require.NoError(t, err)
	require.Equal(t, 1, f.Calls())
}

func Test_Convert_CustomTTL(t *testing.T) {
	t.Parallel()
	c := newFakeCache()
	f := &fakeFetcher{rates: map[domain.Code]decimal.Decimal{domain.JPY: dec("150.5")}}
	svc := newSvc(c, f, WithRateTTL(time.Hour))

	_, err := svc.Convert(context.Background(), req("USD", "JPY", "2"))
	require.NoError(t, err)
	require.Equal(t, time.Hour, c.ttls[domain.NewRateKey(domain.USD, domain.JPY, now)])
}

func Test_Convert_Validation(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		in      domain.ConversionRequest
		want    error
		reasons []string
	}{
		{"same currency", req("USD", "USD", "100"), domain.ErrValidationFailed, []string{"Source and target currencies must be different"}},
		{"unsupported source", req("XYZ", "USD", "100"), domain.ErrUnsupportedCurrency, nil},
		{"unsupported target", req("USD", "GBP", "100"), domain.ErrUnsupportedCurrency, nil},
		{"zero amount", req("USD", "EUR", "0"), domain.ErrValidationFailed, []string{"Amount must be greater than zero"}},
		{"negative amount", req("USD", "EUR", "-5"), domain.ErrValidationFailed, []string{"Amount must be greater than zero"}},
		{"blank source", domain.ConversionRequest{To: "EUR", Amount: dec("1")}, domain.ErrValidationFailed, []string{"Source currency is required"}},
		{"zero amount and same currency", req("EUR", "EUR", "0"), domain.ErrValidationFailed,
			[]string{"Amount must be greater than zero", "Source and target currencies must be different"}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := &fakeFetcher{}
			svc := newSvc(newFakeCache(), f)
			_, err := svc.Convert(context.Background(), tc.in)
			require.ErrorIs(t, err, tc.want)
			if tc.reasons != nil {
				e, ok := domain.AsError(err)
				require.True(t, ok)
				require.Equal(t, tc.reasons, e.Reasons)
			}
			require.Zero(t, f.Calls(), "validation must not reach the fetcher")
		})
	}
}

func Test_Convert_UnsupportedReportsFirstCode(t *testing.T) {
	t.Parallel()
	svc := newSvc(newFakeCache(), &fakeFetcher{})
	_, err := svc.Convert(context.Background(), req("XYZ", "ABC", "1"))
	e, ok := domain.AsError(err)
	require.True(t, ok)
	require.Equal(t, domain.Code("XYZ"), e.Currency)
}

func Test_Convert_FetchErrorIsNotCached(t *testing.T) {
	t.Parallel()
	c := newFakeCache()
	f := &fakeFetcher{err: domain.RateLimitExceeded(domain.USD, domain.EUR, 0)}
	obs := &countingObserver{}
	svc := newSvc(c, f, WithObserver(obs))

	_, err := svc.Convert(context.Background(), req("USD", "EUR", "1"))
	require.ErrorIs(t, err, domain.ErrRateLimitExceeded)
	require.Zero(t, c.puts)
	require.Equal(t, []string{string(domain.KindRateLimitExceeded)}, obs.outcomes)
}

func Test_Convert_UnclassifiedFetchErrorBecomesUnavailable(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	svc := newSvc(newFakeCache(), &fakeFetcher{err: boom})

	_, err := svc.Convert(context.Background(), req("USD", "EUR", "1"))
	require.ErrorIs(t, err, domain.ErrRateUnavailable)
	require.ErrorIs(t, err, boom)
}

func Test_Convert_CanceledDuringFetch_NotCached(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	c := newFakeCache()
	f := &fakeFetcher{
		rates:  map[domain.Code]decimal.Decimal{domain.EUR: dec("0.85")},
		before: func(context.Context) { cancel() },
	}
	svc := newSvc(c, f)

	_, err := svc.Convert(ctx, req("USD", "EUR", "1"))
	require.ErrorIs(t, err, domain.ErrRateUnavailable)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, c.puts)
}

func Test_Convert_CacheErrorsDegradeGracefully(t *testing.T) {
	t.Parallel()
	c := newFakeCache()
	c.getErr = ErrCache
	c.putErr = ErrCache
	f := &fakeFetcher{rates: map[domain.Code]decimal.Decimal{domain.BRL: dec("5.1234")}}
	svc := newSvc(c, f)

	res, err := svc.Convert(context.Background(), req("USD", "BRL", "3"))
	require.NoError(t, err)
	require.True(t, dec("15.3702").Equal(res.ToAmount))
	require.Equal(t, 1, f.Calls())
}

func Test_Convert_RoundsHalfAwayFromZero(t *testing.T) {
	t.Parallel()
	c := newFakeCache()
	c.store[domain.NewRateKey(domain.USD, domain.EUR, now)] = dec("1.00005")
	svc := newSvc(c, &fakeFetcher{})

	res, err := svc.Convert(context.Background(), req("USD", "EUR", "1"))
	require.NoError(t, err)
	require.Equal(t, "1.0001", res.ToAmount.String())
}

func Test_Convert_AmountRoundedToPersistedScale(t *testing.T) {
	t.Parallel()
	c := newFakeCache()
	c.store[domain.NewRateKey(domain.USD, domain.BRL, now)] = dec("2")
	svc := newSvc(c, &fakeFetcher{})

	res, err := svc.Convert(context.Background(), req("USD", "BRL", "100.123456"))
	require.NoError(t, err)
	require.Equal(t, "100.1235", res.FromAmount.String())
	require.True(t, dec("200.247").Equal(res.ToAmount))

	_, err = svc.Convert(context.Background(), req("USD", "BRL", "0.00004"))
	require.ErrorIs(t, err, domain.ErrValidationFailed)
	e, _ := domain.AsError(err)
	require.Equal(t, []string{"Amount must be greater than zero"}, e.Reasons)
}

func Test_Convert_ProductRoundingToZeroRejected(t *testing.T) {
	t.Parallel()
	c := newFakeCache()
	c.store[domain.NewRateKey(domain.EUR, domain.JPY, now)] = dec("0.4")
	svc := newSvc(c, &fakeFetcher{})

	_, err := svc.Convert(context.Background(), req("EUR", "JPY", "0.0001"))
	require.ErrorIs(t, err, domain.ErrValidationFailed)
	e, _ := domain.AsError(err)
	require.Equal(t, []string{"Converted amount must be greater than zero"}, e.Reasons)
}

func Test_Convert_RateAtOrBelowMinimumNotCached(t *testing.T) {
	t.Parallel()
	for _, rate := range []string{"0.00005", "0.0001"} {
		c := newFakeCache()
		f := &fakeFetcher{rates: map[domain.Code]decimal.Decimal{domain.USD: dec(rate)}}
		svc := newSvc(c, f)

		_, err := svc.Convert(context.Background(), req("JPY", "USD", "1"))
		require.ErrorIs(t, err, domain.ErrRateUnavailable, rate)
		require.Zero(t, c.puts, rate)
	}
}

func Test_Convert_UnusableCachedRateIsRefetched(t *testing.T) {
	t.Parallel()
	c := newFakeCache()
	key := domain.NewRateKey(domain.JPY, domain.USD, now)
	c.store[key] = dec("0.00005")
	f := &fakeFetcher{rates: map[domain.Code]decimal.Decimal{domain.USD: dec("0.0067")}}
	svc := newSvc(c, f)

	res, err := svc.Convert(context.Background(), req("JPY", "USD", "1000"))
	require.NoError(t, err)
	require.True(t, dec("6.7").Equal(res.ToAmount))
	require.Equal(t, 1, f.Calls())
	require.True(t, dec("0.0067").Equal(c.store[key]))
}

func Test_ResolveRate_Identity(t *testing.T) {
	t.Parallel()
	f := &fakeFetcher{}
	c := newFakeCache()
	svc := newSvc(c, f)

	q, err := svc.resolveRate(context.Background(), domain.USD, domain.USD)
	require.NoError(t, err)
	require.True(t, q.Rate.Equal(decimal.NewFromInt(1)))
	require.Zero(t, f.Calls())
	require.Zero(t, c.puts)
}

func Test_WarmRates(t *testing.T) {
	t.Parallel()
	c := newFakeCache()
	f := &fakeFetcher{rates: map[domain.Code]decimal.Decimal{
		domain.BRL: dec("5.25"),
		domain.EUR: dec("0.85"),
	}}
	svc := newSvc(c, f)

	n, err := svc.WarmRates(context.Background(), domain.USD)
	require.NoError(t, err)
	require.Equal(t, 2, n, "JPY is missing from the response and is skipped")
	require.Equal(t, 1, f.Calls())
	require.True(t, dec("0.85").Equal(c.store[domain.NewRateKey(domain.USD, domain.EUR, now)]))
	_, ok := c.store[domain.NewRateKey(domain.USD, domain.JPY, now)]
	require.False(t, ok)
}

func Test_WarmRates_Errors(t *testing.T) {
	t.Parallel()
	_, err := newSvc(newFakeCache(), &fakeFetcher{}).WarmRates(context.Background(), "XYZ")
	require.ErrorIs(t, err, domain.ErrUnsupportedCurrency)

	f := &fakeFetcher{err: domain.RateUnavailable("", domain.USD, "", nil)}
	c := newFakeCache()
	_, err = newSvc(c, f).WarmRates(context.Background(), domain.USD)
	require.ErrorIs(t, err, domain.ErrRateUnavailable)
	require.Zero(t, c.puts)
}
