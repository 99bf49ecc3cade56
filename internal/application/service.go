package application

import (
	"context"
	"fmt"
	"time"

	"fxconvert-service/internal/domain"

	"go.uber.org/zap"
)

// DefaultRateTTL is how long a fetched rate stays in the cache. The day component of
// the key bounds reuse further.
const DefaultRateTTL = 24 * time.Hour

// ConversionService validates a request, resolves the rate through the cache or the
// fetcher, and computes the converted amount. It holds no locks across the fetch.
type ConversionService struct {
	cache    RateCache
	fetcher  RateFetcher
	ttl      time.Duration
	clock    Clock
	observer Observer
	log      *zap.Logger
}

type Option func(*ConversionService)

func WithClock(c Clock) Option { return func(s *ConversionService) { s.clock = c } }
func WithRateTTL(d time.Duration) Option { return func(s *ConversionService) { s.ttl = d } }
func WithObserver(o Observer) Option { return func(s *ConversionService) { s.observer = o } }
func WithLogger(l *zap.Logger) Option { return func(s *ConversionService) { s.log = l } }

func NewConversionService(cache RateCache, fetcher RateFetcher, opts ...Option) *ConversionService {
	s := &ConversionService{
		cache:   cache,
		fetcher: fetcher,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.ttl <= 0 {
		s.ttl = DefaultRateTTL
	}
	if s.observer == nil {
		s.observer = noopObserver{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Convert returns the conversion of req.Amount at the current rate, or a classified
// error. The amount is rounded to the persisted scale first, so the result carries the
// same value storage keeps. Validation failures are reported before any network call.
func (s *ConversionService) Convert(ctx context.Context, req domain.ConversionRequest) (res domain.ConversionResult, err error) {
	defer func() { s.observer.ConversionDone(outcomeOf(err)) }()

	req.Amount = domain.RoundAmount(req.Amount)
	if err := validateRequest(req); err != nil {
		return domain.ConversionResult{}, err
	}
	quote, err := s.resolveRate(ctx, req.From, req.To)
	if err != nil {
		return domain.ConversionResult{}, err
	}
	toAmount := domain.Convert(req.Amount, quote.Rate)
	if !toAmount.IsPositive() {
		return domain.ConversionResult{}, domain.ValidationFailed("Converted amount must be greater than zero")
	}
	res = domain.ConversionResult{
		From:       req.From,
		To:         req.To,
		FromAmount: req.Amount,
		ToAmount:   toAmount,
		Rate:       quote.Rate,
		ComputedAt: s.clock.Now().UTC(),
	}
	s.log.Info("conversion.done",
		zap.String("from", string(res.From)),
		zap.String("to", string(res.To)),
		zap.String("rate", res.Rate.String()),
		zap.String("from_amount", res.FromAmount.String()),
		zap.String("to_amount", res.ToAmount.String()),
	)
	return res, nil
}

func validateRequest(req domain.ConversionRequest) error {
	var missing []string
	if req.From == "" {
		missing = append(missing, "Source currency is required")
	}
	if req.To == "" {
		missing = append(missing, "Target currency is required")
	}
	if len(missing) > 0 {
		if !req.Amount.IsPositive() {
			missing = append(missing, "Amount must be greater than zero")
		}
		return domain.ValidationFailed(missing...)
	}

	for _, c := range []domain.Code{req.From, req.To} {
		if !domain.IsSupported(c) {
			return domain.UnsupportedCurrency(c)
		}
	}

	var reasons []string
	if !req.Amount.IsPositive() {
		reasons = append(reasons, "Amount must be greater than zero")
	}
	if req.From == req.To {
		reasons = append(reasons, "Source and target currencies must be different")
	}
	if len(reasons) > 0 {
		return domain.ValidationFailed(reasons...)
	}
	return nil
}

// resolveRate answers from the cache when it can and fetches otherwise. The identity
// shortcut is only reachable internally: Convert rejects from == to beforehand.
func (s *ConversionService) resolveRate(ctx context.Context, from, to domain.Code) (domain.Quote, error) {
	now := s.clock.Now()
	if from == to {
		return domain.IdentityQuote(from, now), nil
	}

	key := domain.NewRateKey(from, to, now)
	log := s.log.With(zap.String("cache_key", key.String()))

	rate, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		log.Warn("rate_cache.get_failed", zap.Error(err))
	case ok && !rate.GreaterThan(domain.MinRate):
		log.Warn("rate_cache.unusable_rate", zap.String("rate", rate.String()))
	case ok:
		s.observer.CacheLookup(true)
		log.Debug("rate_cache.hit")
		return domain.Quote{From: from, To: to, Rate: rate, FetchedAt: now.UTC()}, nil
	}
	s.observer.CacheLookup(false)
	log.Debug("rate_cache.miss")

	q, err := s.fetcher.FetchRate(ctx, from, to)
	if err != nil {
		if domain.KindOf(err) == "" {
			err = domain.RateUnavailable("", from, to, err)
		}
		return domain.Quote{}, err
	}
	if !q.Rate.GreaterThan(domain.MinRate) {
		return domain.Quote{}, domain.RateUnavailable(
			fmt.Sprintf("Unusable exchange rate for %s -> %s", from, to), from, to, nil)
	}
	if cerr := ctx.Err(); cerr != nil {
		// the caller gave up; the fetched rate must not reach the cache
		return domain.Quote{}, domain.RateUnavailable("Conversion canceled", from, to, cerr)
	}
	if err := s.cache.Put(ctx, key, q.Rate, s.ttl); err != nil {
		log.Warn("rate_cache.put_failed", zap.Error(err))
	}
	return q, nil
}

// WarmRates fetches every other supported currency against base in one upstream call
// and stores the results under today's keys. It returns how many rates were cached.
func (s *ConversionService) WarmRates(ctx context.Context, base domain.Code) (int, error) {
	if !domain.IsSupported(base) {
		return 0, domain.UnsupportedCurrency(base)
	}
	var targets []domain.Code
	for _, c := range domain.SupportedCodes() {
		if c != base {
			targets = append(targets, c)
		}
	}

	quotes, err := s.fetcher.FetchRates(ctx, base, targets)
	if err != nil {
		return 0, err
	}
	now := s.clock.Now()
	warmed := 0
	for _, to := range targets {
		q, ok := quotes[to]
		if !ok {
			s.log.Warn("rate_warm.missing_target", zap.String("from", string(base)), zap.String("to", string(to)))
			continue
		}
		key := domain.NewRateKey(base, to, now)
		if err := s.cache.Put(ctx, key, q.Rate, s.ttl); err != nil {
			s.log.Warn("rate_cache.put_failed", zap.String("cache_key", key.String()), zap.Error(err))
			continue
		}
		warmed++
	}
	return warmed, nil
}
