package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fxconvert-service/internal/application"
	"fxconvert-service/internal/domain"
	"fxconvert-service/internal/infrastructure/httpx"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	DefaultCurrencyAPIBase = "https://api.currencyapi.com/v3"
	DefaultTimeout         = 10 * time.Second
	latestPath             = "latest"
)

// CurrencyAPIProvider fetches rates from currencyapi.com. Retries are handled by Client.
type CurrencyAPIProvider struct {
	BaseURL string
	APIKey  string
	// Timeout is the per-attempt limit, reported back in timeout errors.
	Timeout time.Duration
	Client  *httpx.Client
	Log     *zap.Logger

	now func() time.Time
}

var _ application.RateFetcher = (*CurrencyAPIProvider)(nil)

// NewCurrencyAPIProvider fails when apiKey is empty. A client without an *http.Client
// gets one bounded by timeout.
func NewCurrencyAPIProvider(baseURL, apiKey string, timeout time.Duration, client *httpx.Client, log *zap.Logger) (*CurrencyAPIProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("currencyapi: CURRENCY_API_KEY is required")
	}
	if baseURL == "" {
		baseURL = DefaultCurrencyAPIBase
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if client == nil {
		client = &httpx.Client{Policy: httpx.DefaultRetryPolicy(), Log: log}
	}
	if client.HTTP == nil {
		client.HTTP = &http.Client{Timeout: timeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CurrencyAPIProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Timeout: timeout,
		Client:  client,
		Log:     log,
	}, nil
}

func (p *CurrencyAPIProvider) FetchRate(ctx context.Context, from, to domain.Code) (domain.Quote, error) {
	if err := validateCodes(from, to); err != nil {
		return domain.Quote{}, err
	}
	body, err := p.latest(ctx, from, []domain.Code{to})
	if err != nil {
		e := p.classify(err, from)
		e.To = to
		return domain.Quote{}, e
	}

	rate, found, err := parseRate(body, to)
	if !found {
		return domain.Quote{}, domain.RateUnavailable(
			fmt.Sprintf("No exchange rate available for %s -> %s", from, to), from, to, nil)
	}
	if err != nil {
		return domain.Quote{}, domain.RateUnavailable(
			fmt.Sprintf("Unusable exchange rate for %s -> %s", from, to), from, to, err)
	}
	return domain.Quote{From: from, To: to, Rate: rate, FetchedAt: p.fetchedAt(body)}, nil
}

// FetchRates issues one upstream call for all targets. Targets the upstream omits, or
// answers with an unusable value, are left out of the result.
func (p *CurrencyAPIProvider) FetchRates(ctx context.Context, from domain.Code, to []domain.Code) (map[domain.Code]domain.Quote, error) {
	if err := validateCodes(append([]domain.Code{from}, to...)...); err != nil {
		return nil, err
	}
	out := make(map[domain.Code]domain.Quote, len(to))
	if len(to) == 0 {
		return out, nil
	}
	body, err := p.latest(ctx, from, to)
	if err != nil {
		e := p.classify(err, from)
		e.Targets = to
		return nil, e
	}

	at := p.fetchedAt(body)
	for _, c := range to {
		rate, found, err := parseRate(body, c)
		if !found {
			continue
		}
		if err != nil {
			p.Log.Warn("currencyapi.unusable_rate", zap.String("from", string(from)), zap.String("to", string(c)), zap.Error(err))
			continue
		}
		out[c] = domain.Quote{From: from, To: c, Rate: rate, FetchedAt: at}
	}
	return out, nil
}

func (p *CurrencyAPIProvider) latest(ctx context.Context, from domain.Code, to []domain.Code) ([]byte, error) {
	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("currencyapi: invalid base url: %w", err)
	}
	u = u.JoinPath(latestPath)
	q := u.Query()
	q.Set("apikey", p.APIKey)
	q.Set("base_currency", string(from))
	q.Set("currencies", domain.JoinCodes(to))
	u.RawQuery = q.Encode()

	body, err := p.Client.Get(ctx, u.String())
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, errMalformed
	}
	return body, nil
}

var errMalformed = errors.New("currencyapi: malformed response body")

// classify maps a transport or status failure onto the error taxonomy.
func (p *CurrencyAPIProvider) classify(err error, from domain.Code) *domain.Error {
	var se *httpx.StatusError
	switch {
	case errors.As(err, &se):
		switch se.Code {
		case http.StatusUnauthorized:
			e := domain.RateUnavailable("Invalid API key for currency exchange service", from, "", err)
			e.Status = se.Code
			return e
		case http.StatusUnprocessableEntity:
			e := domain.RateUnavailable("Invalid currency code provided to exchange service", from, "", err)
			e.Status = se.Code
			return e
		case http.StatusTooManyRequests:
			e := domain.RateLimitExceeded(from, "", retryAfter(se.Header, p.clock()))
			e.Err = err
			return e
		default:
			e := domain.RateUnavailable("Currency exchange service returned unexpected status", from, "", err)
			e.Status = se.Code
			return e
		}
	case errors.Is(err, errMalformed):
		return domain.RateUnavailable("Currency exchange service returned malformed data", from, "", err)
	case httpx.IsTimeout(err):
		e := domain.RateUnavailable("Currency exchange service timeout", from, "", err)
		e.Timeout = p.Timeout
		return e
	case errors.Is(err, context.Canceled):
		return domain.RateUnavailable("Currency exchange request canceled", from, "", err)
	default:
		return domain.RateUnavailable("Currency exchange service error", from, "", err)
	}
}

// parseRate reads data.<CODE>.value. found is false when the code is absent; a present
// value that is not a decimal above domain.MinRate yields an error.
func parseRate(body []byte, to domain.Code) (rate decimal.Decimal, found bool, err error) {
	v := gjson.GetBytes(body, "data."+string(to)+".value")
	if !v.Exists() || v.Type == gjson.Null {
		return decimal.Decimal{}, false, nil
	}
	raw := v.Raw
	if v.Type == gjson.String {
		raw = v.Str
	}
	rate, err = decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, true, fmt.Errorf("parse rate %q: %w", raw, err)
	}
	if !rate.GreaterThan(domain.MinRate) {
		return decimal.Decimal{}, true, fmt.Errorf("rate %s not above %s", rate, domain.MinRate)
	}
	return rate, true, nil
}

func (p *CurrencyAPIProvider) fetchedAt(body []byte) time.Time {
	if v := gjson.GetBytes(body, "meta.last_updated_at"); v.Exists() {
		if t, err := time.Parse(time.RFC3339, v.Str); err == nil {
			return t.UTC()
		}
	}
	return p.clock().UTC()
}

func (p *CurrencyAPIProvider) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

// retryAfter accepts delta-seconds or an HTTP date and falls back to the default.
func retryAfter(h http.Header, now time.Time) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return domain.DefaultRetryAfter
	}
	if n, err := strconv.Atoi(v); err == nil {
		if n > 0 {
			return time.Duration(n) * time.Second
		}
		return domain.DefaultRetryAfter
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return domain.DefaultRetryAfter
}

func validateCodes(codes ...domain.Code) error {
	for _, c := range codes {
		if !domain.IsSupported(c) {
			return domain.UnsupportedCurrency(c)
		}
	}
	return nil
}
