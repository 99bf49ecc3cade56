package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// RetryPolicy is an exponential backoff schedule with jitter. MaxRetries counts
// retries, so the total number of attempts is MaxRetries+1.
type RetryPolicy struct {
	InitialInterval time.Duration
	Multiplier      float64
	Jitter          float64
	MaxRetries      uint64
	RetryStatuses   []int
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 500 * time.Millisecond,
		Multiplier:      2,
		Jitter:          0.5,
		MaxRetries:      3,
		RetryStatuses: []int{
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
	}
}

func (p RetryPolicy) Retryable(code int) bool {
	for _, c := range p.RetryStatuses {
		if c == code {
			return true
		}
	}
	return false
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOffContext {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialInterval
	exp.Multiplier = p.Multiplier
	exp.RandomizationFactor = p.Jitter
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, p.MaxRetries), ctx)
}

// StatusError is returned for any non-2xx response that was not recovered by retrying.
type StatusError struct {
	Code   int
	Header http.Header
	Body   []byte
}

func (e *StatusError) Error() string { return fmt.Sprintf("status %d", e.Code) }

// AttemptObserver is told about every upstream attempt. outcome is the status code or
// "error" for transport failures.
type AttemptObserver interface {
	UpstreamAttempt(outcome string, d time.Duration)
}

type Client struct {
	HTTP     *http.Client
	Policy   RetryPolicy
	Log      *zap.Logger
	Observer AttemptObserver
	// NewTimer overrides the backoff timer; nil uses real time.
	NewTimer func() backoff.Timer
}

// Get fetches rawURL and returns the body of the first 2xx response. Timeouts and
// retryable statuses are retried; other failures and cancellation end the call at once.
// The query string is never logged.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}
	policy := c.Policy
	if policy.InitialInterval == 0 {
		policy = DefaultRetryPolicy()
	}

	var target string
	if u, err := url.Parse(rawURL); err == nil {
		target = u.Host + u.Path
	}

	var (
		out     []byte
		attempt int
	)
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		log.Info("external_api.request", zap.String("url", target), zap.Int("attempt", attempt))

		start := time.Now()
		resp, err := hc.Do(req)
		if err != nil {
			var ue *url.Error
			if errors.As(err, &ue) {
				ue.URL = target
			}
			c.observe("error", time.Since(start))
			log.Warn("external_api.response",
				zap.String("url", target),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.Bool("success", false),
				zap.Error(err),
			)
			return classify(ctx, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		elapsed := time.Since(start)
		c.observe(strconv.Itoa(resp.StatusCode), elapsed)
		success := resp.StatusCode >= 200 && resp.StatusCode < 300
		log.Info("external_api.response",
			zap.String("url", target),
			zap.Int("status", resp.StatusCode),
			zap.Int64("duration_ms", elapsed.Milliseconds()),
			zap.Bool("success", success),
		)
		if err != nil {
			return classify(ctx, err)
		}
		if !success {
			se := &StatusError{Code: resp.StatusCode, Header: resp.Header, Body: body}
			if policy.Retryable(resp.StatusCode) {
				return se
			}
			return backoff.Permanent(se)
		}
		out = body
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Warn("external_api.retry",
			zap.String("url", target),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	var timer backoff.Timer
	if c.NewTimer != nil {
		timer = c.NewTimer()
	}
	if err := backoff.RetryNotifyWithTimer(op, policy.backOff(ctx), notify, timer); err != nil {
		return nil, err
	}
	return out, nil
}

// classify decides whether a transport error is worth another attempt.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return backoff.Permanent(err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return err
	}
	return backoff.Permanent(err)
}

func (c *Client) observe(outcome string, d time.Duration) {
	if c.Observer != nil {
		c.Observer.UpstreamAttempt(outcome, d)
	}
}

// IsTimeout reports whether err is a network or deadline timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
