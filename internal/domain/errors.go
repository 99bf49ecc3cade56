package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorKind is the discriminant of a classified failure.
type ErrorKind string

const (
	KindUnsupportedCurrency ErrorKind = "currency_not_supported"
	KindValidationFailed    ErrorKind = "validation_failed"
	KindRateUnavailable     ErrorKind = "exchange_rate_unavailable"
	KindRateLimitExceeded   ErrorKind = "rate_limit_exceeded"
)

// DefaultRetryAfter is used when the upstream answers 429 without a usable Retry-After header.
const DefaultRetryAfter = 60 * time.Second

// Error is a classified failure. Only the fields relevant to Kind are set.
type Error struct {
	Kind    ErrorKind
	Message string

	// UnsupportedCurrency
	Currency  Code
	Supported []Code

	// ValidationFailed
	Reasons []string

	// RateUnavailable / RateLimitExceeded
	From       Code
	To         Code
	Targets    []Code
	Status     int
	Timeout    time.Duration
	RetryAfter time.Duration

	Err error
}

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrUnsupportedCurrency = &Error{Kind: KindUnsupportedCurrency}
	ErrValidationFailed    = &Error{Kind: KindValidationFailed}
	ErrRateUnavailable     = &Error{Kind: KindRateUnavailable}
	ErrRateLimitExceeded   = &Error{Kind: KindRateLimitExceeded}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Details renders the structured payload, omitting unset fields.
func (e *Error) Details() map[string]any {
	d := map[string]any{}
	switch e.Kind {
	case KindUnsupportedCurrency:
		d["currency"] = e.Currency
		d["supported_currencies"] = e.Supported
	case KindValidationFailed:
		d["reasons"] = e.Reasons
	default:
		if e.From != "" {
			d["from"] = e.From
		}
		if e.To != "" {
			d["to"] = e.To
		}
		if len(e.Targets) > 0 {
			d["to_currencies"] = e.Targets
		}
		if e.Status != 0 {
			d["status"] = e.Status
		}
		if e.Timeout > 0 {
			d["timeout"] = int(e.Timeout / time.Second)
		}
		if e.Kind == KindRateLimitExceeded {
			d["retry_after"] = e.RetryAfterSeconds()
		}
	}
	return d
}

// RetryAfterSeconds rounds the hint up to whole seconds, as sent in a Retry-After header.
func (e *Error) RetryAfterSeconds() int {
	if e.RetryAfter <= 0 {
		return 0
	}
	return int((e.RetryAfter + time.Second - 1) / time.Second)
}

// AsError extracts a classified error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of a classified error, or "" for anything else.
func KindOf(err error) ErrorKind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return ""
}

func UnsupportedCurrency(code Code) *Error {
	return &Error{
		Kind:      KindUnsupportedCurrency,
		Message:   fmt.Sprintf("Currency '%s' is not supported", code),
		Currency:  code,
		Supported: SupportedCodes(),
	}
}

func ValidationFailed(reasons ...string) *Error {
	return &Error{
		Kind:    KindValidationFailed,
		Message: strings.Join(reasons, ", "),
		Reasons: reasons,
	}
}

func RateUnavailable(msg string, from, to Code, cause error) *Error {
	if msg == "" {
		msg = "Exchange rate data is currently unavailable"
	}
	return &Error{Kind: KindRateUnavailable, Message: msg, From: from, To: to, Err: cause}
}

func RateLimitExceeded(from, to Code, retryAfter time.Duration) *Error {
	if retryAfter <= 0 {
		retryAfter = DefaultRetryAfter
	}
	return &Error{
		Kind:       KindRateLimitExceeded,
		Message:    "Currency exchange API rate limit exceeded",
		From:       from,
		To:         to,
		Status:     429,
		RetryAfter: retryAfter,
	}
}
