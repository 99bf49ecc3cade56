package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const dayLayout = "2006-01-02"

// Quote is an exchange rate for an ordered pair at a point in time. Rate is always > 0.
type Quote struct {
	From      Code
	To        Code
	Rate      decimal.Decimal
	FetchedAt time.Time
}

// IdentityQuote is the synthesized rate of 1 for from == to; it is never fetched.
func IdentityQuote(c Code, at time.Time) Quote {
	return Quote{From: c, To: c, Rate: decimal.NewFromInt(1), FetchedAt: at.UTC()}
}

// RateKey identifies a cached rate. Day rolls over at UTC midnight so a quote is never
// reused across a day boundary.
type RateKey struct {
	From Code
	To   Code
	Day  string
}

func NewRateKey(from, to Code, at time.Time) RateKey {
	return RateKey{From: from, To: to, Day: at.UTC().Format(dayLayout)}
}

func (k RateKey) String() string {
	return fmt.Sprintf("exchange_rate:%s:%s:%s", k.From, k.To, k.Day)
}
