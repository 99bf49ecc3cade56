package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places persisted for amounts.
const AmountScale = 4

// MinRate is the exclusive lower bound storage accepts for a rate.
var MinRate = decimal.New(1, -4)

type ConversionRequest struct {
	From   Code
	To     Code
	Amount decimal.Decimal
}

type ConversionResult struct {
	From       Code
	To         Code
	FromAmount decimal.Decimal
	ToAmount   decimal.Decimal
	Rate       decimal.Decimal
	ComputedAt time.Time
}

// RoundAmount rounds half away from zero to AmountScale places. Idempotent.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountScale)
}

// Convert multiplies exactly and rounds the product.
func Convert(amount, rate decimal.Decimal) decimal.Decimal {
	return RoundAmount(amount.Mul(rate))
}
