package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the persisted record of a conversion.
type Transaction struct {
	ID        string
	From      Code
	To        Code
	FromValue decimal.Decimal
	ToValue   decimal.Decimal
	Rate      decimal.Decimal
	Timestamp time.Time
	CreatedAt time.Time
}

func NewTransaction(id string, r ConversionResult) Transaction {
	return Transaction{
		ID:        id,
		From:      r.From,
		To:        r.To,
		FromValue: r.FromAmount,
		ToValue:   r.ToAmount,
		Rate:      r.Rate,
		Timestamp: r.ComputedAt.UTC(),
	}
}

// Validate applies the storage-layer rules. It does not trust the conversion pipeline's
// own checks.
func (t Transaction) Validate() error {
	var reasons []string
	if !IsSupported(t.From) {
		reasons = append(reasons, "From currency is not included in the list")
	}
	if !IsSupported(t.To) {
		reasons = append(reasons, "To currency is not included in the list")
	}
	if t.From != "" && t.From == t.To {
		reasons = append(reasons, "To currency must be different from source currency")
	}
	if !t.FromValue.IsPositive() {
		reasons = append(reasons, "From value must be greater than 0")
	}
	if !t.ToValue.IsPositive() {
		reasons = append(reasons, "To value must be greater than 0")
	}
	if !t.Rate.GreaterThan(MinRate) {
		reasons = append(reasons, "Rate must be greater than "+MinRate.String())
	}
	if t.Timestamp.IsZero() {
		reasons = append(reasons, "Timestamp can't be blank")
	}
	if len(reasons) > 0 {
		return ValidationFailed(reasons...)
	}
	return nil
}

// TransactionPage is one page of transactions, newest first.
type TransactionPage struct {
	Items      []Transaction
	Page       int
	PerPage    int
	TotalCount int
}

func (p TransactionPage) TotalPages() int {
	if p.PerPage <= 0 {
		return 0
	}
	return (p.TotalCount + p.PerPage - 1) / p.PerPage
}

// NextPage returns 0 when there is no next page.
func (p TransactionPage) NextPage() int {
	if p.Page < p.TotalPages() {
		return p.Page + 1
	}
	return 0
}

// PrevPage returns 0 on the first page.
func (p TransactionPage) PrevPage() int {
	if p.Page > 1 {
		return p.Page - 1
	}
	return 0
}
