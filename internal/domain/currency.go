package domain

import "strings"

// Code is an ISO-4217 currency code from the supported set.
type Code string

const (
	BRL Code = "BRL"
	EUR Code = "EUR"
	JPY Code = "JPY"
	USD Code = "USD"
)

var supported = []Code{BRL, USD, EUR, JPY}

var supportedSet = map[Code]bool{
	BRL: true,
	USD: true,
	EUR: true,
	JPY: true,
}

// SupportedCodes returns a copy of the supported currency set in registry order.
func SupportedCodes() []Code {
	out := make([]Code, len(supported))
	copy(out, supported)
	return out
}

// IsSupported reports whether code is in the registry. Comparison is exact.
func IsSupported(code Code) bool {
	return supportedSet[code]
}

// ParseCode trims surrounding whitespace; it does not change case, so "usd" stays unsupported.
func ParseCode(s string) Code {
	return Code(strings.TrimSpace(s))
}

func (c Code) String() string { return string(c) }

// JoinCodes renders codes as a comma separated list, the format the upstream expects.
func JoinCodes(codes []Code) string {
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}
