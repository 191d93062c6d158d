// Package money wraps fixed-point decimal arithmetic for balance math.
// Every mutation of a stored balance goes through these helpers so the
// rounding rule (half away from zero, at a configured number of fractional
// digits) is applied in exactly one place. Binary floating point is never
// involved.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultPrecision is the number of fractional digits kept on balances.
const DefaultPrecision int32 = 2

var ErrInvalidAmount = errors.New("invalid amount")

func Add(a, b decimal.Decimal, precision int32) decimal.Decimal {
	return a.Add(b).Round(precision)
}

func Sub(a, b decimal.Decimal, precision int32) decimal.Decimal {
	return a.Sub(b).Round(precision)
}

func Mul(a, b decimal.Decimal, precision int32) decimal.Decimal {
	return a.Mul(b).Round(precision)
}

// ParseAmount parses a user-supplied amount string. The value must be a
// positive decimal with no more than precision fractional digits of
// significance; anything else is ErrInvalidAmount.
func ParseAmount(s string, precision int32) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}
	if !d.Equal(d.Round(precision)) {
		return decimal.Zero, fmt.Errorf("%w: more than %d fractional digits", ErrInvalidAmount, precision)
	}
	return d.Round(precision), nil
}

var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CAD": "C$",
	"AUD": "A$",
	"CHF": "Fr",
}

// SymbolFor returns the display glyph for a currency code, falling back
// to the code itself.
func SymbolFor(code string) string {
	if s, ok := symbols[code]; ok {
		return s
	}
	return code
}

// IsAllowedCurrency reports whether a currency may be used for a transfer.
// A currency passes if it is on the configured allow-list or if it equals
// the caller's stored preferred currency (the per-user override).
func IsAllowedCurrency(code string, allowed []string, preferred string) bool {
	for _, c := range allowed {
		if c == code {
			return true
		}
	}
	return preferred != "" && code == preferred
}
