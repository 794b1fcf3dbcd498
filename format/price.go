// Package format converts prices and dates between form input and display.
package format

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidPrice is returned for input PriceToCents cannot represent.
var ErrInvalidPrice = errors.New("invalid price")

// maxPriceCents caps prices at one million dollars.
const maxPriceCents = 100_000_000

// PriceToCents parses a decimal price such as "12.95", "5" or "0.5" into cents.
// A leading "$" and surrounding whitespace are accepted; at most two decimals.
func PriceToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidPrice)
	}

	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if hasDot && (frac == "" || len(frac) > 2) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	if !isDigits(whole) || !isDigits(frac) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}

	dollars, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}

	total := dollars*100 + cents
	if dollars > maxPriceCents/100 || total > maxPriceCents {
		return 0, fmt.Errorf("%w: %q exceeds maximum", ErrInvalidPrice, s)
	}
	return total, nil
}

// CentsToPrice renders cents as a plain two-decimal string ("12.95").
func CentsToPrice(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// FormatPrice renders cents for display ("$12.95").
func FormatPrice(cents int64) string {
	if cents < 0 {
		return "-$" + CentsToPrice(-cents)
	}
	return "$" + CentsToPrice(cents)
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
