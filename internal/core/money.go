// Package core holds the domain types shared by the ledger engine and the
// services around it, plus helpers for parsing and rendering minor-unit amounts.
package core

import (
	"math"
	"strconv"
	"strings"
)

// ParseDecimalToCents converts a decimal string to minor units of a
// two-digit currency with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) separators. The result is
// always positive; negative, zero and malformed inputs return ErrInvalidAmount.
//
// Examples:
//
//	ParseDecimalToCents("12.34")  -> 1234, nil
//	ParseDecimalToCents("12,34")  -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
//	ParseDecimalToCents("12.344") -> 1234, nil
func ParseDecimalToCents(s string) (int64, error) {
	return ParseDecimal(s, 2)
}

// ParseDecimal converts a decimal string to minor units for a currency with
// the given scale, rounding half-up on the first dropped digit.
func ParseDecimal(s string, scale int) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || scale < 0 || scale > 4 {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if r < '0' || r > '9' {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	factor := int64(1)
	for i := 0; i < scale; i++ {
		factor *= 10
	}
	if iv > (1<<63-1)/factor-1 {
		return 0, ErrInvalidAmount
	}
	var frac int64
	for i := 0; i < scale; i++ {
		frac *= 10
		if i < len(fracPart) {
			frac += int64(fracPart[i] - '0')
		}
	}
	if len(fracPart) > scale && fracPart[scale] >= '5' {
		frac++
	}
	cents := iv*factor + frac
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// FormatCents renders a signed minor-unit amount with the currency's scale,
// e.g. -1234 EUR -> "-12.34 EUR", 500 JPY -> "500 JPY".
func FormatCents(cents int64, c Currency) string {
	neg := cents < 0
	u := uint64(cents)
	if neg {
		u = uint64(-cents)
	}
	scale := c.Scale()
	digits := strconv.FormatUint(u, 10)
	if scale > 0 {
		if len(digits) <= scale {
			digits = strings.Repeat("0", scale-len(digits)+1) + digits
		}
		digits = digits[:len(digits)-scale] + "." + digits[len(digits)-scale:]
	}
	if neg {
		digits = "-" + digits
	}
	if code := c.Code(); code != "" {
		return digits + " " + code
	}
	return digits
}

// Major returns the amount in major units for display purposes only.
func (m Money) Major(c Currency) float64 {
	return float64(m.Cents) / math.Pow10(c.Scale())
}
