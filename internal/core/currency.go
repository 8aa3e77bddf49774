package core

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/currency"
)

var ErrUnknownCurrency = errors.New("unknown currency")

// Currency is a recognized ISO 4217 currency. The zero value is not a currency.
type Currency struct {
	unit currency.Unit
}

// ParseCurrency validates an ISO 4217 code. There is no fallback currency:
// an unrecognized code is always an error.
func ParseCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return Currency{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return Currency{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	c := Currency{unit: unit}
	if c.IsZero() {
		return Currency{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	return c, nil
}

// MustCurrency is ParseCurrency for compile-time constants and tests.
func MustCurrency(code string) Currency {
	c, err := ParseCurrency(code)
	if err != nil {
		panic(err)
	}
	return c
}

// IsZero reports whether c is unset (or the "no currency" code XXX).
func (c Currency) IsZero() bool {
	return c.unit == currency.Unit{} || c.unit == currency.XXX
}

// Code returns the three-letter ISO code.
func (c Currency) Code() string {
	if c.IsZero() {
		return ""
	}
	return c.unit.String()
}

// Equal reports whether c and o are the same currency.
func (c Currency) Equal(o Currency) bool {
	return c.unit == o.unit
}

func (c Currency) String() string {
	return c.Code()
}

// Scale returns the number of minor-unit digits, 2 for EUR, 0 for JPY.
func (c Currency) Scale() int {
	scale, _ := currency.Standard.Rounding(c.unit)
	return scale
}

func (c Currency) MarshalText() ([]byte, error) {
	if c.IsZero() {
		return nil, ErrUnknownCurrency
	}
	return []byte(c.Code()), nil
}

func (c *Currency) UnmarshalText(b []byte) error {
	parsed, err := ParseCurrency(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
