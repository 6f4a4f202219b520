package models

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrencyCode is used when the company currency is not configured
const DefaultCurrencyCode = "EUR"

// Currency compares amounts at the precision of a company currency
type Currency struct {
	Code     string
	Fraction int32
}

// NewCurrency looks up an ISO 4217 code
func NewCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = DefaultCurrencyCode
	}
	cur := money.GetCurrency(code)
	if cur == nil {
		return Currency{}, fmt.Errorf("unknown currency code: %s", code)
	}
	return Currency{Code: cur.Code, Fraction: int32(cur.Fraction)}, nil
}

// MustCurrency is NewCurrency for codes known to exist
func MustCurrency(code string) Currency {
	cur, err := NewCurrency(code)
	if err != nil {
		panic(err)
	}
	return cur
}

// Round rounds d to the currency precision
func (c Currency) Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(c.Fraction)
}

// IsZero reports whether d rounds to zero in this currency
func (c Currency) IsZero(d decimal.Decimal) bool {
	return c.Round(d).IsZero()
}

// Format renders d with the currency precision
func (c Currency) Format(d decimal.Decimal) string {
	return d.StringFixed(c.Fraction)
}
