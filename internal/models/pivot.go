// Package models holds the records that flow through an import run: pivot
// lines produced by the parsers, resolved lines carrying directory ids, and
// the journal entries built from them.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ID is an internal identifier handed out by the directory or the ledger
type ID int64

// Amount is a debit or credit value. Raw keeps the source text when the
// value could not be read as a number, so the resolver can report it.
type Amount struct {
	Value decimal.Decimal `json:"value"`
	Raw   string          `json:"raw,omitempty"`
}

// NewAmount returns a numeric amount
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Value: d}
}

// AmountFromInt is a shorthand used by parsers and tests
func AmountFromInt(v int64) Amount {
	return Amount{Value: decimal.NewFromInt(v)}
}

// IsNumeric reports whether the amount holds a usable number
func (a Amount) IsNumeric() bool {
	return a.Raw == ""
}

func (a Amount) String() string {
	if !a.IsNumeric() {
		return a.Raw
	}
	return a.Value.String()
}

// PivotLine is the canonical record every format parser produces.
// Empty strings mean the field is absent.
type PivotLine struct {
	Line         int       `json:"line"`
	Date         time.Time `json:"date"`
	DateText     string    `json:"date_text,omitempty"`
	Journal      string    `json:"journal"`
	Account      string    `json:"account"`
	Partner      string    `json:"partner,omitempty"`
	Analytic     string    `json:"analytic,omitempty"`
	Name         string    `json:"name,omitempty"`
	Debit        Amount    `json:"debit"`
	Credit       Amount    `json:"credit"`
	Ref          string    `json:"ref,omitempty"`
	ReconcileRef string    `json:"reconcile_ref,omitempty"`
	MoveName     string    `json:"move_name,omitempty"`
}

// HasDate reports whether a typed date is set
func (l PivotLine) HasDate() bool {
	return !l.Date.IsZero()
}

func (l PivotLine) String() string {
	return fmt.Sprintf("line %d: %s %s %s D=%s C=%s", l.Line, l.Journal, l.Account,
		l.Date.Format("2006-01-02"), l.Debit, l.Credit)
}

// ResolvedLine is a pivot line whose codes were found in the directory
type ResolvedLine struct {
	PivotLine
	AccountID            ID                     `json:"account_id"`
	JournalID            ID                     `json:"journal_id"`
	PartnerID            ID                     `json:"partner_id,omitempty"`
	AnalyticDistribution map[ID]decimal.Decimal `json:"analytic_distribution,omitempty"`
}

// HasPartner reports whether a partner was resolved for the line
func (l ResolvedLine) HasPartner() bool {
	return l.PartnerID != 0
}

// Balance returns credit minus debit
func (l ResolvedLine) Balance() decimal.Decimal {
	return l.Credit.Value.Sub(l.Debit.Value)
}

// ParseDecimalFromString parses an amount written with a dot or a comma as
// decimal separator. Empty input is zero.
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}

	normalized := strings.ReplaceAll(s, ",", ".")
	normalized = strings.ReplaceAll(normalized, " ", "")
	amount, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format: %s", s)
	}
	return amount, nil
}
