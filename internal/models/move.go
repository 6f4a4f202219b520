package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Move is a journal entry ready to be persisted
type Move struct {
	JournalID ID             `json:"journal_id"`
	Journal   string         `json:"journal"`
	Date      time.Time      `json:"date"`
	Ref       string         `json:"ref,omitempty"`
	Name      string         `json:"name,omitempty"`
	Lines     []ResolvedLine `json:"lines"`
}

// FirstLine returns the source line number the entry starts on
func (m *Move) FirstLine() int {
	if len(m.Lines) == 0 {
		return 0
	}
	return m.Lines[0].Line
}

// LastLine returns the source line number the entry ends on
func (m *Move) LastLine() int {
	if len(m.Lines) == 0 {
		return 0
	}
	return m.Lines[len(m.Lines)-1].Line
}

// Balance returns the sum of credits minus the sum of debits
func (m *Move) Balance() decimal.Decimal {
	total := decimal.Zero
	for _, l := range m.Lines {
		total = total.Add(l.Balance())
	}
	return total
}

// TotalDebit returns the sum of the debit column
func (m *Move) TotalDebit() decimal.Decimal {
	total := decimal.Zero
	for _, l := range m.Lines {
		total = total.Add(l.Debit.Value)
	}
	return total
}

func (m *Move) String() string {
	return fmt.Sprintf("%s %s lines %d-%d (%d lines, %s)", m.Journal, m.Date.Format("2006-01-02"),
		m.FirstLine(), m.LastLine(), len(m.Lines), m.TotalDebit().StringFixed(2))
}

// CreatedMove is a persisted entry as returned by the ledger
type CreatedMove struct {
	ID        ID              `json:"id"`
	Name      string          `json:"name,omitempty"`
	Journal   string          `json:"journal"`
	Date      time.Time       `json:"date"`
	Ref       string          `json:"ref,omitempty"`
	LineCount int             `json:"line_count"`
	Total     decimal.Decimal `json:"total"`
}
