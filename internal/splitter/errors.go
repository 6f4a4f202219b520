package splitter

import (
	"fmt"

	"golang-move-import-service/pkg/errors"

	"github.com/shopspring/decimal"
)

// SplitError reports lines that cannot form a journal entry
type SplitError struct {
	*errors.ImportError
	Line int `json:"line"`
}

func (e *SplitError) Error() string {
	return e.Message
}

func (e *SplitError) Unwrap() error {
	return e.ImportError
}

func singleLineError(line int) *SplitError {
	base := errors.New(errors.CategorySplit, errors.CodeSingleLineEntry,
		fmt.Sprintf("Journal entry on line %d only has 1 line.", line)).
		WithSuggestion("check the journal, date and amounts of the lines around this one").
		WithContext("line", line)
	return &SplitError{ImportError: base, Line: line}
}

func missingEntryNumberError(line int) *SplitError {
	base := errors.New(errors.CategorySplit, errors.CodeMissingEntryRef,
		fmt.Sprintf("Line %d: missing journal entry number.", line)).
		WithSuggestion("fill the entry number column or split entries by balance").
		WithContext("line", line)
	return &SplitError{ImportError: base, Line: line}
}

// UnbalancedEntryError reports an entry whose lines do not sum to zero.
// Line is the last line of the entry, 0 when it ends on the last line of the file.
type UnbalancedEntryError struct {
	*errors.ImportError
	Line    int             `json:"line,omitempty"`
	Balance decimal.Decimal `json:"balance"`
}

func (e *UnbalancedEntryError) Error() string {
	return e.Message
}

func (e *UnbalancedEntryError) Unwrap() error {
	return e.ImportError
}

func unbalancedError(line int, balance string, residual decimal.Decimal) *UnbalancedEntryError {
	message := fmt.Sprintf("The journal entry that ends on line %d is not balanced (balance is %s).", line, balance)
	if line == 0 {
		message = fmt.Sprintf("The journal entry that ends on the last line is not balanced (balance is %s).", balance)
	}
	base := errors.New(errors.CategorySplit, errors.CodeUnbalancedEntry, message).
		WithSuggestion("the debit and credit of each journal entry must be equal").
		WithContext("balance", balance)
	if line > 0 {
		base.WithContext("line", line)
	}
	return &UnbalancedEntryError{ImportError: base, Line: line, Balance: residual}
}
