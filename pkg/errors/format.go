package errors

import (
	"fmt"
	"strings"
)

// LineContext locates a problem inside the imported file
type LineContext struct {
	Line     int    `json:"line"`
	Column   string `json:"column,omitempty"`
	Value    string `json:"value"`
	Expected string `json:"expected,omitempty"`
}

// FormatError reports a malformed source file. Parsing stops at the first one.
type FormatError struct {
	*ImportError
	Where    *LineContext `json:"where"`
	Examples []string     `json:"examples,omitempty"`
}

// Error returns the message, which already names the offending line
func (e *FormatError) Error() string {
	return e.Message
}

// Unwrap exposes the categorised base error
func (e *FormatError) Unwrap() error {
	return e.ImportError
}

// GetDetailedError returns a detailed multi-line error description
func (e *FormatError) GetDetailedError() string {
	var lines []string

	lines = append(lines, fmt.Sprintf("ERROR: %s", e.Message))

	if e.Where != nil {
		if e.Where.Line > 0 {
			lines = append(lines, fmt.Sprintf("  → Line: %d", e.Where.Line))
		}
		if e.Where.Column != "" {
			lines = append(lines, fmt.Sprintf("  → Column: %s", e.Where.Column))
		}
		if e.Where.Value != "" {
			lines = append(lines, fmt.Sprintf("  → Value: '%s'", e.Where.Value))
		}
		if e.Where.Expected != "" {
			lines = append(lines, fmt.Sprintf("  → Expected: %s", e.Where.Expected))
		}
	}

	if e.Suggestion != "" {
		lines = append(lines, fmt.Sprintf("  → Suggestion: %s", e.Suggestion))
	}

	if len(e.Examples) > 0 {
		lines = append(lines, "  → Examples:")
		for _, example := range e.Examples {
			lines = append(lines, fmt.Sprintf("    • %s", example))
		}
	}

	return strings.Join(lines, "\n")
}

// NewFormatError creates a new format error located at where
func NewFormatError(code ErrorCode, where *LineContext, message string, cause error) *FormatError {
	var base *ImportError
	if cause != nil {
		base = Wrap(cause, CategoryFormat, code, message)
	} else {
		base = New(CategoryFormat, code, message)
	}

	if where != nil {
		base.WithContext("line", where.Line).
			WithContext("value", where.Value)
		if where.Column != "" {
			base.WithContext("column", where.Column)
		}
	}

	return &FormatError{
		ImportError: base,
		Where:       where,
	}
}

// WithExamples adds example values to help fix the error
func (e *FormatError) WithExamples(examples ...string) *FormatError {
	e.Examples = examples
	return e
}

// WithSuggestion adds a suggestion and returns the FormatError
func (e *FormatError) WithSuggestion(suggestion string) *FormatError {
	e.ImportError.WithSuggestion(suggestion)
	return e
}

// InvalidDateError reports a date literal that does not match pattern
func InvalidDateError(line int, value, pattern string) *FormatError {
	where := &LineContext{Line: line, Column: "date", Value: value, Expected: pattern}
	message := fmt.Sprintf("Date parsing error: '%s' in line %d does not match date format '%s'.", value, line, pattern)
	return NewFormatError(CodeInvalidDate, where, message, nil).
		WithSuggestion("check the date format option of the import")
}

// InvalidAmountError reports an amount that is not a decimal number
func InvalidAmountError(line int, column, value string) *FormatError {
	where := &LineContext{Line: line, Column: column, Value: value, Expected: "decimal number"}
	message := fmt.Sprintf("Amount parsing error: '%s' in line %d, column %s is not a number.", value, line, column)
	return NewFormatError(CodeInvalidAmount, where, message, nil).
		WithExamples("12.34", "12,34", "1250")
}

// UnknownDelimiterError reports a file whose field separator cannot be sniffed
func UnknownDelimiterError(candidates string) *FormatError {
	where := &LineContext{Line: 1, Expected: candidates}
	message := fmt.Sprintf("Could not detect the field delimiter of the first line (expected one of %s).", candidates)
	return NewFormatError(CodeUnknownDelimiter, where, message, nil)
}

// UnknownContainerError reports a spreadsheet of an unsupported type
func UnknownContainerError(detected string) *FormatError {
	where := &LineContext{Value: detected, Expected: "XLSX, XLS or ODS"}
	return NewFormatError(CodeUnknownContainer, where, "Are you sure this file is an XLSX, XLS or ODS file?", nil)
}

// EncodingError reports a file that cannot be decoded with the chosen charset
func EncodingError(encoding string, cause error) *FormatError {
	where := &LineContext{Value: encoding}
	message := fmt.Sprintf("File cannot be decoded as %s.", encoding)
	return NewFormatError(CodeEncodingError, where, message, cause).
		WithSuggestion("select the encoding the file was exported with")
}

// MalformedRecordError reports a record the tokenizer could not read
func MalformedRecordError(line int, cause error) *FormatError {
	where := &LineContext{Line: line}
	message := fmt.Sprintf("Malformed record in line %d.", line)
	return NewFormatError(CodeMalformedRecord, where, message, cause)
}
