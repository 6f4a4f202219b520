package resolver

import (
	"fmt"
	"strings"

	"golang-move-import-service/pkg/errors"
)

// Category groups resolution issues in the rendered message
type Category string

const (
	CategoryJournal  Category = "journal"
	CategoryAccount  Category = "account"
	CategoryPartner  Category = "partner"
	CategoryAnalytic Category = "analytic"
	CategoryOther    Category = "other"
)

// codeCategories are rendered in this order, before misc errors
var codeCategories = []struct {
	category Category
	label    string
}{
	{CategoryJournal, "journal codes"},
	{CategoryAccount, "account codes"},
	{CategoryPartner, "partner reference"},
	{CategoryAnalytic, "analytic codes"},
}

// Issue is one resolution failure. Code is set for unknown codes, Message
// for other problems.
type Issue struct {
	Category Category `json:"category"`
	Code     string   `json:"code,omitempty"`
	Line     int      `json:"line"`
	Message  string   `json:"message,omitempty"`
}

// ValidationError aggregates every issue found while resolving a file
type ValidationError struct {
	*errors.ImportError
	Issues []Issue `json:"issues"`
}

func newValidationError(issues []Issue) *ValidationError {
	base := errors.New(errors.CategoryValidation, errors.CodeUnresolvedCodes, Render(issues)).
		WithSuggestion("create the missing codes or fix the file, then import it again").
		WithContext("issues", len(issues))
	return &ValidationError{ImportError: base, Issues: issues}
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.ImportError
}

// Count returns the number of issues in category
func (e *ValidationError) Count(category Category) int {
	n := 0
	for _, issue := range e.Issues {
		if issue.Category == category {
			n++
		}
	}
	return n
}

// Render formats issues grouped by category. Codes keep the order they were
// first met in, each followed by every line it appears on.
func Render(issues []Issue) string {
	var b strings.Builder

	for _, c := range codeCategories {
		var order []string
		lines := make(map[string][]string)
		for _, issue := range issues {
			if issue.Category != c.category {
				continue
			}
			if _, seen := lines[issue.Code]; !seen {
				order = append(order, issue.Code)
			}
			lines[issue.Code] = append(lines[issue.Code], fmt.Sprint(issue.Line))
		}
		if len(order) == 0 {
			continue
		}

		entries := make([]string, len(order))
		for i, code := range order {
			entries[i] = fmt.Sprintf("- %s : line(s) %s", code, strings.Join(lines[code], ", "))
		}
		fmt.Fprintf(&b, "List of %s that don't exist:\n%s\n\n", c.label, strings.Join(entries, "\n"))
	}

	var misc []string
	for _, issue := range issues {
		if issue.Category == CategoryOther {
			misc = append(misc, "- "+issue.Message)
		}
	}
	if len(misc) > 0 {
		fmt.Fprintf(&b, "List of misc errors:\n%s", strings.Join(misc, "\n"))
	}

	return b.String()
}
