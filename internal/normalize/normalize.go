// Package normalize cleans parsed pivot lines and applies run-level overrides.
// Every function is pure: the input slice is never modified.
package normalize

import (
	"strings"
	"time"

	"golang-move-import-service/internal/models"
)

// Overrides replace a field on every line when set
type Overrides struct {
	Date    time.Time `json:"date,omitempty"`
	Name    string    `json:"name,omitempty"`
	Ref     string    `json:"ref,omitempty"`
	Journal string    `json:"journal,omitempty"`
}

// IsEmpty reports whether no override is set
func (o Overrides) IsEmpty() bool {
	return o.Date.IsZero() && o.Name == "" && o.Ref == "" && o.Journal == ""
}

// Clean trims every text field. Raw amount text is trimmed too and blank raw
// text becomes a numeric zero.
func Clean(lines []models.PivotLine) []models.PivotLine {
	out := make([]models.PivotLine, len(lines))
	for i, l := range lines {
		l.DateText = strings.TrimSpace(l.DateText)
		l.Journal = strings.TrimSpace(l.Journal)
		l.Account = strings.TrimSpace(l.Account)
		l.Partner = strings.TrimSpace(l.Partner)
		l.Analytic = strings.TrimSpace(l.Analytic)
		l.Name = strings.TrimSpace(l.Name)
		l.Ref = strings.TrimSpace(l.Ref)
		l.ReconcileRef = strings.TrimSpace(l.ReconcileRef)
		l.MoveName = strings.TrimSpace(l.MoveName)
		l.Debit = cleanAmount(l.Debit)
		l.Credit = cleanAmount(l.Credit)
		out[i] = l
	}
	return out
}

func cleanAmount(a models.Amount) models.Amount {
	if a.IsNumeric() {
		return a
	}
	raw := strings.TrimSpace(a.Raw)
	if raw == "" {
		return models.Amount{Value: a.Value}
	}
	return models.Amount{Value: a.Value, Raw: raw}
}

// ApplyOverrides sets the forced fields on every line, whatever the line holds
func ApplyOverrides(lines []models.PivotLine, o Overrides) []models.PivotLine {
	out := make([]models.PivotLine, len(lines))
	copy(out, lines)
	if o.IsEmpty() {
		return out
	}

	for i := range out {
		if !o.Date.IsZero() {
			out[i].Date = o.Date
			out[i].DateText = ""
		}
		if o.Name != "" {
			out[i].Name = o.Name
		}
		if o.Ref != "" {
			out[i].Ref = o.Ref
		}
		if o.Journal != "" {
			out[i].Journal = o.Journal
		}
	}
	return out
}

// Normalize cleans lines then applies the overrides
func Normalize(lines []models.PivotLine, o Overrides) []models.PivotLine {
	return ApplyOverrides(Clean(lines), o)
}
