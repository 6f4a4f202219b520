package resolver

import (
	"strings"
	"testing"
	"time"

	"golang-move-import-service/internal/directory"
	"golang-move-import-service/internal/models"
	"golang-move-import-service/pkg/errors"

	"github.com/shopspring/decimal"
)

var testDay = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func testSnapshot() *directory.Snapshot {
	return directory.NewSnapshot(1, map[directory.Domain]map[string]models.ID{
		directory.DomainAccount: {
			"6110":     1,
			"411000":   2,
			"70700010": 3,
			"70700020": 4,
			"512":      5,
		},
		directory.DomainJournal:  {"VT": 10, "BQ": 11},
		directory.DomainPartner:  {"C001": 20},
		directory.DomainAnalytic: {"AX": 30, "AY": 31, "A:B": 32},
	})
}

func line(n int, account, journal string) models.PivotLine {
	return models.PivotLine{
		Line:    n,
		Date:    testDay,
		Journal: journal,
		Account: account,
		Debit:   models.AmountFromInt(100),
	}
}

func TestResolve_Accounts(t *testing.T) {
	tests := []struct {
		name    string
		account string
		wantID  models.ID
	}{
		{"exact", "411000", 2},
		{"exact short code", "6110", 1},
		{"trailing zeros truncated", "611000", 1},
		{"many trailing zeros", "61100000", 1},
		{"prefix match takes shortest then lowest code", "707", 3},
		{"exact match beats fallbacks", "512", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(testSnapshot(), nil)
			out, err := r.Resolve([]models.PivotLine{line(2, tt.account, "VT")})
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if out[0].AccountID != tt.wantID {
				t.Errorf("Expected account id %d, got %d", tt.wantID, out[0].AccountID)
			}
			if out[0].JournalID != 10 {
				t.Errorf("Expected journal id 10, got %d", out[0].JournalID)
			}
		})
	}
}

func TestResolve_AccountStats(t *testing.T) {
	r := New(testSnapshot(), nil)
	_, err := r.Resolve([]models.PivotLine{
		line(2, "411000", "VT"),
		line(3, "611000", "VT"),
		line(4, "707", "VT"),
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	stats := r.Stats()
	if stats.ExactAccounts != 1 || stats.TruncatedMatches != 1 || stats.PrefixMatches != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestResolve_Analytic(t *testing.T) {
	tests := []struct {
		name     string
		analytic string
		want     map[models.ID]string
	}{
		{"single code is 100%", "AX", map[models.ID]string{30: "100"}},
		{"split with dot and comma", "AX:60.5|AY:39,5", map[models.ID]string{30: "60.5", 31: "39.5"}},
		{"blank segments ignored", "AX:50| |AY:50|", map[models.ID]string{30: "50", 31: "50"}},
		{"code containing a colon", "A:B:25", map[models.ID]string{32: "25"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := line(2, "411000", "VT")
			l.Analytic = tt.analytic
			out, err := New(testSnapshot(), nil).Resolve([]models.PivotLine{l})
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			got := out[0].AnalyticDistribution
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d entries, got %v", len(tt.want), got)
			}
			for id, pct := range tt.want {
				if !got[id].Equal(decimal.RequireFromString(pct)) {
					t.Errorf("Expected %s%% for %d, got %s", pct, id, got[id])
				}
			}
		})
	}
}

func TestResolve_TextDate(t *testing.T) {
	l := line(2, "411000", "VT")
	l.Date = time.Time{}
	l.DateText = "2024-03-01"

	out, err := New(testSnapshot(), nil).Resolve([]models.PivotLine{l})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !out[0].Date.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected parsed text date, got %s", out[0].Date)
	}
}

func TestResolve_ValidationError(t *testing.T) {
	missingDate := line(4, "411000", "VT")
	missingDate.Date = time.Time{}

	badDate := line(5, "411000", "VT")
	badDate.Date = time.Time{}
	badDate.DateText = "01/03/2024"

	badAmounts := line(6, "411000", "VT")
	badAmounts.Debit = models.Amount{Raw: "12O"}
	badAmounts.Credit = models.Amount{Raw: "x"}

	badAnalytic := line(7, "411000", "VT")
	badAnalytic.Analytic = "AX:abc|AY:150|ZZ"

	badPartner := line(3, "411000", "XX")
	badPartner.Partner = "C999"

	lines := []models.PivotLine{
		line(2, "999", "XX"),
		badPartner,
		missingDate,
		badDate,
		badAmounts,
		badAnalytic,
	}

	_, err := New(testSnapshot(), nil).Resolve(lines)
	if err == nil {
		t.Fatal("Expected validation error")
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("Expected *ValidationError, got %T", err)
	}

	want := "List of journal codes that don't exist:\n" +
		"- XX : line(s) 2, 3\n\n" +
		"List of account codes that don't exist:\n" +
		"- 999 : line(s) 2\n\n" +
		"List of partner reference that don't exist:\n" +
		"- C999 : line(s) 3\n\n" +
		"List of analytic codes that don't exist:\n" +
		"- ZZ : line(s) 7\n\n" +
		"List of misc errors:\n" +
		"- Line 4: missing date.\n" +
		"- Line 5: bad date format 01/03/2024\n" +
		"- Line 6: bad value for credit (x).\n" +
		"- Line 6: bad value for debit (12O).\n" +
		"- Line 7: wrong analytic percentage: 'abc' is not a number.\n" +
		"- Line 7: wrong analytic percentage: '150' is not between 0 and 100."
	if ve.Error() != want {
		t.Errorf("Unexpected message:\n%s\nwant:\n%s", ve.Error(), want)
	}

	if ve.Count(CategoryJournal) != 2 || ve.Count(CategoryOther) != 6 {
		t.Errorf("Unexpected counts: journal=%d other=%d", ve.Count(CategoryJournal), ve.Count(CategoryOther))
	}

	importErr, ok := errors.AsImportError(err)
	if !ok || importErr.Category != errors.CategoryValidation {
		t.Errorf("Expected validation category, got %v", importErr)
	}
}

func TestRender_OnlyMisc(t *testing.T) {
	got := Render([]Issue{{Category: CategoryOther, Line: 2, Message: "Line 2: missing date."}})
	if got != "List of misc errors:\n- Line 2: missing date." {
		t.Errorf("Unexpected render: %q", got)
	}
	if strings.Contains(got, "don't exist") {
		t.Error("Expected no code section")
	}
}
