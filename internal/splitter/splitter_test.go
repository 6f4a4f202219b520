package splitter

import (
	"testing"
	"time"

	"golang-move-import-service/internal/models"
	"golang-move-import-service/pkg/errors"

	"github.com/shopspring/decimal"
)

var (
	jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	jan2 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
)

// rl builds a resolved line; amounts are given as strings to keep cents exact
func rl(n int, journal models.ID, day time.Time, debit, credit string) models.ResolvedLine {
	return models.ResolvedLine{
		PivotLine: models.PivotLine{
			Line:    n,
			Date:    day,
			Journal: "J",
			Account: "611000",
			Debit:   models.NewAmount(decimal.RequireFromString(debit)),
			Credit:  models.NewAmount(decimal.RequireFromString(credit)),
		},
		JournalID: journal,
		AccountID: 1,
	}
}

func named(l models.ResolvedLine, name string) models.ResolvedLine {
	l.MoveName = name
	return l
}

// Helper function to check every emitted entry holds the entry invariants
func assertEntries(t *testing.T, moves []models.Move, wantSizes ...int) {
	t.Helper()
	if len(moves) != len(wantSizes) {
		t.Fatalf("Expected %d entries, got %d", len(wantSizes), len(moves))
	}
	for i, m := range moves {
		if len(m.Lines) != wantSizes[i] {
			t.Errorf("Entry %d: expected %d lines, got %d", i, wantSizes[i], len(m.Lines))
		}
		if len(m.Lines) < 2 {
			t.Errorf("Entry %d has less than 2 lines", i)
		}
		if !m.Balance().IsZero() {
			t.Errorf("Entry %d is not balanced: %s", i, m.Balance())
		}
	}
}

func TestSplit_Balanced(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		lines     []models.ResolvedLine
		wantSizes []int
	}{
		{
			name: "two lines make one entry",
			opts: Options{Policy: PolicyBalanced},
			lines: []models.ResolvedLine{
				rl(2, 10, jan1, "100", "0"),
				rl(3, 10, jan1, "0", "100"),
			},
			wantSizes: []int{2},
		},
		{
			name: "new entry once the previous one balances",
			opts: Options{Policy: PolicyBalanced},
			lines: []models.ResolvedLine{
				rl(2, 10, jan1, "100", "0"),
				rl(3, 10, jan1, "0", "60"),
				rl(4, 10, jan1, "0", "40"),
				rl(5, 10, jan1, "25.10", "0"),
				rl(6, 10, jan1, "0", "25.10"),
			},
			wantSizes: []int{3, 2},
		},
		{
			name: "date change is ignored when dates span lines",
			opts: Options{Policy: PolicyBalanced, DateSpansLines: true},
			lines: []models.ResolvedLine{
				rl(2, 10, jan1, "100", "0"),
				rl(3, 10, jan2, "0", "100"),
			},
			wantSizes: []int{2},
		},
		{
			name: "zero lines skipped",
			opts: Options{Policy: PolicyBalanced, SkipZeroLines: true},
			lines: []models.ResolvedLine{
				rl(2, 10, jan1, "100", "0"),
				rl(3, 10, jan1, "0", "0"),
				rl(4, 10, jan1, "0.001", "0.004"),
				rl(5, 10, jan1, "0", "100"),
			},
			wantSizes: []int{2},
		},
		{
			name: "sub-cent residual balances in the currency",
			opts: Options{Policy: PolicyBalanced},
			lines: []models.ResolvedLine{
				rl(2, 10, jan1, "100.001", "0"),
				rl(3, 10, jan1, "0", "100"),
				rl(4, 10, jan1, "5", "0"),
				rl(5, 10, jan1, "0", "5"),
			},
			wantSizes: []int{2, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			moves, err := Split(tt.lines, tt.opts)
			if err != nil {
				t.Fatalf("Split failed: %v", err)
			}
			if len(moves) != len(tt.wantSizes) {
				t.Fatalf("Expected %d entries, got %d", len(tt.wantSizes), len(moves))
			}
			for i, m := range moves {
				if len(m.Lines) != tt.wantSizes[i] {
					t.Errorf("Entry %d: expected %d lines, got %d", i, tt.wantSizes[i], len(m.Lines))
				}
			}
		})
	}
}

func TestSplit_EntryFields(t *testing.T) {
	first := named(rl(2, 10, jan1, "100", "0"), "VT/2024/001")
	first.Ref = "INV1"
	second := named(rl(3, 10, jan1, "0", "100"), "VT/2024/001")
	second.Ref = "other"

	moves, err := Split([]models.ResolvedLine{first, second}, Options{Policy: PolicyBalanced})
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	assertEntries(t, moves, 2)
	m := moves[0]
	if m.JournalID != 10 || !m.Date.Equal(jan1) || m.Ref != "INV1" || m.Name != "VT/2024/001" {
		t.Errorf("Expected entry fields from the first line, got %+v", m)
	}

	moves, err = Split([]models.ResolvedLine{first, second}, Options{Policy: PolicyBalanced, KeepExistingNaming: true})
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if moves[0].Name != "" {
		t.Errorf("Expected no name when keeping existing naming, got %q", moves[0].Name)
	}
}

func TestSplit_ByEntryNumber(t *testing.T) {
	lines := []models.ResolvedLine{
		named(rl(2, 10, jan1, "100", "0"), "E1"),
		named(rl(3, 10, jan1, "0", "100"), "E1"),
		named(rl(4, 10, jan1, "50", "0"), "E2"),
		named(rl(5, 11, jan2, "0", "20"), "E2"),
		named(rl(6, 11, jan2, "0", "30"), "E2"),
	}

	moves, err := Split(lines, Options{Policy: PolicyByEntryNumber})
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	assertEntries(t, moves, 2, 3)
	if moves[1].Name != "E2" || moves[1].FirstLine() != 4 {
		t.Errorf("Unexpected second entry: %s", moves[1].String())
	}
}

func TestSplit_Errors(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		lines    []models.ResolvedLine
		wantCode errors.ErrorCode
		wantMsg  string
	}{
		{
			name:     "single line file",
			opts:     Options{Policy: PolicyBalanced},
			lines:    []models.ResolvedLine{rl(2, 10, jan1, "100", "0")},
			wantCode: errors.CodeSingleLineEntry,
			wantMsg:  "Journal entry on line 2 only has 1 line.",
		},
		{
			name: "single line entry before a split",
			opts: Options{Policy: PolicyByEntryNumber},
			lines: []models.ResolvedLine{
				named(rl(2, 10, jan1, "0", "0"), "E1"),
				named(rl(3, 10, jan1, "100", "0"), "E2"),
				named(rl(4, 10, jan1, "0", "100"), "E2"),
			},
			wantCode: errors.CodeSingleLineEntry,
			wantMsg:  "Journal entry on line 3 only has 1 line.",
		},
		{
			name: "residual balance on the last line",
			opts: Options{Policy: PolicyBalanced},
			lines: []models.ResolvedLine{
				rl(2, 10, jan1, "100", "0"),
				rl(3, 10, jan1, "0", "90"),
			},
			wantCode: errors.CodeUnbalancedEntry,
			wantMsg:  "The journal entry that ends on the last line is not balanced (balance is -10.00).",
		},
		{
			name: "journal change leaves an unbalanced entry",
			opts: Options{Policy: PolicyBalanced},
			lines: []models.ResolvedLine{
				rl(2, 10, jan1, "100", "0"),
				rl(3, 10, jan1, "0", "90"),
				rl(4, 11, jan1, "10", "0"),
				rl(5, 11, jan1, "0", "10"),
			},
			wantCode: errors.CodeUnbalancedEntry,
			wantMsg:  "The journal entry that ends on line 3 is not balanced (balance is -10.00).",
		},
		{
			name: "missing entry number",
			opts: Options{Policy: PolicyByEntryNumber},
			lines: []models.ResolvedLine{
				named(rl(2, 10, jan1, "100", "0"), "E1"),
				rl(3, 10, jan1, "0", "100"),
			},
			wantCode: errors.CodeMissingEntryRef,
			wantMsg:  "Line 3: missing journal entry number.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Split(tt.lines, tt.opts)
			if err == nil {
				t.Fatal("Expected error")
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("Expected %q, got %q", tt.wantMsg, err.Error())
			}
			importErr, ok := errors.AsImportError(err)
			if !ok {
				t.Fatalf("Expected ImportError in chain, got %T", err)
			}
			if importErr.Code != tt.wantCode || importErr.Category != errors.CategorySplit {
				t.Errorf("Expected %s/%s, got %s/%s", errors.CategorySplit, tt.wantCode, importErr.Category, importErr.Code)
			}
		})
	}
}

func TestSplit_ErrorTypes(t *testing.T) {
	_, err := Split([]models.ResolvedLine{rl(2, 10, jan1, "100", "0")}, Options{Policy: PolicyBalanced})
	if _, ok := err.(*SplitError); !ok {
		t.Errorf("Expected *SplitError, got %T", err)
	}

	_, err = Split([]models.ResolvedLine{
		rl(2, 10, jan1, "100", "0"),
		rl(3, 10, jan1, "0", "90"),
	}, Options{Policy: PolicyBalanced})
	ue, ok := err.(*UnbalancedEntryError)
	if !ok {
		t.Fatalf("Expected *UnbalancedEntryError, got %T", err)
	}
	if !ue.Balance.Equal(decimal.NewFromInt(-10)) {
		t.Errorf("Expected residual -10, got %s", ue.Balance)
	}
}

func TestNew_InvalidPolicy(t *testing.T) {
	if _, err := New(Options{Policy: "by_date"}, nil); err == nil {
		t.Error("Expected error for unknown policy")
	}
}

func TestSplit_Empty(t *testing.T) {
	moves, err := Split(nil, Options{Policy: PolicyBalanced})
	if err != nil || len(moves) != 0 {
		t.Errorf("Expected no entries and no error, got %v, %v", moves, err)
	}
}
