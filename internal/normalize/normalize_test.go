package normalize

import (
	"reflect"
	"testing"
	"time"

	"golang-move-import-service/internal/models"
)

func sampleLines() []models.PivotLine {
	return []models.PivotLine{
		{
			Line:     2,
			Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Journal:  " VT ",
			Account:  "411000\t",
			Partner:  "  ",
			Analytic: " AX:60 | AY:40 ",
			Name:     " Invoice 1 ",
			Debit:    models.AmountFromInt(100),
			Ref:      "INV1 ",
		},
		{
			Line:     3,
			DateText: " 2024-03-01 ",
			Journal:  "VT",
			Account:  "707000",
			Credit:   models.Amount{Raw: "   "},
			Debit:    models.Amount{Raw: " 12O "},
		},
	}
}

func TestClean(t *testing.T) {
	in := sampleLines()
	out := Clean(in)

	if out[0].Journal != "VT" || out[0].Account != "411000" || out[0].Name != "Invoice 1" {
		t.Errorf("Expected fields to be trimmed, got %+v", out[0])
	}
	if out[0].Partner != "" {
		t.Errorf("Expected blank partner to be absent, got %q", out[0].Partner)
	}
	if out[0].Analytic != "AX:60 | AY:40" {
		t.Errorf("Expected outer spaces only to be trimmed, got %q", out[0].Analytic)
	}
	if out[1].DateText != "2024-03-01" {
		t.Errorf("Expected trimmed date text, got %q", out[1].DateText)
	}
	if !out[1].Credit.IsNumeric() || !out[1].Credit.Value.IsZero() {
		t.Errorf("Expected blank raw credit to become zero, got %+v", out[1].Credit)
	}
	if out[1].Debit.Raw != "12O" {
		t.Errorf("Expected trimmed raw debit, got %q", out[1].Debit.Raw)
	}

	if in[0].Journal != " VT " {
		t.Error("Clean must not modify its input")
	}
}

func TestApplyOverrides(t *testing.T) {
	forced := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		o     Overrides
		check func(t *testing.T, l models.PivotLine)
	}{
		{
			name: "no overrides",
			o:    Overrides{},
			check: func(t *testing.T, l models.PivotLine) {
				if l.Journal == "PAY" {
					t.Error("Expected journal to be kept")
				}
			},
		},
		{
			name: "forced date replaces typed and text dates",
			o:    Overrides{Date: forced},
			check: func(t *testing.T, l models.PivotLine) {
				if !l.Date.Equal(forced) || l.DateText != "" {
					t.Errorf("Expected forced date, got %s / %q", l.Date, l.DateText)
				}
			},
		},
		{
			name: "forced journal name and ref",
			o:    Overrides{Journal: "PAY", Name: "Payroll March", Ref: "2024-03"},
			check: func(t *testing.T, l models.PivotLine) {
				if l.Journal != "PAY" || l.Name != "Payroll March" || l.Ref != "2024-03" {
					t.Errorf("Expected overrides on every line, got %+v", l)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ApplyOverrides(sampleLines(), tt.o)
			if len(out) != 2 {
				t.Fatalf("Expected 2 lines, got %d", len(out))
			}
			for _, l := range out {
				tt.check(t, l)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	o := Overrides{Journal: "PAY", Date: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)}
	once := Normalize(sampleLines(), o)
	twice := Normalize(once, o)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Expected Normalize to be idempotent:\n%+v\n%+v", once, twice)
	}
}

func TestNormalize_Empty(t *testing.T) {
	out := Normalize(nil, Overrides{Name: "x"})
	if len(out) != 0 {
		t.Errorf("Expected empty result, got %d lines", len(out))
	}
}
