package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"golang-move-import-service/internal/importer"
	"golang-move-import-service/internal/models"
	"golang-move-import-service/internal/parsers"
	"golang-move-import-service/internal/reconciler"
	"golang-move-import-service/internal/resolver"
	"golang-move-import-service/pkg/errors"
	"golang-move-import-service/pkg/logger"

	"github.com/shopspring/decimal"
)

func TestNewReportGenerator(t *testing.T) {
	tests := []struct {
		name        string
		config      *ReportConfig
		expectError bool
	}{
		{
			name:        "default config",
			config:      nil,
			expectError: false,
		},
		{
			name:        "valid config",
			config:      DefaultReportConfig(),
			expectError: false,
		},
		{
			name:        "invalid format",
			config:      &ReportConfig{Format: "invalid"},
			expectError: true,
		},
		{
			name:        "negative entry limit",
			config:      &ReportConfig{Format: FormatConsole, MaxConsoleEntries: -1},
			expectError: true,
		},
		{
			name:        "csv without delimiter",
			config:      &ReportConfig{Format: FormatCSV},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator, err := NewReportGenerator(tt.config)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if generator == nil {
					t.Errorf("expected generator but got nil")
				}
			}
		})
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    OutputFormat
		wantErr bool
	}{
		{"console", FormatConsole, false},
		{" JSON ", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseOutputFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func createSampleImportResult() *importer.Result {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return &importer.Result{
		BatchID:  "6f1c2a8e-0d7e-4d6b-9a53-3c2f1f0a9b11",
		Company:  1,
		Format:   parsers.FormatGenericCSV,
		Currency: "EUR",
		Posted:   true,
		Moves: []models.CreatedMove{
			{ID: 1, Journal: "VT", Date: day, Ref: "INV1", LineCount: 2, Total: decimal.NewFromInt(120)},
			{ID: 4, Name: "BQ/2024/0001", Journal: "BQ", Date: day.AddDate(0, 0, 1), Ref: "PAY1", LineCount: 2, Total: decimal.NewFromInt(120)},
		},
		Reconciliation: &reconciler.Result{
			Groups: []reconciler.GroupOutcome{
				{Ref: "A1", LineIDs: []models.ID{2, 6}, Linked: true},
				{Ref: "B7", LineIDs: []models.ID{3}, Reason: reconciler.ReasonSingleLine,
					Detail: "Skip reconcile of ref 'B7' because this ref is only on 1 move line"},
			},
			Linked:  1,
			Skipped: 1,
		},
		Stats: importer.Stats{
			ParsedLines:   4,
			ImportedLines: 4,
			Moves:         2,
			TotalDebit:    decimal.NewFromInt(240),
			Resolver:      resolver.Stats{Lines: 4, ExactAccounts: 3, PrefixMatches: 1},
		},
		Navigation: importer.NavigationList,
		Stages:     []logger.StageDuration{{Stage: "parse", Duration: time.Millisecond}},
	}
}

func TestConsoleOutputSections(t *testing.T) {
	config := DefaultReportConfig()
	config.IncludeStages = true
	generator, _ := NewReportGenerator(config)

	var buf bytes.Buffer
	if err := generator.GenerateReport(createSampleImportResult(), &buf); err != nil {
		t.Fatalf("GenerateReport failed: %v", err)
	}
	output := buf.String()

	expected := []string{
		"MOVE IMPORT REPORT",
		"Batch: 6f1c2a8e-0d7e-4d6b-9a53-3c2f1f0a9b11",
		"=== SUMMARY ===",
		"Imported Lines:  4 (100.0%)",
		"Total Debit:     240.00",
		"Posted:          yes",
		"=== ACCOUNT MATCHING ===",
		"Prefix Matches:  1 (25.0%)",
		"=== JOURNAL ENTRIES ===",
		"1. VT, Date: 2024-03-01, Lines: 2, Total: 120.00, Ref: INV1 [ID 1]",
		"2. BQ/2024/0001, Date: 2024-03-02",
		"=== RECONCILIATION ===",
		"+ A1: 2 lines reconciled",
		"- B7: Skip reconcile of ref 'B7' because this ref is only on 1 move line",
		"=== STAGES ===",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("console output missing %q\n%s", want, output)
		}
	}
}

func TestConsoleDryRun(t *testing.T) {
	result := createSampleImportResult()
	result.DryRun = true
	result.BatchID = ""
	result.Posted = false
	result.Moves = nil
	result.Reconciliation = nil
	result.Planned = []models.Move{{
		Journal: "VT",
		Date:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Lines: []models.ResolvedLine{
			{PivotLine: models.PivotLine{Line: 1, Debit: models.AmountFromInt(50)}},
			{PivotLine: models.PivotLine{Line: 2, Credit: models.AmountFromInt(50)}},
		},
	}}

	generator, _ := NewReportGenerator(nil)
	var buf bytes.Buffer
	if err := generator.GenerateReport(result, &buf); err != nil {
		t.Fatalf("GenerateReport failed: %v", err)
	}
	output := buf.String()

	for _, want := range []string{"Dry run: nothing was written", "=== PLANNED ENTRIES ===", "Lines: 2, Total: 50.00"} {
		if !strings.Contains(output, want) {
			t.Errorf("console output missing %q\n%s", want, output)
		}
	}
	if strings.Contains(output, "=== RECONCILIATION ===") {
		t.Error("dry run output should not have a reconciliation section")
	}
}

func TestConsoleEntryLimit(t *testing.T) {
	result := createSampleImportResult()
	config := DefaultReportConfig()
	config.MaxConsoleEntries = 1
	generator, _ := NewReportGenerator(config)

	var buf bytes.Buffer
	generator.GenerateReport(result, &buf)
	if !strings.Contains(buf.String(), "... and 1 more") {
		t.Errorf("expected truncated entry list\n%s", buf.String())
	}
}

func TestJSONReport(t *testing.T) {
	generator, _ := NewReportGenerator(&ReportConfig{Format: FormatJSON, IncludeEntries: true})

	var buf bytes.Buffer
	if err := generator.GenerateReport(createSampleImportResult(), &buf); err != nil {
		t.Fatalf("GenerateReport failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"batch_id", "stats", "moves", "reconciliation", "navigation"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("JSON output missing %q", key)
		}
	}
	if _, ok := decoded["stages"]; ok {
		t.Error("stages should be left out unless requested")
	}
	if decoded["navigation"] != "list" {
		t.Errorf("expected list navigation, got %v", decoded["navigation"])
	}
}

func TestCSVFormatting(t *testing.T) {
	tests := []struct {
		name              string
		includeReconciled bool
		wantRows          int
	}{
		{"with linked groups", true, 5},
		{"skipped groups only", false, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator, _ := NewReportGenerator(&ReportConfig{
				Format:            FormatCSV,
				CSVDelimiter:      ';',
				CSVHeaders:        true,
				IncludeReconciled: tt.includeReconciled,
			})

			var buf bytes.Buffer
			if err := generator.GenerateReport(createSampleImportResult(), &buf); err != nil {
				t.Fatalf("GenerateReport failed: %v", err)
			}

			reader := csv.NewReader(&buf)
			reader.Comma = ';'
			records, err := reader.ReadAll()
			if err != nil {
				t.Fatalf("invalid CSV: %v", err)
			}
			if len(records) != tt.wantRows {
				t.Fatalf("expected %d rows, got %d", tt.wantRows, len(records))
			}
			if records[0][0] != "Type" || len(records[0]) != 11 {
				t.Errorf("unexpected header: %v", records[0])
			}
			entry := records[1]
			if entry[0] != "Entry" || entry[1] != "1" || entry[4] != "2024-03-01" || entry[7] != "120.00" || entry[9] != "Posted" {
				t.Errorf("unexpected entry row: %v", entry)
			}
			last := records[len(records)-1]
			if last[0] != "Reconciliation" || last[8] != "B7" || last[9] != "Skipped" {
				t.Errorf("unexpected reconciliation row: %v", last)
			}
		})
	}
}

func TestCalculatePercentage(t *testing.T) {
	generator, _ := NewReportGenerator(nil)

	tests := []struct {
		part, total int
		want        float64
	}{
		{1, 4, 25.0},
		{0, 0, 0.0},
		{3, 3, 100.0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d of %d", tt.part, tt.total), func(t *testing.T) {
			if got := generator.calculatePercentage(tt.part, tt.total); got != tt.want {
				t.Errorf("expected %.1f, got %.1f", tt.want, got)
			}
		})
	}
}

func TestUpdateConfiguration(t *testing.T) {
	generator, _ := NewReportGenerator(nil)

	if err := generator.UpdateConfiguration(&ReportConfig{Format: "xml"}); err == nil {
		t.Error("expected error for invalid configuration")
	}
	if generator.GetConfiguration().Format != FormatConsole {
		t.Error("configuration should be unchanged after a failed update")
	}

	if err := generator.UpdateConfiguration(&ReportConfig{Format: FormatJSON}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if generator.GetConfiguration().Format != FormatJSON {
		t.Error("configuration was not updated")
	}
}

func TestGenerateReport_NilResult(t *testing.T) {
	generator, _ := NewReportGenerator(nil)
	if err := generator.GenerateReport(nil, &bytes.Buffer{}); err == nil {
		t.Error("expected error for nil result")
	}
}

// flakyWriter fails the first n writes
type flakyWriter struct {
	failures int
	buf      bytes.Buffer
}

func (w *flakyWriter) Write(p []byte) (int, error) {
	if w.failures > 0 {
		w.failures--
		return 0, fmt.Errorf("broken pipe")
	}
	return w.buf.Write(p)
}

func TestSafeReportGenerator_Fallback(t *testing.T) {
	safe, err := NewSafeReportGenerator(&ReportConfig{Format: FormatJSON, IncludeEntries: true}, nil)
	if err != nil {
		t.Fatalf("NewSafeReportGenerator failed: %v", err)
	}

	w := &flakyWriter{failures: 1}
	if err := safe.GenerateReportSafely(createSampleImportResult(), w); err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	output := w.buf.String()
	if !strings.Contains(output, "NOTE: Report generated in fallback format") || !strings.Contains(output, "=== SUMMARY ===") {
		t.Errorf("unexpected fallback output:\n%s", output)
	}
}

func TestSafeReportGenerator_Errors(t *testing.T) {
	if _, err := NewSafeReportGenerator(&ReportConfig{Format: "xml"}, nil); err == nil {
		t.Error("expected configuration error")
	} else if importErr, ok := errors.AsImportError(err); !ok || importErr.Category != errors.CategoryConfiguration {
		t.Errorf("expected configuration category, got %v", err)
	}

	safe, _ := NewSafeReportGenerator(nil, nil)
	if err := safe.GenerateReportSafely(nil, &bytes.Buffer{}); err == nil {
		t.Error("expected error for nil result")
	}
	if err := safe.GenerateReportSafely(createSampleImportResult(), nil); err == nil {
		t.Error("expected error for nil writer")
	}
}

func BenchmarkGenerateConsoleReport(b *testing.B) {
	generator, _ := NewReportGenerator(nil)
	result := createSampleImportResult()
	var buf bytes.Buffer

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		generator.GenerateReport(result, &buf)
	}
}

func BenchmarkGenerateCSVReport(b *testing.B) {
	generator, _ := NewReportGenerator(&ReportConfig{Format: FormatCSV, CSVDelimiter: ',', CSVHeaders: true})
	result := createSampleImportResult()
	var buf bytes.Buffer

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		generator.GenerateReport(result, &buf)
	}
}
