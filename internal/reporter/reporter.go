// Package reporter renders the outcome of an import run.
//
// Supported output formats:
//   - Console: human-readable sections for terminal display
//   - JSON: structured data for programmatic consumption
//   - CSV: one row per journal entry and per reconciliation group
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(reporter.DefaultReportConfig())
//	err = generator.GenerateReport(result, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"golang-move-import-service/internal/importer"
	"golang-move-import-service/internal/models"

	"github.com/shopspring/decimal"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Detail level options
	IncludeEntries    bool `json:"include_entries"`
	IncludeReconciled bool `json:"include_reconciled"`
	IncludeStages     bool `json:"include_stages"`
	MaxConsoleEntries int  `json:"max_console_entries"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:            FormatConsole,
		IncludeEntries:    true,
		IncludeReconciled: true,
		IncludeStages:     false,
		MaxConsoleEntries: 10,
		CSVDelimiter:      ',',
		CSVHeaders:        true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.MaxConsoleEntries < 0 {
		return fmt.Errorf("max console entries cannot be negative, got %d", c.MaxConsoleEntries)
	}
	if c.Format == FormatCSV && (c.CSVDelimiter == 0 || c.CSVDelimiter == '"' || c.CSVDelimiter == '\n') {
		return fmt.Errorf("invalid CSV delimiter: %q", c.CSVDelimiter)
	}
	return nil
}

// ReportGenerator generates import reports in various formats
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{
		config: config,
	}, nil
}

// GenerateReport writes a report of result to writer
func (rg *ReportGenerator) GenerateReport(result *importer.Result, writer io.Writer) error {
	if result == nil {
		return fmt.Errorf("import result cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(result, writer)
	case FormatJSON:
		return rg.generateJSONReport(result, writer)
	case FormatCSV:
		return rg.generateCSVReport(result, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// entryRow is a created or planned entry as shown in reports
type entryRow struct {
	ID      models.ID
	Name    string
	Journal string
	Date    time.Time
	Ref     string
	Lines   int
	Total   decimal.Decimal
}

func entryRows(result *importer.Result) []entryRow {
	if result.DryRun {
		rows := make([]entryRow, len(result.Planned))
		for i := range result.Planned {
			m := &result.Planned[i]
			rows[i] = entryRow{Name: m.Name, Journal: m.Journal, Date: m.Date, Ref: m.Ref, Lines: len(m.Lines), Total: m.TotalDebit()}
		}
		return rows
	}
	rows := make([]entryRow, len(result.Moves))
	for i, m := range result.Moves {
		rows[i] = entryRow{ID: m.ID, Name: m.Name, Journal: m.Journal, Date: m.Date, Ref: m.Ref, Lines: m.LineCount, Total: m.Total}
	}
	return rows
}

// generateConsoleReport generates a human-readable console report
func (rg *ReportGenerator) generateConsoleReport(result *importer.Result, writer io.Writer) error {
	fmt.Fprintf(writer, "MOVE IMPORT REPORT\n")
	fmt.Fprintf(writer, "Company: %d, Format: %s, Currency: %s\n", result.Company, result.Format, result.Currency)
	if result.DryRun {
		fmt.Fprintf(writer, "Dry run: nothing was written\n\n")
	} else {
		fmt.Fprintf(writer, "Batch: %s\n\n", result.BatchID)
	}

	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	rg.printSummary(result, writer)
	fmt.Fprintf(writer, "\n")

	fmt.Fprintf(writer, "=== ACCOUNT MATCHING ===\n")
	rg.printAccountMatching(result, writer)
	fmt.Fprintf(writer, "\n")

	rows := entryRows(result)
	if rg.config.IncludeEntries && len(rows) > 0 {
		if result.DryRun {
			fmt.Fprintf(writer, "=== PLANNED ENTRIES ===\n")
		} else {
			fmt.Fprintf(writer, "=== JOURNAL ENTRIES ===\n")
		}
		rg.printEntries(rows, writer)
		fmt.Fprintf(writer, "\n")
	}

	if rec := result.Reconciliation; rec != nil {
		fmt.Fprintf(writer, "=== RECONCILIATION ===\n")
		fmt.Fprintf(writer, "Linked:  %d\n", rec.Linked)
		fmt.Fprintf(writer, "Skipped: %d\n", rec.Skipped)
		for _, g := range rec.Groups {
			if g.Linked {
				if rg.config.IncludeReconciled {
					fmt.Fprintf(writer, "  + %s: %d lines reconciled\n", g.Ref, len(g.LineIDs))
				}
				continue
			}
			fmt.Fprintf(writer, "  - %s: %s\n", g.Ref, g.Detail)
		}
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeStages && len(result.Stages) > 0 {
		fmt.Fprintf(writer, "=== STAGES ===\n")
		for _, s := range result.Stages {
			fmt.Fprintf(writer, "%-10s %v\n", s.Stage, s.Duration)
		}
	}

	return nil
}

// generateJSONReport generates a structured JSON report
func (rg *ReportGenerator) generateJSONReport(result *importer.Result, writer io.Writer) error {
	filteredResult := rg.filterResultForOutput(result)

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(filteredResult)
}

// generateCSVReport writes one row per entry and one per reconciliation group
func (rg *ReportGenerator) generateCSVReport(result *importer.Result, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter

	if rg.config.CSVHeaders {
		headers := []string{
			"Type",
			"ID",
			"Name",
			"Journal",
			"Date",
			"Ref",
			"Lines",
			"Total",
			"Reconcile_Ref",
			"Status",
			"Notes",
		}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	status := "Created"
	if result.DryRun {
		status = "Planned"
	} else if result.Posted {
		status = "Posted"
	}
	for _, row := range entryRows(result) {
		id := ""
		if row.ID != 0 {
			id = fmt.Sprint(int64(row.ID))
		}
		record := []string{
			"Entry",
			id,
			row.Name,
			row.Journal,
			row.Date.Format("2006-01-02"),
			row.Ref,
			fmt.Sprint(row.Lines),
			row.Total.StringFixed(2),
			"",
			status,
			"",
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write entry record: %w", err)
		}
	}

	if rec := result.Reconciliation; rec != nil {
		for _, g := range rec.Groups {
			if g.Linked && !rg.config.IncludeReconciled {
				continue
			}
			groupStatus := "Linked"
			if !g.Linked {
				groupStatus = "Skipped"
			}
			record := []string{
				"Reconciliation",
				"",
				"",
				"",
				"",
				"",
				fmt.Sprint(len(g.LineIDs)),
				"",
				g.Ref,
				groupStatus,
				g.Detail,
			}
			if err := csvWriter.Write(record); err != nil {
				return fmt.Errorf("failed to write reconciliation record: %w", err)
			}
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// Helper methods for console output formatting

func (rg *ReportGenerator) printSummary(result *importer.Result, writer io.Writer) {
	stats := result.Stats
	fmt.Fprintf(writer, "Parsed Lines:    %d\n", stats.ParsedLines)
	fmt.Fprintf(writer, "Imported Lines:  %d (%.1f%%)\n", stats.ImportedLines,
		rg.calculatePercentage(stats.ImportedLines, stats.ParsedLines))
	fmt.Fprintf(writer, "Journal Entries: %d\n", stats.Moves)
	fmt.Fprintf(writer, "Total Debit:     %s\n", stats.TotalDebit.StringFixed(2))
	fmt.Fprintf(writer, "Posted:          %s\n", yesNo(result.Posted))
	fmt.Fprintf(writer, "Open As:         %s\n", result.Navigation)
}

func (rg *ReportGenerator) printAccountMatching(result *importer.Result, writer io.Writer) {
	s := result.Stats.Resolver
	fmt.Fprintf(writer, "Exact Codes:     %d (%.1f%%)\n", s.ExactAccounts, rg.calculatePercentage(s.ExactAccounts, s.Lines))
	fmt.Fprintf(writer, "Trailing Zeros:  %d (%.1f%%)\n", s.TruncatedMatches, rg.calculatePercentage(s.TruncatedMatches, s.Lines))
	fmt.Fprintf(writer, "Prefix Matches:  %d (%.1f%%)\n", s.PrefixMatches, rg.calculatePercentage(s.PrefixMatches, s.Lines))
}

func (rg *ReportGenerator) printEntries(rows []entryRow, writer io.Writer) {
	for i, row := range rows {
		label := row.Journal
		if row.Name != "" {
			label = row.Name
		}
		fmt.Fprintf(writer, "  %d. %s, Date: %s, Lines: %d, Total: %s",
			i+1, label, row.Date.Format("2006-01-02"), row.Lines, row.Total.StringFixed(2))
		if row.Ref != "" {
			fmt.Fprintf(writer, ", Ref: %s", row.Ref)
		}
		if row.ID != 0 {
			fmt.Fprintf(writer, " [ID %d]", row.ID)
		}
		fmt.Fprintf(writer, "\n")

		// Limit output for very long lists
		limit := rg.config.MaxConsoleEntries
		if limit > 0 && i >= limit-1 && len(rows) > limit {
			fmt.Fprintf(writer, "  ... and %d more\n", len(rows)-limit)
			break
		}
	}
}

// Helper methods

func (rg *ReportGenerator) calculatePercentage(part, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) / float64(total) * 100.0
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func (rg *ReportGenerator) filterResultForOutput(result *importer.Result) map[string]interface{} {
	output := map[string]interface{}{
		"company":    result.Company,
		"format":     result.Format,
		"currency":   result.Currency,
		"dry_run":    result.DryRun,
		"posted":     result.Posted,
		"stats":      result.Stats,
		"navigation": result.Navigation,
	}
	if result.BatchID != "" {
		output["batch_id"] = result.BatchID
	}

	if rg.config.IncludeEntries {
		if result.DryRun {
			output["planned"] = result.Planned
		} else {
			output["moves"] = result.Moves
		}
	}

	if result.Reconciliation != nil {
		output["reconciliation"] = result.Reconciliation
	}

	if rg.config.IncludeStages && result.Stages != nil {
		output["stages"] = result.Stages
	}

	return output
}

// UpdateConfiguration updates the report generator configuration
func (rg *ReportGenerator) UpdateConfiguration(config *ReportConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid report configuration: %w", err)
	}

	rg.config = config
	return nil
}

// GetConfiguration returns the current configuration
func (rg *ReportGenerator) GetConfiguration() *ReportConfig {
	return rg.config
}

// ParseOutputFormat reads a format name as given on the command line
func ParseOutputFormat(s string) (OutputFormat, error) {
	f := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	if !f.IsValid() {
		return "", fmt.Errorf("invalid output format: %s (expected console, json or csv)", s)
	}
	return f, nil
}
