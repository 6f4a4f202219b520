package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang-move-import-service/cmd/moveimport/config"
	"golang-move-import-service/internal/importer"
	"golang-move-import-service/internal/lock"
	"golang-move-import-service/internal/reporter"
	"golang-move-import-service/internal/store"
	"golang-move-import-service/pkg/errors"
	"golang-move-import-service/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Settings resolved by validateImportFlags for runImport
var (
	importFile    string
	importOptions *importer.Options
	reportConfig  *reporter.ReportConfig
	outputFile    string
	showProgress  bool
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import a file of accounting lines as journal entries",
	Long: `Import parses FILE in the selected format, checks that every journal,
account, partner and analytic code exists for the company, groups the lines
into balanced journal entries and creates them in one database transaction.

Nothing is written when a code is unknown or an entry does not balance: the
whole list of problems is reported instead.

Examples:
  # Generic CSV with a header row, entries split when the balance reaches zero
  moveimport import moves.csv --company 1 --has-header --delimiter semicolon

  # FEC export, one entry per EcritureNum, posted and reconciled by EcritureLet
  moveimport import FEC.txt --company 1 --format fec_txt \
    --policy by_entry_number --post-and-reconcile

  # Check a spreadsheet without writing anything
  moveimport import moves.xlsx --company 1 --format genericxlsx --dry-run

  # Report as JSON into a file
  moveimport import moves.csv --company 1 --output-format json --output-file run.json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: validateImportFlags,
	RunE:    runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	flags := importCmd.Flags()

	// Run flags
	flags.Int64P("company", "c", 0, "company id the entries belong to (required)")
	flags.StringP("format", "t", "genericcsv", "file format, see 'moveimport formats'")
	flags.String("policy", "balanced", "entry split policy: balanced, by_entry_number")
	flags.Bool("skip-zero-lines", false, "drop lines whose debit and credit are both zero")
	flags.Bool("date-spans-lines", false, "let one entry span lines with different dates")
	flags.Bool("keep-existing-naming", false, "do not name entries after the file's entry numbers")
	flags.Bool("post-and-reconcile", false, "post the created entries and reconcile lines by tag")
	flags.Bool("dry-run", false, "parse, check and split without writing anything")
	flags.String("currency", "", "currency code used for balance checks (default: company currency)")

	// Parser flags
	flags.String("encoding", "utf-8", "file encoding: utf-8, latin1, iso-8859-15, ibm850, ascii")
	flags.String("delimiter", "comma", "generic CSV field delimiter: comma, semicolon, tab")
	flags.String("date-format", "%d/%m/%Y", "generic CSV date format in strftime notation")
	flags.Bool("has-header", false, "the first row of the file is a header")

	// Forced values
	flags.String("force-date", "", "date set on every line (YYYY-MM-DD)")
	flags.String("force-journal", "", "journal code set on every line")
	flags.String("force-label", "", "label set on every line")
	flags.String("force-ref", "", "reference set on every entry")

	// Output flags
	flags.StringP("output-format", "f", "console", "output format: console, json, csv")
	flags.StringP("output-file", "o", "", "output file path (default: stdout)")
	flags.Int("max-entries", 10, "entries listed in the console report")
	flags.Bool("progress", false, "show progress indicators")

	// Backends
	flags.String("db-driver", store.DriverMySQL, "database driver: mysql, sqlite")
	flags.String("db-dsn", "", "database DSN (default: built from MOVEIMPORT_DATABASE_* settings)")
	flags.Bool("auto-migrate", false, "create or update the tables before importing")
	flags.String("redis-addr", "", "redis address of the import lock (default: no lock)")
	flags.Int("lock-retries", 0, "times to retry when another import holds the lock")

	// Bind flags to viper
	bindings := map[string]string{
		config.KeyCompany:            "company",
		config.KeyFormat:             "format",
		config.KeyPolicy:             "policy",
		config.KeySkipZeroLines:      "skip-zero-lines",
		config.KeyDateSpansLines:     "date-spans-lines",
		config.KeyKeepExistingNaming: "keep-existing-naming",
		config.KeyPostAndReconcile:   "post-and-reconcile",
		config.KeyDryRun:             "dry-run",
		config.KeyCurrency:           "currency",
		config.KeyEncoding:           "encoding",
		config.KeyDelimiter:          "delimiter",
		config.KeyDateFormat:         "date-format",
		config.KeyHasHeader:          "has-header",
		config.KeyForceDate:          "force-date",
		config.KeyForceJournal:       "force-journal",
		config.KeyForceLabel:         "force-label",
		config.KeyForceRef:           "force-ref",
		config.KeyOutputFormat:       "output-format",
		config.KeyOutputFile:         "output-file",
		config.KeyMaxEntries:         "max-entries",
		config.KeyProgress:           "progress",
		config.KeyDBDriver:           "db-driver",
		config.KeyDBDSN:              "db-dsn",
		config.KeyDBAutoMigrate:      "auto-migrate",
		config.KeyRedisAddr:          "redis-addr",
		config.KeyLockRetries:        "lock-retries",
	}
	for key, flag := range bindings {
		viper.BindPFlag(key, flags.Lookup(flag))
	}
}

func validateImportFlags(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		importFile = args[0]
	}
	if err := validateFileExists(importFile, "import file"); err != nil {
		return err
	}

	v := viper.GetViper()

	var err error
	importOptions, err = config.CreateImportOptions(v)
	if err != nil {
		return err
	}

	reportConfig, err = config.CreateReportConfig(v.GetString(config.KeyOutputFormat), v.GetInt(config.KeyMaxEntries))
	if err != nil {
		return err
	}

	outputFile = v.GetString(config.KeyOutputFile)
	showProgress = v.GetBool(config.KeyProgress)

	// Validate output file directory exists if specified
	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return errors.FileError(errors.CodeFileNotFound, dir, err).
					WithSuggestion("create the output directory first")
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, description, nil, nil)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return errors.FileError(errors.CodeFileNotFound, filePath, err)
	}
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, filePath, err)
	}

	if info.IsDir() {
		return errors.FileError(errors.CodeFileCorrupted, filePath, nil).
			WithSuggestion(fmt.Sprintf("the %s is a directory, give the path of a file", description))
	}

	// Check if file is readable
	file, err := os.Open(filePath)
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, filePath, err)
	}
	file.Close()

	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.WithComponent("cli")

	if viper.GetBool(config.KeyVerbose) {
		fmt.Fprintf(os.Stderr, "Importing %s as %s for company %d\n", importFile, importOptions.Format, importOptions.Company)
		if importOptions.DryRun {
			fmt.Fprintf(os.Stderr, "Dry run: nothing will be written\n")
		}
	}

	var progress io.Writer
	if showProgress {
		progress = os.Stderr
	}

	result, err := executeImport(ctx, viper.GetViper(), importFile, importOptions, progress, log)
	if err != nil {
		return err
	}

	generator, err := reporter.NewSafeReportGenerator(reportConfig, log)
	if err != nil {
		return err
	}

	var output io.Writer = os.Stdout
	if outputFile != "" {
		file, err := os.Create(outputFile)
		if err != nil {
			return errors.FileError(errors.CodeFilePermission, outputFile, err)
		}
		defer file.Close()
		output = file
	}
	if err := generator.GenerateReportSafely(result, output); err != nil {
		return err
	}

	if viper.GetBool(config.KeyVerbose) {
		fmt.Fprintf(os.Stderr, "\nImport completed: %d lines, %d journal entries\n",
			result.Stats.ImportedLines, result.Stats.Moves)
		if result.Reconciliation != nil {
			fmt.Fprintf(os.Stderr, "Reconciled %d groups, skipped %d\n",
				result.Reconciliation.Linked, result.Reconciliation.Skipped)
		}
	}

	return nil
}

// executeImport reads path, connects the backends described by v and runs
// the import. Progress lines go to progress when it is not nil.
func executeImport(ctx context.Context, v *viper.Viper, path string, opts *importer.Options, progress io.Writer, log logger.Logger) (*importer.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, path, err)
		}
		return nil, errors.FileError(errors.CodeFileNotFound, path, err)
	}

	storeConfig, err := config.CreateStoreConfig(v)
	if err != nil {
		return nil, err
	}
	db, err := store.Open(storeConfig, log)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	st := store.New(db, log)

	service := importer.NewService(st, st, log).WithCurrencySource(st)
	lockConfig, ok, err := config.CreateLockConfig(v)
	if err != nil {
		return nil, err
	}
	if ok {
		service.WithLocker(lock.NewRedis(lockConfig, log))
	}

	if progress != nil {
		service.AddProgressCallback(func(p *importer.ImportProgress) {
			fmt.Fprintf(progress, "\r[%d/%d] %s (%.1f%% complete)",
				p.CompletedSteps, p.TotalSteps, p.CurrentStep, p.PercentComplete)
		})
		defer fmt.Fprintln(progress)
	}

	return service.Import(ctx, &importer.Request{
		Filename: filepath.Base(path),
		Data:     data,
		Options:  *opts,
	})
}
