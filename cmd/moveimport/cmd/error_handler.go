package cmd

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"syscall"

	"golang-move-import-service/pkg/errors"
	"golang-move-import-service/pkg/logger"

	"github.com/spf13/viper"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
	out     io.Writer
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
		out:     os.Stderr,
	}
}

// HandleError prints err and returns the exit code of the process
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Debug("Command failed")

	var formatErr *errors.FormatError
	if stderrors.As(err, &formatErr) {
		return h.handleFormatError(formatErr)
	}

	if importErr, ok := errors.AsImportError(err); ok {
		return h.handleImportError(importErr)
	}

	return h.handleGenericError(err)
}

func (h *CLIErrorHandler) handleFormatError(err *errors.FormatError) int {
	fmt.Fprintln(h.out, err.GetDetailedError())
	fmt.Fprintf(h.out, "\n%s\n", h.getCategoryHelp(err.Category))
	if h.verbose && err.Cause != nil {
		fmt.Fprintf(h.out, "\nUnderlying error: %v\n", err.Cause)
	}
	return err.GetExitCode()
}

// handleImportError prints an ImportError with its context
func (h *CLIErrorHandler) handleImportError(err *errors.ImportError) int {
	// The validation and split messages are already complete reports
	switch err.Category {
	case errors.CategoryValidation, errors.CategorySplit:
		fmt.Fprintf(h.out, "Import refused, nothing was written.\n\n%s\n", strings.TrimRight(err.Message, "\n"))
	default:
		fmt.Fprintf(h.out, "Error: %s\n", err.Message)
	}

	if len(err.Context) > 0 {
		keys := make([]string, 0, len(err.Context))
		for key := range err.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		fmt.Fprintf(h.out, "\nContext:\n")
		for _, key := range keys {
			fmt.Fprintf(h.out, "  %s: %v\n", key, err.Context[key])
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(h.out, "\nSuggestion: %s\n", err.Suggestion)
	}

	fmt.Fprintf(h.out, "\n%s\n", h.getCategoryHelp(err.Category))

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(h.out, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

// handleGenericError handles errors outside the ImportError taxonomy
func (h *CLIErrorHandler) handleGenericError(err error) int {
	if h.isFileNotFoundError(err) {
		fmt.Fprintf(h.out, "Error: File not found\n")
		fmt.Fprintf(h.out, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	}

	if h.isPermissionError(err) {
		fmt.Fprintf(h.out, "Error: Permission denied\n")
		fmt.Fprintf(h.out, "Suggestion: Check file permissions and ensure you have read access\n")
		return 2
	}

	if h.isDiskFullError(err) {
		fmt.Fprintf(h.out, "Error: Insufficient disk space\n")
		fmt.Fprintf(h.out, "Suggestion: Free up disk space and try again\n")
		return 2
	}

	fmt.Fprintf(h.out, "Error: %v\n", err)
	if !h.verbose {
		fmt.Fprintf(h.out, "\nRun with --verbose for more details\n")
	}
	return 1
}

// getCategoryHelp returns category-specific help text
func (h *CLIErrorHandler) getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryFile:
		return `File error help:
• Check if the file exists and is readable
• Verify the file path is correct (use absolute paths if needed)
• Ensure you have proper permissions to access the file`

	case errors.CategoryFormat:
		return `Format error help:
• Check that --format matches the software that produced the file
• Check --encoding, --delimiter and --date-format for generic files
• Use 'moveimport formats' to see the options of each format`

	case errors.CategoryValidation:
		return `Validation error help:
• Create the missing journals, accounts, partners or analytic accounts
• Or fix the codes in the file and import it again
• Dates must be valid and amounts numeric`

	case errors.CategorySplit:
		return `Entry error help:
• Every journal entry needs at least two lines and must balance
• With --policy balanced, lines of one entry share journal and date
• Use --date-spans-lines when an entry spans several dates`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Check your command-line flags and arguments
• Verify configuration file syntax if using --config
• Use 'moveimport import --help' to see all available options`

	case errors.CategoryPersistence:
		return `Database error help:
• Check --db-driver and --db-dsn or the MOVEIMPORT_DATABASE_* variables
• Run once with --auto-migrate on a new database
• Nothing of this run was written`

	case errors.CategoryReconciliation:
		return `Reconciliation error help:
• The entries were not created, the whole run was rolled back
• Check the reconciliation tags of the file and import it again`

	default:
		return `For more help:
• Use 'moveimport --help' for general help
• Use 'moveimport import --help' for command-specific help
• Run with --verbose to see the underlying error`
	}
}

// Error detection helpers

func (h *CLIErrorHandler) isFileNotFoundError(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "no such file or directory")
}

func (h *CLIErrorHandler) isPermissionError(err error) bool {
	return os.IsPermission(err) ||
		strings.Contains(err.Error(), "permission denied") ||
		strings.Contains(err.Error(), "access denied")
}

func (h *CLIErrorHandler) isDiskFullError(err error) bool {
	if stderrors.Is(err, syscall.ENOSPC) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "no space left") ||
		strings.Contains(errStr, "disk full") ||
		strings.Contains(errStr, "device full")
}
