package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang-move-import-service/internal/parsers"
	"golang-move-import-service/pkg/errors"

	"github.com/spf13/cobra"
)

var formatsJSON bool

// formatsCmd lists the supported file formats
var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List the supported file formats",
	Long: `Formats lists every file format the import command accepts, with the
options each one reads and the forced values it requires.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printFormats(os.Stdout, formatsJSON)
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
	formatsCmd.Flags().BoolVar(&formatsJSON, "json", false, "print the formats as JSON")
}

func printFormats(w io.Writer, asJSON bool) error {
	infos := make([]parsers.FormatInfo, 0, len(parsers.AllFormats()))
	for _, format := range parsers.AllFormats() {
		info, err := parsers.Describe(format)
		if err != nil {
			return errors.InternalError(errors.CodeUnexpectedError, "format listing", err)
		}
		infos = append(infos, info)
	}

	if asJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(infos)
	}

	fmt.Fprintf(w, "%-12s %-28s %-12s %s\n", "FORMAT", "DESCRIPTION", "ENCODING", "OPTIONS")
	for _, info := range infos {
		encoding := "--encoding"
		if info.FixedEncoding != "" {
			encoding = string(info.FixedEncoding)
		}
		fmt.Fprintf(w, "%-12s %-28s %-12s %s\n", info.Format, info.Description, encoding, formatOptions(info))
	}
	return nil
}

func formatOptions(info parsers.FormatInfo) string {
	var options []string
	if info.UsesDelimiter {
		options = append(options, "--delimiter")
	}
	if info.UsesDateFormat {
		options = append(options, "--date-format")
	}
	if info.UsesHeader {
		options = append(options, "--has-header")
	}
	if info.RequiresForcedDate {
		options = append(options, "--force-date (required)")
	}
	if info.RequiresForcedJournal {
		options = append(options, "--force-journal (required)")
	}
	if len(options) == 0 {
		return "-"
	}
	return strings.Join(options, ", ")
}
