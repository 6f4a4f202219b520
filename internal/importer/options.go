package importer

import (
	"fmt"
	"strings"
	"time"

	"golang-move-import-service/internal/models"
	"golang-move-import-service/internal/normalize"
	"golang-move-import-service/internal/parsers"
	"golang-move-import-service/internal/splitter"
	"golang-move-import-service/pkg/errors"
	"golang-move-import-service/pkg/validation"
)

// Options holds the settings of one import run
type Options struct {
	Company            models.ID       `json:"company" mapstructure:"company" validate:"required"`
	Format             parsers.Format  `json:"format" mapstructure:"format" validate:"required"`
	Parser             parsers.Options `json:"parser" mapstructure:"parser"`
	Policy             splitter.Policy `json:"policy" mapstructure:"policy" validate:"required,oneof=balanced by_entry_number"`
	SkipZeroLines      bool            `json:"skip_zero_lines" mapstructure:"skip_zero_lines"`
	DateSpansLines     bool            `json:"date_spans_lines" mapstructure:"date_spans_lines"`
	KeepExistingNaming bool            `json:"keep_existing_naming" mapstructure:"keep_existing_naming"`
	ForceDate          time.Time       `json:"force_date,omitempty" mapstructure:"force_date"`
	ForceJournal       string          `json:"force_journal,omitempty" mapstructure:"force_journal" validate:"omitempty,max=16"`
	ForceLabel         string          `json:"force_label,omitempty" mapstructure:"force_label" validate:"omitempty,max=256"`
	ForceRef           string          `json:"force_ref,omitempty" mapstructure:"force_ref" validate:"omitempty,max=128"`
	PostAndReconcile   bool            `json:"post_and_reconcile" mapstructure:"post_and_reconcile"`
	DryRun             bool            `json:"dry_run" mapstructure:"dry_run"`
	// CurrencyCode overrides the company currency used for zero checks
	CurrencyCode string `json:"currency,omitempty" mapstructure:"currency" validate:"omitempty,len=3,alpha"`
}

// DefaultOptions returns options for a balanced import of a generic CSV file
func DefaultOptions() *Options {
	return &Options{
		Format: parsers.FormatGenericCSV,
		Parser: *parsers.DefaultOptions(),
		Policy: splitter.PolicyBalanced,
	}
}

var validate = validation.New("json")

// Validate checks the options and fills unset parser settings with defaults
func (o *Options) Validate() error {
	o.fillDefaults()

	if err := validate.Struct("", o); err != nil {
		return err
	}

	info, err := parsers.Describe(o.Format)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "format", o.Format, err).
			WithSuggestion("run the formats command to list supported formats")
	}
	if info.RequiresForcedDate && o.ForceDate.IsZero() {
		return errors.ConfigurationError(errors.CodeMissingConfig, "force_date", nil, nil).
			WithSuggestion(fmt.Sprintf("the %s format requires a forced date", info.Description))
	}
	if info.RequiresForcedJournal && o.ForceJournal == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, "force_journal", nil, nil).
			WithSuggestion(fmt.Sprintf("the %s format requires a forced journal", info.Description))
	}

	if err := o.Parser.Validate(); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "parser", o.Parser, err)
	}
	return nil
}

// Overrides returns the fields forced on every line
func (o *Options) Overrides() normalize.Overrides {
	return normalize.Overrides{
		Date:    o.ForceDate,
		Name:    o.ForceLabel,
		Ref:     o.ForceRef,
		Journal: o.ForceJournal,
	}
}

// SplitOptions returns the splitter settings for currency
func (o *Options) SplitOptions(currency models.Currency) splitter.Options {
	return splitter.Options{
		Policy:             o.Policy,
		SkipZeroLines:      o.SkipZeroLines,
		DateSpansLines:     o.DateSpansLines,
		KeepExistingNaming: o.KeepExistingNaming,
		Currency:           currency,
	}
}

func (o *Options) fillDefaults() {
	defaults := parsers.DefaultOptions()
	if o.Parser.Encoding == "" {
		o.Parser.Encoding = defaults.Encoding
	}
	if o.Parser.Delimiter == "" {
		o.Parser.Delimiter = defaults.Delimiter
	}
	if o.Parser.DateFormat == "" {
		o.Parser.DateFormat = defaults.DateFormat
	}
	o.ForceJournal = strings.TrimSpace(o.ForceJournal)
	o.CurrencyCode = strings.ToUpper(strings.TrimSpace(o.CurrencyCode))
	if !o.ForceDate.IsZero() {
		y, m, d := o.ForceDate.Date()
		o.ForceDate = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
}
