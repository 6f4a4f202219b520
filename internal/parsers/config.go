package parsers

import (
	"fmt"
	"strings"
)

// Format identifies a supported export layout
type Format string

const (
	FormatGenericXLSX Format = "genericxlsx"
	FormatGenericCSV  Format = "genericcsv"
	FormatFEC         Format = "fec_txt"
	FormatNibelis     Format = "nibelis"
	FormatQuadra      Format = "quadra"
	FormatExtenso     Format = "extenso"
	FormatCielPaye    Format = "cielpaye"
	FormatPayfit      Format = "payfit"
)

// AllFormats lists the supported formats in display order
func AllFormats() []Format {
	return []Format{
		FormatGenericXLSX,
		FormatGenericCSV,
		FormatFEC,
		FormatNibelis,
		FormatQuadra,
		FormatExtenso,
		FormatCielPaye,
		FormatPayfit,
	}
}

// IsValid checks if the format is supported
func (f Format) IsValid() bool {
	_, ok := formatInfos[f]
	return ok
}

func (f Format) String() string {
	return string(f)
}

// Encoding is a text charset accepted for delimited and fixed-width files
type Encoding string

const (
	EncodingUTF8   Encoding = "utf-8"
	EncodingLatin1 Encoding = "latin1"
	EncodingLatin9 Encoding = "iso-8859-15"
	EncodingIBM850 Encoding = "ibm850"
	EncodingASCII  Encoding = "ascii"
)

// IsValid checks if the encoding is supported
func (e Encoding) IsValid() bool {
	switch e {
	case EncodingUTF8, EncodingLatin1, EncodingLatin9, EncodingIBM850, EncodingASCII:
		return true
	default:
		return false
	}
}

// Delimiter is the field separator of generic delimited files
type Delimiter string

const (
	DelimiterComma     Delimiter = "comma"
	DelimiterSemicolon Delimiter = "semicolon"
	DelimiterTab       Delimiter = "tab"
)

// Rune returns the separator character
func (d Delimiter) Rune() (rune, error) {
	switch d {
	case DelimiterComma, "":
		return ',', nil
	case DelimiterSemicolon:
		return ';', nil
	case DelimiterTab:
		return '\t', nil
	default:
		return 0, fmt.Errorf("unsupported delimiter: %s", d)
	}
}

// DefaultDateFormat is the strftime pattern used by generic files
const DefaultDateFormat = "%d/%m/%Y"

// Options holds per-run parsing options. Formats with a fixed layout ignore
// the options they do not need.
type Options struct {
	Encoding   Encoding  `json:"encoding"`
	Delimiter  Delimiter `json:"delimiter"`
	DateFormat string    `json:"date_format"`
	HasHeader  bool      `json:"has_header"`
}

// DefaultOptions returns options with sensible defaults
func DefaultOptions() *Options {
	return &Options{
		Encoding:   EncodingUTF8,
		Delimiter:  DelimiterComma,
		DateFormat: DefaultDateFormat,
		HasHeader:  false,
	}
}

// Validate validates the options
func (o *Options) Validate() error {
	if !o.Encoding.IsValid() {
		return fmt.Errorf("unsupported encoding: %s", o.Encoding)
	}
	if _, err := o.Delimiter.Rune(); err != nil {
		return err
	}
	if strings.TrimSpace(o.DateFormat) == "" {
		return fmt.Errorf("date format cannot be empty")
	}
	if !strings.Contains(o.DateFormat, "%") {
		return fmt.Errorf("date format must use strftime directives such as %%d/%%m/%%Y, got %q", o.DateFormat)
	}
	return nil
}

// FormatInfo describes a format for help output and run validation
type FormatInfo struct {
	Format                Format   `json:"format"`
	Description           string   `json:"description"`
	FixedEncoding         Encoding `json:"fixed_encoding,omitempty"`
	RequiresForcedDate    bool     `json:"requires_forced_date"`
	RequiresForcedJournal bool     `json:"requires_forced_journal"`
	UsesDelimiter         bool     `json:"uses_delimiter"`
	UsesDateFormat        bool     `json:"uses_date_format"`
	UsesHeader            bool     `json:"uses_header"`
}

var formatInfos = map[Format]FormatInfo{
	FormatGenericXLSX: {
		Format:      FormatGenericXLSX,
		Description: "Generic XLSX/XLS/ODS",
		UsesHeader:  true,
	},
	FormatGenericCSV: {
		Format:         FormatGenericCSV,
		Description:    "Generic CSV",
		UsesDelimiter:  true,
		UsesDateFormat: true,
		UsesHeader:     true,
	},
	FormatFEC: {
		Format:      FormatFEC,
		Description: "FEC (text)",
	},
	FormatNibelis: {
		Format:        FormatNibelis,
		Description:   "Nibelis (Prisme)",
		FixedEncoding: EncodingLatin1,
	},
	FormatQuadra: {
		Format:      FormatQuadra,
		Description: "Quadra (without analytic)",
	},
	FormatExtenso: {
		Format:        FormatExtenso,
		Description:   "In Extenso",
		FixedEncoding: EncodingUTF8,
	},
	FormatCielPaye: {
		Format:        FormatCielPaye,
		Description:   "Ciel Paye",
		FixedEncoding: EncodingUTF8,
	},
	FormatPayfit: {
		Format:                FormatPayfit,
		Description:           "Payfit",
		FixedEncoding:         EncodingUTF8,
		RequiresForcedDate:    true,
		RequiresForcedJournal: true,
	},
}

// Describe returns the description of format
func Describe(format Format) (FormatInfo, error) {
	info, ok := formatInfos[format]
	if !ok {
		return FormatInfo{}, fmt.Errorf("unsupported file format: %s", format)
	}
	return info, nil
}

// ParseFormat reads a format name as given on the command line
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if !f.IsValid() {
		names := make([]string, 0, len(formatInfos))
		for _, known := range AllFormats() {
			names = append(names, string(known))
		}
		return "", fmt.Errorf("unsupported file format %q, valid formats: %s", s, strings.Join(names, ", "))
	}
	return f, nil
}
