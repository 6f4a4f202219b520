package parsers

import (
	"golang-move-import-service/internal/models"
	"golang-move-import-service/pkg/errors"
	"golang-move-import-service/pkg/logger"
)

// Parser converts the raw content of one export into pivot lines
type Parser interface {
	Format() Format
	Parse(data []byte) ([]models.PivotLine, error)
}

// New returns the parser for format
func New(format Format, opts *Options) (Parser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "parser options", opts, err)
	}

	log := logger.GetGlobalLogger().WithComponent("parser").WithField("format", string(format))
	base := baseParser{format: format, opts: *opts, logger: log}

	switch format {
	case FormatGenericCSV:
		return &GenericCSVParser{baseParser: base}, nil
	case FormatGenericXLSX:
		return NewSheetParser(base), nil
	case FormatFEC:
		return &FECParser{baseParser: base}, nil
	case FormatNibelis:
		return &NibelisParser{baseParser: base}, nil
	case FormatQuadra:
		return &QuadraParser{baseParser: base}, nil
	case FormatExtenso:
		return &ExtensoParser{baseParser: base}, nil
	case FormatCielPaye:
		return &CielPayeParser{baseParser: base}, nil
	case FormatPayfit:
		return &PayfitParser{baseParser: base}, nil
	default:
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "format", format, nil).
			WithSuggestion("run the formats command to list supported formats")
	}
}

// baseParser carries what every parser needs
type baseParser struct {
	format Format
	opts   Options
	logger logger.Logger
}

func (b *baseParser) Format() Format {
	return b.format
}

// encoding returns the charset the format reads, fixed or configured
func (b *baseParser) encoding() Encoding {
	if info, err := Describe(b.format); err == nil && info.FixedEncoding != "" {
		return info.FixedEncoding
	}
	return b.opts.Encoding
}

func (b *baseParser) records(data []byte, delimiter rune) ([]record, error) {
	text, err := decode(data, b.encoding())
	if err != nil {
		return nil, err
	}
	return readRecords(text, delimiter, b.logger)
}

func (b *baseParser) done(lines []models.PivotLine) []models.PivotLine {
	b.logger.WithField("lines", len(lines)).Debug("Parsed file")
	return lines
}
