// Package parsers turns vendor accounting exports into pivot lines.
//
// Every supported export has one parser behind the Parser interface. The
// parsers read the whole file in memory, decode it with the configured
// charset and emit models.PivotLine records carrying the 1-based source line
// number (header included). Any malformed input stops parsing with a
// *errors.FormatError naming the line, the offending value and what was
// expected.
//
// Supported formats:
//   - genericcsv: configurable delimited text
//   - genericxlsx: XLSX spreadsheets, plus XLS/ODS through a registered RowSource
//   - fec_txt: French FEC export with a sniffed delimiter
//   - nibelis, extenso, cielpaye, payfit: payroll exports
//   - quadra: fixed-width ASCII export
//
// Example usage:
//
//	parser, err := parsers.New(parsers.FormatGenericCSV, &parsers.Options{
//		Encoding:   parsers.EncodingUTF8,
//		Delimiter:  parsers.DelimiterSemicolon,
//		DateFormat: "%d/%m/%Y",
//		HasHeader:  true,
//	})
//	lines, err := parser.Parse(data)
package parsers

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"golang-move-import-service/internal/models"
	"golang-move-import-service/pkg/errors"
	"golang-move-import-service/pkg/logger"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decode converts raw file bytes to UTF-8 text
func decode(data []byte, enc Encoding) (string, error) {
	var decoder transform.Transformer

	switch enc {
	case EncodingUTF8, "":
		if !utf8.Valid(data) {
			return "", errors.EncodingError(string(EncodingUTF8), fmt.Errorf("invalid UTF-8 sequence"))
		}
		decoder = unicode.BOMOverride(unicode.UTF8.NewDecoder())
	case EncodingLatin1:
		decoder = charmap.ISO8859_1.NewDecoder()
	case EncodingLatin9:
		decoder = charmap.ISO8859_15.NewDecoder()
	case EncodingIBM850:
		decoder = charmap.CodePage850.NewDecoder()
	case EncodingASCII:
		for i, b := range data {
			if b >= utf8.RuneSelf {
				return "", errors.EncodingError(string(enc), fmt.Errorf("non ASCII byte 0x%x at offset %d", b, i))
			}
		}
		return string(data), nil
	default:
		return "", errors.EncodingError(string(enc), fmt.Errorf("unsupported encoding"))
	}

	out, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return "", errors.EncodingError(string(enc), err)
	}
	return string(out), nil
}

// record is one tokenized row and the physical line it starts on
type record struct {
	line   int
	fields []string
}

// readRecords tokenizes delimited text. Blank lines yield no record and a
// quoted field may span several lines, so each record keeps its own line.
func readRecords(text string, delimiter rune, log logger.Logger) ([]record, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records []record
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line, _ := reader.FieldPos(0)
			var parseErr *csv.ParseError
			if stderrors.As(err, &parseErr) {
				line = parseErr.StartLine
			}
			log.WithError(err).WithField("line_number", line).Warn("Failed to read record")
			return nil, errors.MalformedRecordError(line, err)
		}
		line, _ := reader.FieldPos(0)
		records = append(records, record{line: line, fields: fields})
	}

	log.WithField("records", len(records)).Debug("Tokenized delimited file")
	return records, nil
}

// field returns record[index] or "" when the record is short
func field(record []string, index int) string {
	if index < 0 || index >= len(record) {
		return ""
	}
	return record[index]
}

// parseAmount reads a decimal written with a dot or a comma
func parseAmount(value, column string, line int) (models.Amount, error) {
	d, err := models.ParseDecimalFromString(value)
	if err != nil {
		return models.Amount{}, errors.InvalidAmountError(line, column, strings.TrimSpace(value))
	}
	return models.NewAmount(d), nil
}

// signedAmount splits an unsigned amount into debit and credit by a C/D flag
func signedAmount(value, sign string, line int) (debit, credit models.Amount, err error) {
	amount, err := parseAmount(value, "amount", line)
	if err != nil {
		return debit, credit, err
	}
	switch strings.TrimSpace(sign) {
	case "C":
		credit = amount
	case "D":
		debit = amount
	}
	return debit, credit, nil
}

// parseDate parses value with a strftime style pattern
func parseDate(value, pattern string, line int) (time.Time, error) {
	t, err := time.Parse(strftimeLayout(pattern), strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, errors.InvalidDateError(line, value, pattern)
	}
	return t, nil
}

var strftimeDirectives = map[byte]string{
	'd': "2",
	'm': "1",
	'Y': "2006",
	'y': "06",
	'H': "15",
	'M': "04",
	'S': "05",
	'b': "Jan",
	'B': "January",
	'%': "%",
}

// strftimeLayout translates %d/%m/%Y style patterns to a Go time layout.
// Day and month accept one or two digits, as strptime does.
func strftimeLayout(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '%' || i+1 == len(pattern) {
			b.WriteByte(c)
			continue
		}
		i++
		if layout, ok := strftimeDirectives[pattern[i]]; ok {
			b.WriteString(layout)
		} else {
			b.WriteByte('%')
			b.WriteByte(pattern[i])
		}
	}
	return b.String()
}

// sniffDelimiter picks the candidate occurring most often in the first line
func sniffDelimiter(text string, candidates ...rune) (rune, bool) {
	firstLine := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		firstLine = text[:i]
	}

	best, bestCount := rune(0), 0
	for _, c := range candidates {
		if n := strings.Count(firstLine, string(c)); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best, bestCount > 0
}

// isBlank reports whether every cell is empty after trimming
func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
