package parsers

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"golang-move-import-service/internal/models"
	"golang-move-import-service/pkg/errors"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
)

// Spreadsheet container types
const (
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeXLS  = "application/vnd.ms-excel"
	MimeODS  = "application/vnd.oasis.opendocument.spreadsheet"
	mimeZip  = "application/zip"
)

// minSheetCells is the number of cells a row needs to hold an entry line
const minSheetCells = 8

// RowSource decodes the first (active) sheet of a workbook into rows of cell
// text. Numeric cells are rendered raw and date-formatted cells as
// YYYY-MM-DD. A number in a cell without a date format is not a date.
type RowSource interface {
	Rows(data []byte) ([][]string, error)
}

// RowSourceFunc adapts a function to RowSource
type RowSourceFunc func(data []byte) ([][]string, error)

func (f RowSourceFunc) Rows(data []byte) ([][]string, error) {
	return f(data)
}

// SheetParser reads the generic column layout from a spreadsheet. XLSX is
// decoded natively; XLS and ODS need a RowSource registered for their type.
type SheetParser struct {
	baseParser
	sources map[string]RowSource
}

// NewSheetParser returns a parser knowing only XLSX
func NewSheetParser(base baseParser) *SheetParser {
	return &SheetParser{
		baseParser: base,
		sources: map[string]RowSource{
			MimeXLSX: xlsxSource{},
		},
	}
}

// WithRowSource registers the decoder used for a container MIME type
func (p *SheetParser) WithRowSource(mime string, src RowSource) *SheetParser {
	p.sources[mime] = src
	return p
}

func (p *SheetParser) Parse(data []byte) ([]models.PivotLine, error) {
	detected := mimetype.Detect(data)
	p.logger.WithField("mime", detected.String()).Debug("Detected spreadsheet type")

	var src RowSource
	switch {
	case detected.Is(MimeXLSX), detected.Is(mimeZip):
		src = p.sources[MimeXLSX]
	case detected.Is(MimeXLS):
		src = p.sources[MimeXLS]
	case detected.Is(MimeODS):
		src = p.sources[MimeODS]
	default:
		return nil, errors.UnknownContainerError(detected.String())
	}
	if src == nil {
		return nil, errors.UnknownContainerError(detected.String()).
			WithSuggestion("no decoder is installed for this spreadsheet type, save the file as XLSX")
	}

	rows, err := src.Rows(data)
	if err != nil {
		return nil, errors.NewFormatError(errors.CodeUnknownContainer,
			&errors.LineContext{Value: detected.String(), Expected: "XLSX, XLS or ODS"},
			"Are you sure this file is an XLSX, XLS or ODS file?", err)
	}
	return p.parseRows(rows)
}

func (p *SheetParser) parseRows(rows [][]string) ([]models.PivotLine, error) {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	var lines []models.PivotLine
	for i, row := range rows {
		lineNo := i + 1
		if lineNo == 1 && p.opts.HasHeader {
			continue
		}
		// rows share the width of the widest row, like a sheet's used range
		cells := make([]string, width)
		copy(cells, row)
		if len(cells) < minSheetCells || isBlank(cells) {
			continue
		}

		line := models.PivotLine{
			Line:         lineNo,
			Journal:      cells[colJournal],
			Account:      cells[colAccount],
			Partner:      cells[colPartner],
			Analytic:     cells[colAnalytic],
			Name:         cells[colName],
			Debit:        sheetAmount(cells[colDebit]),
			Credit:       sheetAmount(cells[colCredit]),
			Ref:          field(cells, colRef),
			ReconcileRef: field(cells, colReconcileRef),
		}
		line.Date, line.DateText = sheetDate(cells[colDate])
		lines = append(lines, line)
	}
	return p.done(lines), nil
}

// sheetDate reads a date cell rendered by the row source; any other content
// is kept as text for the resolver
func sheetDate(value string) (time.Time, string) {
	value = strings.TrimSpace(value)
	t, err := time.Parse(sheetDateLayout, value)
	if err != nil {
		return time.Time{}, value
	}
	return t, ""
}

// sheetAmount keeps non numeric cells as raw text for the resolver
func sheetAmount(value string) models.Amount {
	d, err := models.ParseDecimalFromString(value)
	if err != nil {
		return models.Amount{Raw: strings.TrimSpace(value)}
	}
	return models.NewAmount(d)
}

const sheetDateLayout = "2006-01-02"

type xlsxSource struct{}

func (xlsxSource) Rows(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	for r, row := range rows {
		if colDate >= len(row) {
			continue
		}
		serial, err := strconv.ParseFloat(strings.TrimSpace(row[colDate]), 64)
		if err != nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(colDate+1, r+1)
		if err != nil {
			return nil, err
		}
		dated, err := hasDateFormat(f, sheet, cell)
		if err != nil {
			return nil, err
		}
		if !dated {
			continue
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			continue
		}
		row[colDate] = t.Format(sheetDateLayout)
	}
	return rows, nil
}

// hasDateFormat reports whether the number format of cell displays a date
func hasDateFormat(f *excelize.File, sheet, cell string) (bool, error) {
	idx, err := f.GetCellStyle(sheet, cell)
	if err != nil {
		return false, err
	}
	style, err := f.GetStyle(idx)
	if err != nil {
		return false, err
	}

	switch id := style.NumFmt; {
	case id >= 14 && id <= 22, id >= 27 && id <= 36, id >= 50 && id <= 58:
		return true, nil
	case style.CustomNumFmt != nil:
		return isDateFormatCode(*style.CustomNumFmt), nil
	}
	return false, nil
}

// isDateFormatCode looks for day or year tokens outside quoted text and
// bracketed sections such as colors and currency locales
func isDateFormatCode(code string) bool {
	quoted, bracketed := false, false
	for _, c := range strings.ToLower(code) {
		switch {
		case c == '"':
			quoted = !quoted
		case quoted:
		case c == '[':
			bracketed = true
		case c == ']':
			bracketed = false
		case bracketed:
		case c == 'd', c == 'y':
			return true
		}
	}
	return false
}
