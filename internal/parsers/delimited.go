package parsers

import (
	"fmt"
	"strings"

	"golang-move-import-service/internal/models"
	"golang-move-import-service/pkg/errors"
)

// Column positions of the generic layout, shared with spreadsheets
const (
	colDate = iota
	colJournal
	colAccount
	colPartner
	colAnalytic
	colName
	colDebit
	colCredit
	colRef
	colReconcileRef
)

// GenericCSVParser reads the documented generic delimited layout:
// date, journal, account, partner, analytic, name, debit, credit, ref, reconcile_ref
type GenericCSVParser struct {
	baseParser
}

func (p *GenericCSVParser) Parse(data []byte) ([]models.PivotLine, error) {
	delimiter, err := p.opts.Delimiter.Rune()
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "delimiter", p.opts.Delimiter, err)
	}
	records, err := p.records(data, delimiter)
	if err != nil {
		return nil, err
	}

	var lines []models.PivotLine
	for _, rec := range records {
		lineNo, record := rec.line, rec.fields
		if lineNo == 1 && p.opts.HasHeader {
			continue
		}

		date, err := parseDate(field(record, colDate), p.opts.DateFormat, lineNo)
		if err != nil {
			return nil, err
		}
		debit, err := parseAmount(field(record, colDebit), "debit", lineNo)
		if err != nil {
			return nil, err
		}
		credit, err := parseAmount(field(record, colCredit), "credit", lineNo)
		if err != nil {
			return nil, err
		}

		lines = append(lines, models.PivotLine{
			Line:         lineNo,
			Date:         date,
			Journal:      field(record, colJournal),
			Account:      field(record, colAccount),
			Partner:      field(record, colPartner),
			Analytic:     field(record, colAnalytic),
			Name:         field(record, colName),
			Debit:        debit,
			Credit:       credit,
			Ref:          field(record, colRef),
			ReconcileRef: field(record, colReconcileRef),
		})
	}
	return p.done(lines), nil
}

// ExtensoParser reads In Extenso tab separated exports:
// journal, date, -, account, -, -, -, -, debit, credit
type ExtensoParser struct {
	baseParser
}

func (p *ExtensoParser) Parse(data []byte) ([]models.PivotLine, error) {
	records, err := p.records(data, '\t')
	if err != nil {
		return nil, err
	}

	var lines []models.PivotLine
	for _, rec := range records {
		lineNo, record := rec.line, rec.fields
		date, err := parseDate(field(record, 1), "%d%m%Y", lineNo)
		if err != nil {
			return nil, err
		}
		debit, err := parseAmount(field(record, 8), "debit", lineNo)
		if err != nil {
			return nil, err
		}
		credit, err := parseAmount(field(record, 9), "credit", lineNo)
		if err != nil {
			return nil, err
		}

		lines = append(lines, models.PivotLine{
			Line:    lineNo,
			Date:    date,
			Journal: field(record, 0),
			Account: field(record, 3),
			Debit:   debit,
			Credit:  credit,
		})
	}
	return p.done(lines), nil
}

// CielPayeParser reads Ciel Paye tab separated exports:
// -, journal, date, account, -, amount, sign, -, name, -
// Rows without a date, a label and an amount are not entries and are skipped.
type CielPayeParser struct {
	baseParser
}

func (p *CielPayeParser) Parse(data []byte) ([]models.PivotLine, error) {
	records, err := p.records(data, '\t')
	if err != nil {
		return nil, err
	}

	var lines []models.PivotLine
	for _, rec := range records {
		lineNo, record := rec.line, rec.fields
		dateValue, name, amount := field(record, 2), field(record, 8), field(record, 5)
		if dateValue == "" || name == "" || amount == "" {
			continue
		}

		date, err := parseDate(dateValue, "%d/%m/%Y", lineNo)
		if err != nil {
			return nil, err
		}
		debit, credit, err := signedAmount(amount, field(record, 6), lineNo)
		if err != nil {
			return nil, err
		}

		lines = append(lines, models.PivotLine{
			Line:    lineNo,
			Date:    date,
			Journal: field(record, 1),
			Account: field(record, 3),
			Name:    name,
			Debit:   debit,
			Credit:  credit,
		})
	}
	return p.done(lines), nil
}

// NibelisParser reads Nibelis (Prisme) semicolon exports, latin1 encoded,
// with a header line and 32 columns.
type NibelisParser struct {
	baseParser
}

const (
	nibelisJournal  = 2
	nibelisDate     = 7
	nibelisAccount  = 14
	nibelisAmount   = 17
	nibelisSign     = 19
	nibelisName     = 22
	nibelisAnalytic = 31
)

func (p *NibelisParser) Parse(data []byte) ([]models.PivotLine, error) {
	records, err := p.records(data, ';')
	if err != nil {
		return nil, err
	}

	var lines []models.PivotLine
	for _, rec := range records {
		lineNo, record := rec.line, rec.fields
		if lineNo == 1 {
			continue
		}

		date, err := parseDate(field(record, nibelisDate), "%y%m%d", lineNo)
		if err != nil {
			return nil, err
		}
		debit, credit, err := signedAmount(field(record, nibelisAmount), field(record, nibelisSign), lineNo)
		if err != nil {
			return nil, err
		}

		lines = append(lines, models.PivotLine{
			Line:     lineNo,
			Date:     date,
			Journal:  field(record, nibelisJournal),
			Account:  field(record, nibelisAccount),
			Name:     field(record, nibelisName),
			Analytic: field(record, nibelisAnalytic),
			Debit:    debit,
			Credit:   credit,
		})
	}
	return p.done(lines), nil
}

// PayfitParser reads Payfit semicolon exports addressed by header name.
// Payfit files carry neither a usable date nor a journal: runs must force both.
type PayfitParser struct {
	baseParser
}

var payfitColumns = []string{"CompteNum", "CompteLib", "Debit", "Credit", "EcritureDate"}

func (p *PayfitParser) Parse(data []byte) ([]models.PivotLine, error) {
	records, err := p.records(data, ';')
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := make(map[string]int, len(records[0].fields))
	for i, name := range records[0].fields {
		header[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, name := range payfitColumns {
		if _, ok := header[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		where := &errors.LineContext{Line: records[0].line, Value: strings.Join(missing, ", "), Expected: strings.Join(payfitColumns, ", ")}
		return nil, errors.NewFormatError(errors.CodeMalformedRecord, where,
			fmt.Sprintf("Missing columns in header line: %s.", strings.Join(missing, ", ")), nil)
	}
	column := func(record []string, name string) string {
		idx, ok := header[name]
		if !ok {
			return ""
		}
		return field(record, idx)
	}

	var lines []models.PivotLine
	for _, rec := range records[1:] {
		lineNo, record := rec.line, rec.fields

		date, err := parseDate(column(record, "EcritureDate"), "%d/%m/%Y", lineNo)
		if err != nil {
			return nil, err
		}
		debit, err := parseAmount(column(record, "Debit"), "Debit", lineNo)
		if err != nil {
			return nil, err
		}
		credit, err := parseAmount(column(record, "Credit"), "Credit", lineNo)
		if err != nil {
			return nil, err
		}

		lines = append(lines, models.PivotLine{
			Line:     lineNo,
			Date:     date,
			Journal:  column(record, "JournalCode"),
			Account:  column(record, "CompteNum"),
			Name:     column(record, "CompteLib"),
			Analytic: column(record, "AxeReference"),
			Debit:    debit,
			Credit:   credit,
		})
	}
	return p.done(lines), nil
}
