package parsers

import (
	"golang-move-import-service/internal/models"
	"golang-move-import-service/pkg/errors"
)

// FEC column positions (Fichier des Ecritures Comptables)
const (
	fecJournalCode = 0
	fecEcritureNum = 2
	fecDate        = 3
	fecCompteNum   = 4
	fecCompAuxNum  = 6
	fecPieceRef    = 8
	fecLabel       = 10
	fecDebit       = 11
	fecCredit      = 12
	fecLettrage    = 13
)

// FECParser reads FEC text exports. The separator is either a pipe or a tab
// and is detected on the header line, which is always skipped.
type FECParser struct {
	baseParser
}

func (p *FECParser) Parse(data []byte) ([]models.PivotLine, error) {
	text, err := decode(data, p.encoding())
	if err != nil {
		return nil, err
	}
	delimiter, ok := sniffDelimiter(text, '|', '\t')
	if !ok {
		return nil, errors.UnknownDelimiterError("'|' or tab")
	}
	p.logger.WithField("delimiter", string(delimiter)).Debug("Detected FEC delimiter")

	records, err := readRecords(text, delimiter, p.logger)
	if err != nil {
		return nil, err
	}

	var lines []models.PivotLine
	for _, rec := range records {
		lineNo, record := rec.line, rec.fields
		if lineNo == 1 {
			continue
		}

		date, err := parseDate(field(record, fecDate), "%Y%m%d", lineNo)
		if err != nil {
			return nil, err
		}
		debit, err := parseAmount(field(record, fecDebit), "Debit", lineNo)
		if err != nil {
			return nil, err
		}
		credit, err := parseAmount(field(record, fecCredit), "Credit", lineNo)
		if err != nil {
			return nil, err
		}

		lines = append(lines, models.PivotLine{
			Line:         lineNo,
			Date:         date,
			Journal:      field(record, fecJournalCode),
			MoveName:     field(record, fecEcritureNum),
			Account:      field(record, fecCompteNum),
			Partner:      field(record, fecCompAuxNum),
			Ref:          field(record, fecPieceRef),
			Name:         field(record, fecLabel),
			Debit:        debit,
			Credit:       credit,
			ReconcileRef: field(record, fecLettrage),
		})
	}
	return p.done(lines), nil
}
