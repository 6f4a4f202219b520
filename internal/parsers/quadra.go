package parsers

import (
	"strings"

	"golang-move-import-service/internal/models"
	"golang-move-import-service/pkg/errors"

	"github.com/shopspring/decimal"
)

const quadraMinLength = 54

// QuadraParser reads Quadra ASCII exports: one fixed-width record per line.
// Only "M" records with a C/D flag at offset 41 are entries.
type QuadraParser struct {
	baseParser
}

func (p *QuadraParser) Parse(data []byte) ([]models.PivotLine, error) {
	text, err := decode(data, p.encoding())
	if err != nil {
		return nil, err
	}

	var lines []models.PivotLine
	for i, raw := range strings.Split(text, "\n") {
		lineNo := i + 1
		l := []rune(raw)
		if len(l) < quadraMinLength {
			continue
		}
		if l[0] != 'M' || (l[41] != 'C' && l[41] != 'D') {
			continue
		}

		cents := strings.TrimSpace(slice(l, 42, 55))
		amount, err := decimal.NewFromString(cents)
		if err != nil {
			return nil, errors.InvalidAmountError(lineNo, "amount", cents)
		}
		amount = amount.Shift(-2)

		date, err := parseDate(slice(l, 14, 20), "%d%m%y", lineNo)
		if err != nil {
			return nil, err
		}

		line := models.PivotLine{
			Line:    lineNo,
			Date:    date,
			Journal: slice(l, 9, 11),
			Account: slice(l, 1, 9),
			Name:    slice(l, 21, 41),
		}
		if l[41] == 'C' {
			line.Credit = models.NewAmount(amount)
		} else {
			line.Debit = models.NewAmount(amount)
		}
		lines = append(lines, line)
	}
	return p.done(lines), nil
}

// slice returns runes [from, to) clamped to the line length
func slice(l []rune, from, to int) string {
	if from >= len(l) {
		return ""
	}
	if to > len(l) {
		to = len(l)
	}
	return string(l[from:to])
}
