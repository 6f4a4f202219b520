// Package splitter groups resolved lines into journal entries
package splitter

import (
	"fmt"

	"golang-move-import-service/internal/models"
	"golang-move-import-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// Policy selects how consecutive lines are grouped into entries
type Policy string

const (
	// PolicyBalanced opens a new entry once the open one balances, or when
	// the journal or the date changes
	PolicyBalanced Policy = "balanced"
	// PolicyByEntryNumber opens a new entry when move_name changes
	PolicyByEntryNumber Policy = "by_entry_number"
)

// IsValid checks if the policy is supported
func (p Policy) IsValid() bool {
	return p == PolicyBalanced || p == PolicyByEntryNumber
}

// Options configure a split
type Options struct {
	Policy             Policy          `json:"policy"`
	SkipZeroLines      bool            `json:"skip_zero_lines"`
	DateSpansLines     bool            `json:"date_spans_lines"`
	KeepExistingNaming bool            `json:"keep_existing_naming"`
	Currency           models.Currency `json:"-"`
}

// Splitter partitions an ordered line sequence into entries
type Splitter struct {
	opts     Options
	currency models.Currency
	logger   logger.Logger
}

// New creates a splitter. The company currency defaults to EUR.
func New(opts Options, log logger.Logger) (*Splitter, error) {
	if !opts.Policy.IsValid() {
		return nil, fmt.Errorf("wrong move split method: %q", opts.Policy)
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	currency := opts.Currency
	if currency.Code == "" {
		currency = models.MustCurrency(models.DefaultCurrencyCode)
	}
	return &Splitter{
		opts:     opts,
		currency: currency,
		logger:   log.WithComponent("splitter").WithField("policy", string(opts.Policy)),
	}, nil
}

// Split is a shorthand for New(opts, nil).Split(lines)
func Split(lines []models.ResolvedLine, opts Options) ([]models.Move, error) {
	s, err := New(opts, nil)
	if err != nil {
		return nil, err
	}
	return s.Split(lines)
}

// entry is the entry being filled
type entry struct {
	move      models.Move
	entryName string
	balance   decimal.Decimal
}

// Split returns the entries in line order. Every entry has at least two
// lines and balances in the company currency.
func (s *Splitter) Split(lines []models.ResolvedLine) ([]models.Move, error) {
	var moves []models.Move
	var cur *entry
	skipped := 0

	for _, l := range lines {
		if s.opts.SkipZeroLines && s.currency.IsZero(l.Debit.Value) && s.currency.IsZero(l.Credit.Value) {
			s.logger.WithField("line_number", l.Line).Info("Skip line which has debit=credit=0")
			skipped++
			continue
		}

		if s.opts.Policy == PolicyByEntryNumber && l.MoveName == "" {
			return nil, missingEntryNumberError(l.Line)
		}

		if cur != nil && s.sameEntry(cur, l) {
			cur.move.Lines = append(cur.move.Lines, l)
			cur.balance = cur.balance.Add(l.Balance())
			continue
		}

		if cur != nil {
			if err := s.close(cur, l.Line); err != nil {
				return nil, err
			}
			moves = append(moves, cur.move)
		}
		cur = s.open(l)
	}

	if cur != nil {
		if len(cur.move.Lines) < 2 {
			return nil, singleLineError(cur.move.LastLine())
		}
		if !s.currency.IsZero(cur.balance) {
			return nil, unbalancedError(0, s.currency.Format(cur.balance), cur.balance)
		}
		moves = append(moves, cur.move)
	}

	s.logger.WithFields(logger.Fields{
		"lines":   len(lines),
		"skipped": skipped,
		"entries": len(moves),
	}).Debug("Split lines into journal entries")
	return moves, nil
}

func (s *Splitter) sameEntry(cur *entry, l models.ResolvedLine) bool {
	switch s.opts.Policy {
	case PolicyByEntryNumber:
		return cur.entryName == l.MoveName
	default:
		return cur.move.JournalID == l.JournalID &&
			!s.currency.IsZero(cur.balance) &&
			(s.opts.DateSpansLines || cur.move.Date.Equal(l.Date))
	}
}

func (s *Splitter) open(l models.ResolvedLine) *entry {
	move := models.Move{
		JournalID: l.JournalID,
		Journal:   l.Journal,
		Date:      l.Date,
		Ref:       l.Ref,
		Lines:     []models.ResolvedLine{l},
	}
	if l.MoveName != "" && !s.opts.KeepExistingNaming {
		move.Name = l.MoveName
	}
	return &entry{move: move, entryName: l.MoveName, balance: l.Balance()}
}

// close checks the entry left behind when trigger opens a new one
func (s *Splitter) close(cur *entry, trigger int) error {
	if len(cur.move.Lines) < 2 {
		return singleLineError(trigger)
	}
	if !s.currency.IsZero(cur.balance) {
		return unbalancedError(cur.move.LastLine(), s.currency.Format(cur.balance), cur.balance)
	}
	return nil
}
