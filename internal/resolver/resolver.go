// Package resolver matches the codes of normalized pivot lines against a
// directory snapshot. It is the validation gate of an import: every problem
// in the file is collected and reported at once as a *ValidationError, and
// nothing is returned for persistence unless the whole file resolves.
package resolver

import (
	"fmt"
	"strings"
	"time"

	"golang-move-import-service/internal/directory"
	"golang-move-import-service/internal/models"
	"golang-move-import-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// TextDateLayout is the layout of dates left as text by the parsers
const TextDateLayout = "2006-01-02"

var hundred = decimal.NewFromInt(100)

// Stats counts how accounts were matched
type Stats struct {
	Lines            int `json:"lines"`
	ExactAccounts    int `json:"exact_accounts"`
	TruncatedMatches int `json:"truncated_matches"`
	PrefixMatches    int `json:"prefix_matches"`
	Issues           int `json:"issues"`
}

// Resolver resolves pivot lines against one snapshot
type Resolver struct {
	snapshot *directory.Snapshot
	logger   logger.Logger
	stats    Stats
}

// New creates a resolver for snapshot
func New(snapshot *directory.Snapshot, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Resolver{
		snapshot: snapshot,
		logger:   log.WithComponent("resolver"),
	}
}

// Stats returns the counters of the last Resolve call
func (r *Resolver) Stats() Stats {
	return r.stats
}

// Resolve returns one resolved line per input line, in order, or a
// *ValidationError listing every issue found.
func (r *Resolver) Resolve(lines []models.PivotLine) ([]models.ResolvedLine, error) {
	r.stats = Stats{Lines: len(lines)}
	var issues []Issue
	resolved := make([]models.ResolvedLine, 0, len(lines))

	for _, l := range lines {
		out := models.ResolvedLine{PivotLine: l}

		if id, ok := r.account(l.Account); ok {
			out.AccountID = id
		} else {
			issues = append(issues, Issue{Category: CategoryAccount, Code: l.Account, Line: l.Line})
		}

		if l.Partner != "" {
			if id, ok := r.snapshot.Get(directory.DomainPartner, l.Partner); ok {
				out.PartnerID = id
			} else {
				issues = append(issues, Issue{Category: CategoryPartner, Code: l.Partner, Line: l.Line})
			}
		}

		if l.Analytic != "" {
			distribution, analyticIssues := r.analytic(l.Analytic, l.Line)
			out.AnalyticDistribution = distribution
			issues = append(issues, analyticIssues...)
		}

		if id, ok := r.snapshot.Get(directory.DomainJournal, l.Journal); ok {
			out.JournalID = id
		} else {
			issues = append(issues, Issue{Category: CategoryJournal, Code: l.Journal, Line: l.Line})
		}

		switch {
		case l.HasDate():
		case l.DateText == "":
			issues = append(issues, other(l.Line, "Line %d: missing date.", l.Line))
		default:
			d, err := time.Parse(TextDateLayout, l.DateText)
			if err != nil {
				issues = append(issues, other(l.Line, "Line %d: bad date format %s", l.Line, l.DateText))
			} else {
				out.Date = d
				out.DateText = ""
			}
		}

		if !l.Credit.IsNumeric() {
			issues = append(issues, other(l.Line, "Line %d: bad value for credit (%s).", l.Line, l.Credit.Raw))
		}
		if !l.Debit.IsNumeric() {
			issues = append(issues, other(l.Line, "Line %d: bad value for debit (%s).", l.Line, l.Debit.Raw))
		}

		resolved = append(resolved, out)
	}

	r.stats.Issues = len(issues)
	if len(issues) > 0 {
		r.logger.WithFields(logger.Fields{
			"lines":  len(lines),
			"issues": len(issues),
		}).Warn("File did not pass validation")
		return nil, newValidationError(issues)
	}

	r.logger.WithFields(logger.Fields{
		"lines":             r.stats.Lines,
		"truncated_matches": r.stats.TruncatedMatches,
		"prefix_matches":    r.stats.PrefixMatches,
	}).Debug("Resolved lines")
	return resolved, nil
}

// account tries an exact match, then the code without its trailing zeros
// (611000 matches 6110), then the first directory code starting with it
// (611 matches 611000)
func (r *Resolver) account(code string) (models.ID, bool) {
	code = strings.ToUpper(code)
	if code == "" {
		return 0, false
	}
	if id, ok := r.snapshot.Get(directory.DomainAccount, code); ok {
		r.stats.ExactAccounts++
		return id, true
	}

	for trimmed := code; strings.HasSuffix(trimmed, "0"); {
		trimmed = trimmed[:len(trimmed)-1]
		if trimmed == "" {
			break
		}
		if id, ok := r.snapshot.Get(directory.DomainAccount, trimmed); ok {
			r.stats.TruncatedMatches++
			return id, true
		}
	}

	if match, id, ok := r.snapshot.AccountWithPrefix(code); ok {
		r.logger.WithFields(logger.Fields{
			"import_account": code,
			"account":        match,
		}).Warn("Approximate match: import account has been matched with a longer account code")
		r.stats.PrefixMatches++
		return id, true
	}

	return 0, false
}

// analytic reads CODE or CODE:PCT|CODE:PCT. Unknown codes are left out of
// the distribution.
func (r *Resolver) analytic(value string, line int) (map[models.ID]decimal.Decimal, []Issue) {
	distribution := make(map[models.ID]decimal.Decimal)
	var issues []Issue

	for _, segment := range strings.Split(value, "|") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		code, pct := segment, hundred
		if i := strings.LastIndex(segment, ":"); i >= 0 {
			code = strings.TrimSpace(segment[:i])
			pctText := segment[i+1:]
			parsed, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(pctText), ",", "."))
			switch {
			case err != nil:
				issues = append(issues, other(line, "Line %d: wrong analytic percentage: '%s' is not a number.", line, pctText))
				pct = decimal.NewFromInt(1)
			case parsed.IsNegative() || parsed.GreaterThan(hundred):
				issues = append(issues, other(line, "Line %d: wrong analytic percentage: '%s' is not between 0 and 100.", line, pctText))
				pct = decimal.NewFromInt(1)
			default:
				pct = parsed
			}
		}

		id, ok := r.snapshot.Get(directory.DomainAnalytic, code)
		if !ok {
			issues = append(issues, Issue{Category: CategoryAnalytic, Code: code, Line: line})
			continue
		}
		distribution[id] = pct
	}

	return distribution, issues
}

func other(line int, format string, args ...interface{}) Issue {
	return Issue{Category: CategoryOther, Line: line, Message: fmt.Sprintf(format, args...)}
}
