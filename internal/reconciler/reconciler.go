// Package reconciler links imported journal items that carry the same
// reconciliation tag.
//
// Lines are fetched back from the ledger once the entries are persisted,
// grouped by tag and checked group by group. A group is linked only when it
// has at least two lines, balances in the company currency, sits on a
// single account that allows reconciliation and involves at most one
// partner. Groups failing a check are skipped with a warning; skipping is
// never an error and never undoes the import.
//
// Example usage:
//
//	rec := reconciler.New(ledger, ledger, currency, log)
//	result, err := rec.Reconcile(ctx, moveIDs)
package reconciler

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang-move-import-service/internal/models"
	"golang-move-import-service/pkg/errors"
	"golang-move-import-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// TaggedLine is a persisted journal item with a reconciliation tag
type TaggedLine struct {
	ID                  models.ID       `json:"id"`
	MoveID              models.ID       `json:"move_id"`
	AccountID           models.ID       `json:"account_id"`
	AccountCode         string          `json:"account_code"`
	AccountReconcilable bool            `json:"account_reconcilable"`
	PartnerID           models.ID       `json:"partner_id,omitempty"`
	Debit               decimal.Decimal `json:"debit"`
	Credit              decimal.Decimal `json:"credit"`
	ReconcileRef        string          `json:"reconcile_ref"`
}

// LineFinder returns the lines of the given entries that have a non-empty tag
type LineFinder interface {
	FindTaggedLines(ctx context.Context, moveIDs []models.ID) ([]TaggedLine, error)
}

// Linker reconciles lines together in one operation
type Linker interface {
	Link(ctx context.Context, lineIDs []models.ID) error
}

// SkipReason explains why a group was not linked
type SkipReason string

const (
	ReasonSingleLine      SkipReason = "single_line"
	ReasonUnbalanced      SkipReason = "unbalanced"
	ReasonSeveralAccounts SkipReason = "several_accounts"
	ReasonNotReconcilable SkipReason = "account_not_reconcilable"
	ReasonSeveralPartners SkipReason = "several_partners"
)

// GroupOutcome records what happened to one tag
type GroupOutcome struct {
	Ref     string      `json:"reconcile_ref"`
	LineIDs []models.ID `json:"line_ids"`
	Linked  bool        `json:"linked"`
	Reason  SkipReason  `json:"reason,omitempty"`
	Detail  string      `json:"detail,omitempty"`
}

// Result summarizes a reconciliation pass
type Result struct {
	Groups  []GroupOutcome `json:"groups"`
	Linked  int            `json:"linked"`
	Skipped int            `json:"skipped"`
}

// Reconciler groups and links tagged lines
type Reconciler struct {
	finder   LineFinder
	linker   Linker
	currency models.Currency
	logger   logger.Logger
}

// New creates a reconciler. The currency decides when a group balances.
func New(finder LineFinder, linker Linker, currency models.Currency, log logger.Logger) *Reconciler {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	if currency.Code == "" {
		currency = models.MustCurrency(models.DefaultCurrencyCode)
	}
	return &Reconciler{
		finder:   finder,
		linker:   linker,
		currency: currency,
		logger:   log.WithComponent("reconciler"),
	}
}

// Reconcile links the tagged lines of moveIDs. Only collaborator failures
// are returned as errors.
func (r *Reconciler) Reconcile(ctx context.Context, moveIDs []models.ID) (*Result, error) {
	r.logger.WithField("moves", len(moveIDs)).Info("Start to reconcile imported moves")

	lines, err := r.finder.FindTaggedLines(ctx, moveIDs)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryReconciliation, errors.CodeLinkFailed,
			"failed to read the tagged lines of the imported moves")
	}

	result := &Result{}
	for _, group := range groupByRef(lines) {
		outcome := r.check(group.ref, group.lines)
		if outcome.Linked {
			if err := r.linker.Link(ctx, outcome.LineIDs); err != nil {
				return nil, errors.Wrap(err, errors.CategoryReconciliation, errors.CodeLinkFailed,
					fmt.Sprintf("failed to reconcile lines with ref '%s'", group.ref)).
					WithContext("reconcile_ref", group.ref)
			}
			result.Linked++
		} else {
			r.logger.WithFields(logger.Fields{
				"reconcile_ref": group.ref,
				"reason":        string(outcome.Reason),
			}).Warn(outcome.Detail)
			result.Skipped++
		}
		result.Groups = append(result.Groups, outcome)
	}

	r.logger.WithFields(logger.Fields{
		"linked":  result.Linked,
		"skipped": result.Skipped,
	}).Info("Reconcile imported moves finished")
	return result, nil
}

type refGroup struct {
	ref   string
	lines []TaggedLine
}

// groupByRef keeps groups in the order their tag is first seen
func groupByRef(lines []TaggedLine) []refGroup {
	var groups []refGroup
	index := make(map[string]int)
	for _, l := range lines {
		if l.ReconcileRef == "" {
			continue
		}
		i, ok := index[l.ReconcileRef]
		if !ok {
			i = len(groups)
			index[l.ReconcileRef] = i
			groups = append(groups, refGroup{ref: l.ReconcileRef})
		}
		groups[i].lines = append(groups[i].lines, l)
	}
	return groups
}

// check applies the rules in order and stops at the first failure
func (r *Reconciler) check(ref string, lines []TaggedLine) GroupOutcome {
	outcome := GroupOutcome{Ref: ref, LineIDs: make([]models.ID, len(lines))}
	total := decimal.Zero
	accounts := make(map[models.ID]string)
	partners := make(map[models.ID]bool)
	for i, l := range lines {
		outcome.LineIDs[i] = l.ID
		total = total.Add(l.Credit).Sub(l.Debit)
		accounts[l.AccountID] = l.AccountCode
		partners[l.PartnerID] = true
	}

	skip := func(reason SkipReason, format string, args ...interface{}) GroupOutcome {
		outcome.Reason = reason
		outcome.Detail = fmt.Sprintf(format, args...)
		return outcome
	}

	if len(lines) < 2 {
		return skip(ReasonSingleLine,
			"Skip reconcile of ref '%s' because this ref is only on 1 move line", ref)
	}
	if !r.currency.IsZero(total) {
		return skip(ReasonUnbalanced,
			"Skip reconcile of ref '%s' because the lines with this ref are not balanced (%s)",
			ref, r.currency.Format(total))
	}
	if len(accounts) > 1 {
		codes := make([]string, 0, len(accounts))
		for _, code := range accounts {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		return skip(ReasonSeveralAccounts,
			"Skip reconcile of ref '%s' because the lines with this ref have different accounts (%s)",
			ref, strings.Join(codes, ", "))
	}
	if !lines[0].AccountReconcilable {
		return skip(ReasonNotReconcilable,
			"Skip reconcile of ref '%s' because the account '%s' is not configured with 'Allow Reconciliation'",
			ref, lines[0].AccountCode)
	}
	if len(partners) > 1 {
		ids := make([]string, 0, len(partners))
		for id := range partners {
			ids = append(ids, fmt.Sprint(int64(id)))
		}
		sort.Strings(ids)
		return skip(ReasonSeveralPartners,
			"Skip reconcile of ref '%s' because the lines with this ref have different partners (IDs %s)",
			ref, strings.Join(ids, ", "))
	}

	outcome.Linked = true
	return outcome
}
