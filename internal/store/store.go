package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang-move-import-service/internal/directory"
	"golang-move-import-service/internal/ledger"
	"golang-move-import-service/internal/models"
	"golang-move-import-service/internal/reconciler"
	"golang-move-import-service/pkg/errors"
	"golang-move-import-service/pkg/logger"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Store serves the directory and the ledger from one database
type Store struct {
	db     *gorm.DB
	logger logger.Logger
}

// New wraps an open connection
func New(db *gorm.DB, log logger.Logger) *Store {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Store{db: db, logger: log.WithComponent("store")}
}

// DB returns the underlying connection
func (s *Store) DB() *gorm.DB {
	return s.db
}

type codeRow struct {
	ID   models.ID
	Code string
}

// Lookup returns the importable codes of domain for company
func (s *Store) Lookup(ctx context.Context, domain directory.Domain, company models.ID) (map[string]models.ID, error) {
	q := s.db.WithContext(ctx)
	switch domain {
	case directory.DomainAccount:
		q = q.Model(&Account{}).Select("id, code").
			Where("company_id = ? AND deprecated = ?", company, false)
	case directory.DomainJournal:
		q = q.Model(&Journal{}).Select("id, code").
			Where("company_id = ?", company)
	case directory.DomainPartner:
		q = q.Model(&Partner{}).Select("id, ref AS code").
			Where("(company_id = ? OR company_id IS NULL)", company).
			Where("ref IS NOT NULL AND ref <> ''").
			Where("parent_id IS NULL")
	case directory.DomainAnalytic:
		q = q.Model(&AnalyticAccount{}).Select("id, code").
			Where("(company_id = ? OR company_id IS NULL)", company).
			Where("code IS NOT NULL AND code <> ''")
	default:
		return nil, fmt.Errorf("unknown directory domain: %s", domain)
	}

	var rows []codeRow
	if err := q.Order("id").Scan(&rows).Error; err != nil {
		return nil, errors.PersistenceError(errors.CodeQueryFailed, fmt.Sprintf("%s lookup", domain), err).
			WithContext("company_id", company)
	}

	codes := make(map[string]models.ID, len(rows))
	for _, r := range rows {
		key := strings.ToUpper(r.Code)
		// first row wins when two records share a code
		if _, dup := codes[key]; !dup {
			codes[key] = r.ID
		}
	}

	s.logger.WithFields(logger.Fields{
		"domain":     string(domain),
		"company_id": company,
		"codes":      len(codes),
	}).Debug("Loaded directory codes")
	return codes, nil
}

// CompanyCurrency returns the currency amounts of company are kept in
func (s *Store) CompanyCurrency(ctx context.Context, company models.ID) (models.Currency, error) {
	var c Company
	if err := s.db.WithContext(ctx).Where("id = ?", company).First(&c).Error; err != nil {
		return models.Currency{}, errors.PersistenceError(errors.CodeQueryFailed, "company lookup", err).
			WithContext("company_id", company)
	}
	return models.NewCurrency(c.CurrencyCode)
}

// Transaction runs fn inside a database transaction
func (s *Store) Transaction(ctx context.Context, fn func(tx ledger.Ledger) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, logger: s.logger})
	})
}

// CreateMove inserts a draft entry with its lines
func (s *Store) CreateMove(ctx context.Context, req ledger.CreateRequest) (models.CreatedMove, error) {
	move := Move{
		CompanyID:   req.Company,
		JournalID:   req.Move.JournalID,
		Name:        req.Move.Name,
		Ref:         req.Move.Ref,
		Date:        req.Move.Date,
		State:       ledger.StateDraft,
		ImportBatch: req.Batch,
		Lines:       make([]MoveLine, 0, len(req.Move.Lines)),
	}

	for _, l := range req.Move.Lines {
		line := MoveLine{
			AccountID:        l.AccountID,
			Name:             l.Name,
			Debit:            l.Debit.Value,
			Credit:           l.Credit.Value,
			ImportReconcile:  l.ReconcileRef,
			ImportExternalID: ledger.ExternalID(req.Batch, l.Line),
		}
		if l.HasPartner() {
			partner := l.PartnerID
			line.PartnerID = &partner
		}
		if len(l.AnalyticDistribution) > 0 {
			encoded, err := encodeDistribution(l.AnalyticDistribution)
			if err != nil {
				return models.CreatedMove{}, errors.InternalError(errors.CodeUnexpectedError, "analytic encoding", err)
			}
			line.AnalyticDistribution = encoded
		}
		move.Lines = append(move.Lines, line)
	}

	if err := s.db.WithContext(ctx).Create(&move).Error; err != nil {
		return models.CreatedMove{}, errors.PersistenceError(errors.CodeQueryFailed, "entry creation", err).
			WithContext("first_line", req.Move.FirstLine())
	}

	return models.CreatedMove{
		ID:        move.ID,
		Name:      move.Name,
		Journal:   req.Move.Journal,
		Date:      move.Date,
		Ref:       move.Ref,
		LineCount: len(move.Lines),
		Total:     req.Move.TotalDebit(),
	}, nil
}

// Post moves draft entries to the posted state
func (s *Store) Post(ctx context.Context, moveIDs []models.ID) error {
	if len(moveIDs) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Model(&Move{}).
		Where("id IN ? AND state = ?", moveIDs, ledger.StateDraft).
		Update("state", ledger.StatePosted).Error
	if err != nil {
		return errors.PersistenceError(errors.CodeQueryFailed, "posting", err)
	}
	return nil
}

type taggedRow struct {
	ID                  models.ID
	MoveID              models.ID
	AccountID           models.ID
	AccountCode         string
	AccountReconcilable bool
	PartnerID           *models.ID
	Debit               decimal.Decimal
	Credit              decimal.Decimal
	ReconcileRef        string
}

// FindTaggedLines returns the lines of moveIDs carrying a reconciliation tag
func (s *Store) FindTaggedLines(ctx context.Context, moveIDs []models.ID) ([]reconciler.TaggedLine, error) {
	if len(moveIDs) == 0 {
		return nil, nil
	}

	var rows []taggedRow
	err := s.db.WithContext(ctx).Table("move_lines").
		Select("move_lines.id, move_lines.move_id, move_lines.account_id, accounts.code AS account_code, "+
			"accounts.reconcile AS account_reconcilable, move_lines.partner_id, move_lines.debit, "+
			"move_lines.credit, move_lines.import_reconcile AS reconcile_ref").
		Joins("JOIN accounts ON accounts.id = move_lines.account_id").
		Where("move_lines.move_id IN ?", moveIDs).
		Where("move_lines.import_reconcile IS NOT NULL AND move_lines.import_reconcile <> ''").
		Order("move_lines.id").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.PersistenceError(errors.CodeQueryFailed, "tagged line lookup", err)
	}

	lines := make([]reconciler.TaggedLine, len(rows))
	for i, r := range rows {
		lines[i] = reconciler.TaggedLine{
			ID:                  r.ID,
			MoveID:              r.MoveID,
			AccountID:           r.AccountID,
			AccountCode:         r.AccountCode,
			AccountReconcilable: r.AccountReconcilable,
			Debit:               r.Debit,
			Credit:              r.Credit,
			ReconcileRef:        r.ReconcileRef,
		}
		if r.PartnerID != nil {
			lines[i].PartnerID = *r.PartnerID
		}
	}
	return lines, nil
}

// Link records a reconciliation and attaches the lines to it
func (s *Store) Link(ctx context.Context, lineIDs []models.ID) error {
	if len(lineIDs) < 2 {
		return fmt.Errorf("at least 2 lines are needed to reconcile, got %d", len(lineIDs))
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := Reconciliation{}
		if err := tx.Create(&rec).Error; err != nil {
			return errors.PersistenceError(errors.CodeQueryFailed, "reconciliation creation", err)
		}
		res := tx.Model(&MoveLine{}).
			Where("id IN ? AND reconciliation_id IS NULL", lineIDs).
			Update("reconciliation_id", rec.ID)
		if res.Error != nil {
			return errors.PersistenceError(errors.CodeQueryFailed, "reconciliation update", res.Error)
		}
		if res.RowsAffected != int64(len(lineIDs)) {
			return errors.New(errors.CategoryReconciliation, errors.CodeLinkFailed,
				fmt.Sprintf("%d of %d lines could not be reconciled", int64(len(lineIDs))-res.RowsAffected, len(lineIDs)))
		}
		return nil
	})
}

// encodeDistribution renders {"analytic id": percentage} as JSON
func encodeDistribution(distribution map[models.ID]decimal.Decimal) (string, error) {
	out := make(map[string]decimal.Decimal, len(distribution))
	for id, pct := range distribution {
		out[fmt.Sprint(int64(id))] = pct
	}
	encoded, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

var (
	_ directory.Directory = (*Store)(nil)
	_ ledger.Ledger       = (*Store)(nil)
)
