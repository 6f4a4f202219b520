// Package importer runs an import end to end: the file is parsed into pivot
// lines, cleaned, resolved against the company directory and split into
// journal entries, which are then created in one transaction and optionally
// posted and reconciled.
//
// Nothing is persisted unless every line resolves and every entry balances.
//
// Example usage:
//
//	svc := importer.NewService(store, store, log).WithLocker(locker)
//	svc.AddProgressCallback(func(p *importer.ImportProgress) {
//		fmt.Printf("%.0f%% %s\n", p.PercentComplete, p.CurrentStep)
//	})
//	result, err := svc.Import(ctx, &importer.Request{Data: data, Options: *opts})
package importer

import (
	"context"
	"fmt"
	"sync"

	"golang-move-import-service/internal/directory"
	"golang-move-import-service/internal/ledger"
	"golang-move-import-service/internal/lock"
	"golang-move-import-service/internal/models"
	"golang-move-import-service/internal/normalize"
	"golang-move-import-service/internal/parsers"
	"golang-move-import-service/internal/reconciler"
	"golang-move-import-service/internal/resolver"
	"golang-move-import-service/internal/splitter"
	"golang-move-import-service/pkg/errors"
	"golang-move-import-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Navigation tells a caller how to present the created entries
type Navigation string

const (
	// NavigationSingle opens the only entry
	NavigationSingle Navigation = "single"
	// NavigationList lists every entry of the run
	NavigationList Navigation = "list"
)

// CurrencySource returns the currency a company keeps its books in
type CurrencySource interface {
	CompanyCurrency(ctx context.Context, company models.ID) (models.Currency, error)
}

// Request is one file to import
type Request struct {
	Filename string
	Data     []byte
	Options  Options
}

// Stats counts what a run went through
type Stats struct {
	ParsedLines   int             `json:"parsed_lines"`
	ImportedLines int             `json:"imported_lines"`
	Moves         int             `json:"moves"`
	TotalDebit    decimal.Decimal `json:"total_debit"`
	Resolver      resolver.Stats  `json:"resolver"`
}

// Result is the outcome of a successful run
type Result struct {
	BatchID        string                 `json:"batch_id,omitempty"`
	Company        models.ID              `json:"company"`
	Format         parsers.Format         `json:"format"`
	Currency       string                 `json:"currency"`
	DryRun         bool                   `json:"dry_run"`
	Posted         bool                   `json:"posted"`
	Moves          []models.CreatedMove   `json:"moves,omitempty"`
	Planned        []models.Move          `json:"planned,omitempty"`
	Reconciliation *reconciler.Result     `json:"reconciliation,omitempty"`
	Stats          Stats                  `json:"stats"`
	Navigation     Navigation             `json:"navigation"`
	Stages         []logger.StageDuration `json:"stages"`
}

// Service imports files into a ledger
type Service struct {
	directory  directory.Directory
	ledger     ledger.Ledger
	locker     lock.Locker
	currencies CurrencySource
	sources    map[string]parsers.RowSource
	logger     logger.Logger

	progressCallbacks []ProgressCallback
	progress          *ImportProgress
	progressMutex     sync.Mutex
}

// NewService creates a service reading codes from dir and writing to l
func NewService(dir directory.Directory, l ledger.Ledger, log logger.Logger) *Service {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Service{
		directory: dir,
		ledger:    l,
		sources:   make(map[string]parsers.RowSource),
		logger:    log.WithComponent("importer"),
		progress:  &ImportProgress{TotalSteps: totalSteps},
	}
}

// WithLocker serializes runs of the same company through locker
func (s *Service) WithLocker(locker lock.Locker) *Service {
	s.locker = locker
	return s
}

// WithCurrencySource reads the company currency from src when the run does
// not set one
func (s *Service) WithCurrencySource(src CurrencySource) *Service {
	s.currencies = src
	return s
}

// WithRowSource registers a spreadsheet decoder for a container MIME type
func (s *Service) WithRowSource(mime string, src parsers.RowSource) *Service {
	s.sources[mime] = src
	return s
}

// Import runs the whole pipeline for req
func (s *Service) Import(ctx context.Context, req *Request) (*Result, error) {
	if req == nil {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "request", nil, nil)
	}
	opts := req.Options
	log := s.logger.WithFields(logger.Fields{
		"file":    req.Filename,
		"company": opts.Company,
		"format":  string(opts.Format),
	})
	stages := logger.NewStageTracker(log)
	s.initializeProgress()

	fail := func(err error) (*Result, error) {
		stages.Fail(err)
		return nil, err
	}

	stages.Begin("validate")
	s.updateProgress(StepValidate, 0, nil)
	if err := opts.Validate(); err != nil {
		return fail(err)
	}
	if len(req.Data) == 0 {
		return fail(errors.FileError(errors.CodeFileCorrupted, req.Filename, fmt.Errorf("file is empty")).
			WithSuggestion("upload a non-empty file to import"))
	}

	if s.locker != nil && !opts.DryRun {
		release, err := s.locker.Acquire(ctx, opts.Company)
		if err != nil {
			return fail(err)
		}
		defer func() {
			if err := release(ctx); err != nil {
				log.WithError(err).Warn("Failed to release import lock")
			}
		}()
	}

	currency, err := s.currency(ctx, &opts)
	if err != nil {
		return fail(err)
	}
	stages.Done(-1)

	stages.Begin("parse")
	s.updateProgress(StepParse, 1, nil)
	pivot, err := s.parse(req.Data, &opts)
	if err != nil {
		return fail(err)
	}
	stages.Done(len(pivot))

	stages.Begin("normalize")
	s.updateProgress(StepNormalize, 2, func(p *ImportProgress) { p.ParsedLines = len(pivot) })
	pivot = normalize.Normalize(pivot, opts.Overrides())
	stages.Done(len(pivot))

	stages.Begin("directory")
	s.updateProgress(StepDirectory, 3, nil)
	snapshot, err := directory.Load(ctx, s.directory, opts.Company)
	if err != nil {
		return fail(err)
	}
	stages.Done(snapshot.Len(directory.DomainAccount))

	stages.Begin("resolve")
	s.updateProgress(StepResolve, 4, nil)
	res := resolver.New(snapshot, log)
	resolved, err := res.Resolve(pivot)
	if err != nil {
		return fail(err)
	}
	stages.Done(len(resolved))

	stages.Begin("split")
	s.updateProgress(StepSplit, 5, nil)
	split, err := splitter.New(opts.SplitOptions(currency), log)
	if err != nil {
		return fail(errors.ConfigurationError(errors.CodeInvalidConfig, "policy", opts.Policy, err))
	}
	moves, err := split.Split(resolved)
	if err != nil {
		return fail(err)
	}
	stages.Done(len(moves))

	result := &Result{
		Company:  opts.Company,
		Format:   opts.Format,
		Currency: currency.Code,
		DryRun:   opts.DryRun,
		Stats: Stats{
			ParsedLines: len(pivot),
			Moves:       len(moves),
			TotalDebit:  decimal.Zero,
			Resolver:    res.Stats(),
		},
	}
	for i := range moves {
		result.Stats.ImportedLines += len(moves[i].Lines)
		result.Stats.TotalDebit = result.Stats.TotalDebit.Add(moves[i].TotalDebit())
	}

	if opts.DryRun {
		result.Planned = moves
		result.Navigation = navigation(len(moves))
		result.Stages = stages.Durations()
		s.updateProgress(StepDone, totalSteps, func(p *ImportProgress) { p.PlannedMoves = len(moves) })
		log.WithField("moves", len(moves)).Info("Dry run finished, nothing was written")
		return result, nil
	}

	result.BatchID = uuid.NewString()
	stages.Begin("persist")
	s.updateProgress(StepCreate, 6, func(p *ImportProgress) { p.PlannedMoves = len(moves) })
	err = s.ledger.Transaction(ctx, func(tx ledger.Ledger) error {
		created, err := s.create(ctx, tx, opts.Company, result.BatchID, moves)
		if err != nil {
			return err
		}
		result.Moves = created
		if !opts.PostAndReconcile {
			return nil
		}

		s.updateProgress(StepReconcile, 7, func(p *ImportProgress) { p.CreatedMoves = len(created) })
		ids := make([]models.ID, len(created))
		for i, m := range created {
			ids[i] = m.ID
		}
		if err := tx.Post(ctx, ids); err != nil {
			return errors.WrapIfNeeded(err, errors.CategoryPersistence, errors.CodeQueryFailed, "failed to post the imported entries")
		}
		result.Posted = true

		rec, err := reconciler.New(tx, tx, currency, log).Reconcile(ctx, ids)
		if err != nil {
			return err
		}
		result.Reconciliation = rec
		return nil
	})
	if err != nil {
		return fail(err)
	}
	stages.Done(len(result.Moves))

	result.Navigation = navigation(len(result.Moves))
	result.Stages = stages.Durations()
	s.updateProgress(StepDone, totalSteps, func(p *ImportProgress) { p.CreatedMoves = len(result.Moves) })

	log.WithFields(logger.Fields{
		"batch":  result.BatchID,
		"moves":  len(result.Moves),
		"lines":  result.Stats.ImportedLines,
		"posted": result.Posted,
	}).Info("Journal entries created via file import")
	return result, nil
}

func (s *Service) parse(data []byte, opts *Options) ([]models.PivotLine, error) {
	p, err := parsers.New(opts.Format, &opts.Parser)
	if err != nil {
		return nil, err
	}
	if sheet, ok := p.(*parsers.SheetParser); ok {
		for mime, src := range s.sources {
			sheet.WithRowSource(mime, src)
		}
	}
	return p.Parse(data)
}

func (s *Service) create(ctx context.Context, tx ledger.Ledger, company models.ID, batch string, moves []models.Move) ([]models.CreatedMove, error) {
	created := make([]models.CreatedMove, 0, len(moves))
	for _, m := range moves {
		c, err := tx.CreateMove(ctx, ledger.CreateRequest{Company: company, Batch: batch, Move: m})
		if err != nil {
			return nil, errors.WrapIfNeeded(err, errors.CategoryPersistence, errors.CodeQueryFailed,
				fmt.Sprintf("failed to create the journal entry starting on line %d", m.FirstLine()))
		}
		created = append(created, c)
	}
	return created, nil
}

// currency picks the run currency, then the company one, then the default
func (s *Service) currency(ctx context.Context, opts *Options) (models.Currency, error) {
	if opts.CurrencyCode != "" {
		cur, err := models.NewCurrency(opts.CurrencyCode)
		if err != nil {
			return models.Currency{}, errors.ConfigurationError(errors.CodeInvalidConfig, "currency", opts.CurrencyCode, err)
		}
		return cur, nil
	}
	if s.currencies != nil {
		cur, err := s.currencies.CompanyCurrency(ctx, opts.Company)
		if err != nil {
			return models.Currency{}, errors.WrapIfNeeded(err, errors.CategoryPersistence, errors.CodeQueryFailed,
				"failed to read the company currency")
		}
		return cur, nil
	}
	return models.MustCurrency(models.DefaultCurrencyCode), nil
}

func navigation(moves int) Navigation {
	if moves == 1 {
		return NavigationSingle
	}
	return NavigationList
}
