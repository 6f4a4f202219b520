package ledger

import (
	"context"
	"fmt"
	"sync"

	"golang-move-import-service/internal/models"
	"golang-move-import-service/internal/reconciler"
)

// StoredLine is a line kept by the memory ledger
type StoredLine struct {
	ID           models.ID
	MoveID       models.ID
	ExternalID   string
	ReconcileRef string
	Reconciled   bool
	Line         models.ResolvedLine
}

// StoredMove is an entry kept by the memory ledger
type StoredMove struct {
	ID      models.ID
	Company models.ID
	Batch   string
	State   string
	Move    models.Move
}

type account struct {
	code      string
	reconcile bool
}

// Memory is a Ledger held in memory
type Memory struct {
	mu       sync.Mutex
	moves    []StoredMove
	lines    []StoredLine
	links    [][]models.ID
	accounts map[models.ID]account
	nextID   models.ID
}

// NewMemory creates an empty ledger
func NewMemory() *Memory {
	return &Memory{accounts: make(map[models.ID]account), nextID: 1}
}

// SetAccount declares the code and reconcile flag of an account
func (m *Memory) SetAccount(id models.ID, code string, reconcile bool) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[id] = account{code: code, reconcile: reconcile}
	return m
}

// Transaction restores the previous content when fn fails
func (m *Memory) Transaction(ctx context.Context, fn func(tx Ledger) error) error {
	m.mu.Lock()
	moves := append([]StoredMove(nil), m.moves...)
	lines := append([]StoredLine(nil), m.lines...)
	links := append([][]models.ID(nil), m.links...)
	nextID := m.nextID
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.moves, m.lines, m.links, m.nextID = moves, lines, links, nextID
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *Memory) CreateMove(_ context.Context, req CreateRequest) (models.CreatedMove, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(req.Move.Lines) == 0 {
		return models.CreatedMove{}, fmt.Errorf("journal entry has no lines")
	}

	moveID := m.newID()
	m.moves = append(m.moves, StoredMove{ID: moveID, Company: req.Company, Batch: req.Batch, State: StateDraft, Move: req.Move})
	for _, l := range req.Move.Lines {
		m.lines = append(m.lines, StoredLine{
			ID:           m.newID(),
			MoveID:       moveID,
			ExternalID:   ExternalID(req.Batch, l.Line),
			ReconcileRef: l.ReconcileRef,
			Line:         l,
		})
	}

	return models.CreatedMove{
		ID:        moveID,
		Name:      req.Move.Name,
		Journal:   req.Move.Journal,
		Date:      req.Move.Date,
		Ref:       req.Move.Ref,
		LineCount: len(req.Move.Lines),
		Total:     req.Move.TotalDebit(),
	}, nil
}

func (m *Memory) Post(_ context.Context, moveIDs []models.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := idSet(moveIDs)
	for i := range m.moves {
		if wanted[m.moves[i].ID] {
			m.moves[i].State = StatePosted
		}
	}
	return nil
}

func (m *Memory) FindTaggedLines(_ context.Context, moveIDs []models.ID) ([]reconciler.TaggedLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := idSet(moveIDs)
	var out []reconciler.TaggedLine
	for _, l := range m.lines {
		if !wanted[l.MoveID] || l.ReconcileRef == "" {
			continue
		}
		acc := m.accounts[l.Line.AccountID]
		out = append(out, reconciler.TaggedLine{
			ID:                  l.ID,
			MoveID:              l.MoveID,
			AccountID:           l.Line.AccountID,
			AccountCode:         acc.code,
			AccountReconcilable: acc.reconcile,
			PartnerID:           l.Line.PartnerID,
			Debit:               l.Line.Debit.Value,
			Credit:              l.Line.Credit.Value,
			ReconcileRef:        l.ReconcileRef,
		})
	}
	return out, nil
}

func (m *Memory) Link(_ context.Context, lineIDs []models.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := idSet(lineIDs)
	for i := range m.lines {
		if wanted[m.lines[i].ID] {
			m.lines[i].Reconciled = true
		}
	}
	m.links = append(m.links, append([]models.ID(nil), lineIDs...))
	return nil
}

// Moves returns the stored entries
func (m *Memory) Moves() []StoredMove {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]StoredMove(nil), m.moves...)
}

// Lines returns the stored lines
func (m *Memory) Lines() []StoredLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]StoredLine(nil), m.lines...)
}

// Links returns the line groups passed to Link
func (m *Memory) Links() [][]models.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]models.ID(nil), m.links...)
}

func (m *Memory) newID() models.ID {
	id := m.nextID
	m.nextID++
	return id
}

func idSet(ids []models.ID) map[models.ID]bool {
	set := make(map[models.ID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
