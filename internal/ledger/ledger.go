// Package ledger defines where journal entries are written and provides an
// in-memory implementation used by dry runs and tests.
package ledger

import (
	"context"
	"fmt"

	"golang-move-import-service/internal/models"
	"golang-move-import-service/internal/reconciler"
)

// Entry states
const (
	StateDraft  = "draft"
	StatePosted = "posted"
)

// CreateRequest is one journal entry to persist for a company
type CreateRequest struct {
	Company models.ID
	Batch   string
	Move    models.Move
}

// Ledger persists entries and serves their tagged lines back to the reconciler
type Ledger interface {
	// Transaction runs fn against a ledger bound to one transaction. The
	// transaction is rolled back when fn returns an error.
	Transaction(ctx context.Context, fn func(tx Ledger) error) error
	CreateMove(ctx context.Context, req CreateRequest) (models.CreatedMove, error)
	Post(ctx context.Context, moveIDs []models.ID) error
	reconciler.LineFinder
	reconciler.Linker
}

// ExternalID is the import identifier stored on each created line
func ExternalID(batch string, line int) string {
	return fmt.Sprintf("%s-%d", batch, line)
}
