package sheets

import (
	"context"

	"garagebook/internal/core"
)

// Ports for the mirror target. The mirror is append-only; deletions
// are recorded as marker rows, not removed.
type (
	RowAppender interface {
		AppendInvoice(ctx context.Context, inv core.Invoice) (rowRef string, err error)
		AppendExpense(ctx context.Context, exp core.Expense) (rowRef string, err error)
	}

	DeletionMarker interface {
		AppendDeletion(ctx context.Context, kind, id, date, description string, amount core.Money) (rowRef string, err error)
	}
)
