// Package ledger defines the persistence ports of the shop ledger and
// the snapshot document that moves through them. The store contract is
// deliberately write-all/read-all: there is no compare-and-swap, so
// concurrent writers race and the last writer wins. That is accepted
// for a single small shop and called out here rather than fixed.
package ledger

import (
	"context"
	"errors"

	"garagebook/internal/core"
)

// Snapshot is the full persisted state: the two ordered collections,
// newest first.
type Snapshot struct {
	Invoices []core.Invoice `json:"invoices"`
	Expenses []core.Expense `json:"expenses"`
}

var ErrNotFound = errors.New("record not found")

// Ports for outbound adapters.
type (
	// SnapshotReader loads the whole ledger. Callers keep their last
	// known snapshot when Load fails; a read failure is never fatal.
	SnapshotReader interface {
		Load(ctx context.Context) (Snapshot, error)
	}

	// SnapshotWriter replaces the whole ledger.
	SnapshotWriter interface {
		Save(ctx context.Context, snap Snapshot) error
	}

	// RecordWriter prepends a single record, preserving newest-first
	// ordering.
	RecordWriter interface {
		AddInvoice(ctx context.Context, inv core.Invoice) error
		AddExpense(ctx context.Context, exp core.Expense) error
	}

	// RecordDeleter removes a single record by id.
	RecordDeleter interface {
		DeleteInvoice(ctx context.Context, id string) error
		DeleteExpense(ctx context.Context, id string) error
	}

	// Clearer wipes both collections.
	Clearer interface {
		Clear(ctx context.Context) error
	}
)

// Store is the full set of ledger operations a backend must provide.
type Store interface {
	SnapshotReader
	SnapshotWriter
	RecordWriter
	RecordDeleter
	Clearer
}
