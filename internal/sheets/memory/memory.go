// Package memory is an in-memory mirror target used by tests and by
// deployments without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"garagebook/internal/core"
	ports "garagebook/internal/sheets"
)

type Store struct {
	mu        sync.Mutex
	invoices  []core.Invoice
	expenses  []core.Expense
	deletions []Deletion
}

type Deletion struct {
	Kind        string
	ID          string
	Date        string
	Description string
	Amount      core.Money
}

var (
	_ ports.RowAppender    = (*Store)(nil)
	_ ports.DeletionMarker = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

func (s *Store) AppendInvoice(_ context.Context, inv core.Invoice) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices = append(s.invoices, inv)
	return fmt.Sprintf("mem:invoices:%d", len(s.invoices)), nil
}

func (s *Store) AppendExpense(_ context.Context, exp core.Expense) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses = append(s.expenses, exp)
	return fmt.Sprintf("mem:expenses:%d", len(s.expenses)), nil
}

func (s *Store) AppendDeletion(_ context.Context, kind, id, date, description string, amount core.Money) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletions = append(s.deletions, Deletion{
		Kind:        kind,
		ID:          id,
		Date:        date,
		Description: description,
		Amount:      amount,
	})
	return fmt.Sprintf("mem:deletions:%d", len(s.deletions)), nil
}

// Rows returns copies of the mirrored records for assertions.
func (s *Store) Rows() ([]core.Invoice, []core.Expense, []Deletion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Invoice(nil), s.invoices...),
		append([]core.Expense(nil), s.expenses...),
		append([]Deletion(nil), s.deletions...)
}
