package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"garagebook/internal/core"
	"garagebook/internal/ledger"
)

func TestAddPrependsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.AddInvoice(ctx, core.Invoice{ID: "old", Customer: "A"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.AddInvoice(ctx, core.Invoice{ID: "new", Customer: "B"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	snap, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Invoices) != 2 || snap.Invoices[0].ID != "new" || snap.Invoices[1].ID != "old" {
		t.Fatalf("ordering = %+v", snap.Invoices)
	}
}

func TestDeleteByID(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.AddExpense(ctx, core.Expense{ID: "e1", Category: "rent", Amount: core.Money{Fils: 1000}})
	_ = s.AddExpense(ctx, core.Expense{ID: "e2", Category: "parts", Amount: core.Money{Fils: 2000}})

	if err := s.DeleteExpense(ctx, "e1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	snap, _ := s.Load(ctx)
	if len(snap.Expenses) != 1 || snap.Expenses[0].ID != "e2" {
		t.Fatalf("expenses = %+v", snap.Expenses)
	}

	if err := s.DeleteExpense(ctx, "missing"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("delete missing = %v, want ErrNotFound", err)
	}
}

func TestSaveReplacesEverything(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.AddInvoice(ctx, core.Invoice{ID: "stale", Customer: "X"})

	next := ledger.Snapshot{
		Invoices: []core.Invoice{{ID: "i1", Customer: "Ahmad"}},
		Expenses: []core.Expense{{ID: "e1", Category: "rent", Amount: core.Money{Fils: 500}}},
	}
	if err := s.Save(ctx, next); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap, _ := s.Load(ctx)
	if len(snap.Invoices) != 1 || snap.Invoices[0].ID != "i1" {
		t.Fatalf("invoices = %+v", snap.Invoices)
	}
	if len(snap.Expenses) != 1 || snap.Expenses[0].ID != "e1" {
		t.Fatalf("expenses = %+v", snap.Expenses)
	}
}

func TestFilePersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "ledger.json")

	s, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = s.AddInvoice(ctx, core.Invoice{ID: "i1", Customer: "Ahmad", ServiceCost: core.Money{Fils: 40000}})
	_ = s.AddExpense(ctx, core.Expense{ID: "e1", Category: "rent", Amount: core.Money{Fils: 30000}})

	// A fresh store reading the same file sees the same ledger.
	reopened, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	snap, _ := reopened.Load(ctx)
	if len(snap.Invoices) != 1 || snap.Invoices[0].ServiceCost.Fils != 40000 {
		t.Fatalf("invoices = %+v", snap.Invoices)
	}
	if len(snap.Expenses) != 1 || snap.Expenses[0].ID != "e1" {
		t.Fatalf("expenses = %+v", snap.Expenses)
	}
}

func TestCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	if err := os.WriteFile(path, []byte("{{{ not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("corrupt file should not be fatal: %v", err)
	}
	snap, _ := s.Load(context.Background())
	if len(snap.Invoices) != 0 || len(snap.Expenses) != 0 {
		t.Fatalf("expected empty ledger, got %+v", snap)
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.AddInvoice(ctx, core.Invoice{ID: "i1", Customer: "A"})
	_ = s.AddExpense(ctx, core.Expense{ID: "e1", Category: "rent", Amount: core.Money{Fils: 1}})

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	snap, _ := s.Load(ctx)
	if len(snap.Invoices) != 0 || len(snap.Expenses) != 0 {
		t.Fatalf("clear left records: %+v", snap)
	}
}
