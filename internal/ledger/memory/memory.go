// Package memory is the file-backed in-memory ledger store: the whole
// ledger lives in RAM and every save rewrites one JSON document on
// disk. It is the default backend for a single-shop deployment.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"garagebook/internal/core"
	"garagebook/internal/ledger"
)

const storeDataVersion = 1

type storeEnvelope struct {
	Version  int            `json:"version"`
	Invoices []core.Invoice `json:"invoices"`
	Expenses []core.Expense `json:"expenses"`
}

type Store struct {
	mu       sync.RWMutex
	filePath string // empty for a purely in-memory store
	invoices []core.Invoice
	expenses []core.Expense
}

var _ ledger.Store = (*Store)(nil)

// New returns an empty in-memory store with no file persistence.
func New() *Store {
	return &Store{}
}

// NewFromFile loads the ledger from path, creating the file when
// missing. A corrupt file is logged and treated as an empty ledger;
// the worst case is an empty view, never a crash.
func NewFromFile(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &Store{filePath: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := s.flushLocked(); err != nil {
			return nil, fmt.Errorf("initialize data file: %w", err)
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}
	var env storeEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		slog.Warn("Ledger file is corrupt, starting empty", "path", path, "error", err)
		return s, nil
	}
	s.invoices = env.Invoices
	s.expenses = env.Expenses
	return s, nil
}

func (s *Store) Load(_ context.Context) (ledger.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ledger.Snapshot{
		Invoices: append([]core.Invoice(nil), s.invoices...),
		Expenses: append([]core.Expense(nil), s.expenses...),
	}, nil
}

func (s *Store) Save(_ context.Context, snap ledger.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices = append([]core.Invoice(nil), snap.Invoices...)
	s.expenses = append([]core.Expense(nil), snap.Expenses...)
	return s.flushLocked()
}

// AddInvoice prepends so the newest record stays first.
func (s *Store) AddInvoice(_ context.Context, inv core.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices = append([]core.Invoice{inv}, s.invoices...)
	return s.flushLocked()
}

func (s *Store) AddExpense(_ context.Context, exp core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses = append([]core.Expense{exp}, s.expenses...)
	return s.flushLocked()
}

func (s *Store) DeleteInvoice(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, inv := range s.invoices {
		if inv.ID == id {
			s.invoices = append(s.invoices[:i], s.invoices[i+1:]...)
			return s.flushLocked()
		}
	}
	return ledger.ErrNotFound
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, exp := range s.expenses {
		if exp.ID == id {
			s.expenses = append(s.expenses[:i], s.expenses[i+1:]...)
			return s.flushLocked()
		}
	}
	return ledger.ErrNotFound
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices = nil
	s.expenses = nil
	return s.flushLocked()
}

// flushLocked writes the envelope to disk. Callers hold the lock.
func (s *Store) flushLocked() error {
	if s.filePath == "" {
		return nil
	}
	env := storeEnvelope{
		Version:  storeDataVersion,
		Invoices: s.invoices,
		Expenses: s.expenses,
	}
	if env.Invoices == nil {
		env.Invoices = []core.Invoice{}
	}
	if env.Expenses == nil {
		env.Expenses = []core.Expense{}
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	if err := os.WriteFile(s.filePath, data, 0o644); err != nil {
		return fmt.Errorf("write ledger file: %w", err)
	}
	return nil
}
