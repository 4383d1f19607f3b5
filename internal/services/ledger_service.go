// Package services orchestrates ledger operations across the local
// store and the AMQP change feed.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"garagebook/internal/amqp"
	"garagebook/internal/core"
	"garagebook/internal/ledger"
)

// LedgerService writes records locally first, then publishes a
// best-effort change event. A broker outage never fails the request.
type LedgerService struct {
	store      ledger.Store
	amqpClient *amqp.Client
}

func NewLedgerService(store ledger.Store, amqpClient *amqp.Client) *LedgerService {
	return &LedgerService{
		store:      store,
		amqpClient: amqpClient,
	}
}

// Snapshot returns the full ledger.
func (s *LedgerService) Snapshot(ctx context.Context) (ledger.Snapshot, error) {
	return s.store.Load(ctx)
}

// ReplaceSnapshot overwrites the whole ledger. Last writer wins.
func (s *LedgerService) ReplaceSnapshot(ctx context.Context, snap ledger.Snapshot) error {
	if err := s.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// CreateInvoice validates, assigns an id, defaults a blank date to
// today, saves locally and publishes a sync event.
func (s *LedgerService) CreateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error) {
	if inv.Date.IsZero() {
		inv.Date = core.Today()
	}
	if err := inv.Validate(); err != nil {
		return core.Invoice{}, err
	}
	inv.ID = uuid.NewString()

	if err := s.store.AddInvoice(ctx, inv); err != nil {
		return core.Invoice{}, fmt.Errorf("save invoice: %w", err)
	}

	s.publishSync(ctx, amqp.KindInvoice, inv.ID)
	return inv, nil
}

// CreateExpense mirrors CreateInvoice for the expense collection.
func (s *LedgerService) CreateExpense(ctx context.Context, exp core.Expense) (core.Expense, error) {
	if exp.Date.IsZero() {
		exp.Date = core.Today()
	}
	if err := exp.Validate(); err != nil {
		return core.Expense{}, err
	}
	exp.ID = uuid.NewString()

	if err := s.store.AddExpense(ctx, exp); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.publishSync(ctx, amqp.KindExpense, exp.ID)
	return exp, nil
}

// DeleteInvoice removes the record locally and publishes a delete
// event carrying its summary, since the row is gone afterwards.
func (s *LedgerService) DeleteInvoice(ctx context.Context, id string) error {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	var deleted *core.Invoice
	for i := range snap.Invoices {
		if snap.Invoices[i].ID == id {
			deleted = &snap.Invoices[i]
			break
		}
	}

	if err := s.store.DeleteInvoice(ctx, id); err != nil {
		return err
	}

	if deleted != nil {
		desc := deleted.Customer
		if desc == "" {
			desc = deleted.Description
		}
		s.publishDelete(ctx, amqp.NewRecordDeleteMessage(
			amqp.KindInvoice, id, deleted.Date.String(), desc, deleted.Total().Fils))
	}
	return nil
}

func (s *LedgerService) DeleteExpense(ctx context.Context, id string) error {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	var deleted *core.Expense
	for i := range snap.Expenses {
		if snap.Expenses[i].ID == id {
			deleted = &snap.Expenses[i]
			break
		}
	}

	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return err
	}

	if deleted != nil {
		s.publishDelete(ctx, amqp.NewRecordDeleteMessage(
			amqp.KindExpense, id, deleted.Date.String(), deleted.Category, deleted.Amount.Fils))
	}
	return nil
}

// Clear drops every record.
func (s *LedgerService) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}
	return nil
}

func (s *LedgerService) publishSync(ctx context.Context, kind, id string) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishRecordSync(ctx, kind, id); err != nil {
		// Record is saved locally; the pending sweep picks it up later.
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"kind", kind, "id", id, "error", err)
	}
}

func (s *LedgerService) publishDelete(ctx context.Context, msg *amqp.RecordDeleteMessage) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishRecordDelete(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message",
			"kind", msg.Kind, "id", msg.ID, "error", err)
	}
}

// Close releases the AMQP connection. The store is owned by the
// backend factory and closed there.
func (s *LedgerService) Close() error {
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			return fmt.Errorf("close amqp client: %w", err)
		}
	}
	return nil
}
