// Package worker mirrors ledger records from SQLite to the sheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"garagebook/internal/amqp"
	"garagebook/internal/core"
	"garagebook/internal/ledger"
	"garagebook/internal/sheets"
	"garagebook/internal/storage"
)

// SyncWorker consumes change events and appends the referenced records
// to the mirror sheet, marking sync state in storage as it goes. It
// implements amqp.EventHandler.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	appender  sheets.RowAppender
	marker    sheets.DeletionMarker
	batchSize int
}

var _ amqp.EventHandler = (*SyncWorker)(nil)

func NewSyncWorker(repo *storage.SQLiteRepository, appender sheets.RowAppender, marker sheets.DeletionMarker, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   repo,
		appender:  appender,
		marker:    marker,
		batchSize: batchSize,
	}
}

// HandleSync fetches the record named by the message and mirrors it.
// A record deleted before the message arrived is not an error.
func (w *SyncWorker) HandleSync(ctx context.Context, msg *amqp.RecordSyncMessage) error {
	switch msg.Kind {
	case amqp.KindInvoice:
		return w.syncInvoice(ctx, msg.ID)
	case amqp.KindExpense:
		return w.syncExpense(ctx, msg.ID)
	default:
		return fmt.Errorf("unknown record kind %q", msg.Kind)
	}
}

// HandleDelete appends a deletion marker row. The record is already
// gone from storage, so everything comes from the message.
func (w *SyncWorker) HandleDelete(ctx context.Context, msg *amqp.RecordDeleteMessage) error {
	if w.marker == nil {
		slog.WarnContext(ctx, "No deletion marker configured, skipping",
			"kind", msg.Kind, "id", msg.ID)
		return nil
	}

	ref, err := w.marker.AppendDeletion(ctx, msg.Kind, msg.ID, msg.Date, msg.Description, core.Money{Fils: msg.AmountFils})
	if err != nil {
		return fmt.Errorf("append deletion marker: %w", err)
	}

	slog.InfoContext(ctx, "Recorded deletion on sheet",
		"kind", msg.Kind, "id", msg.ID, "sheets_ref", ref)
	return nil
}

func (w *SyncWorker) syncInvoice(ctx context.Context, id string) error {
	inv, err := w.storage.GetInvoice(ctx, id)
	if errors.Is(err, ledger.ErrNotFound) {
		slog.WarnContext(ctx, "Invoice gone before sync, skipping", "id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get invoice from storage: %w", err)
	}

	ref, err := w.appender.AppendInvoice(ctx, inv)
	if err != nil {
		w.markError(ctx, storage.KindInvoice, id)
		return fmt.Errorf("append invoice to sheet: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, storage.KindInvoice, id); err != nil {
		// Sheet append worked; only the bookkeeping failed.
		slog.ErrorContext(ctx, "Failed to mark invoice synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Mirrored invoice", "id", id, "sheets_ref", ref)
	return nil
}

func (w *SyncWorker) syncExpense(ctx context.Context, id string) error {
	exp, err := w.storage.GetExpense(ctx, id)
	if errors.Is(err, ledger.ErrNotFound) {
		slog.WarnContext(ctx, "Expense gone before sync, skipping", "id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}

	ref, err := w.appender.AppendExpense(ctx, exp)
	if err != nil {
		w.markError(ctx, storage.KindExpense, id)
		return fmt.Errorf("append expense to sheet: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, storage.KindExpense, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark expense synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Mirrored expense", "id", id, "sheets_ref", ref)
	return nil
}

func (w *SyncWorker) markError(ctx context.Context, kind storage.RecordKind, id string) {
	if err := w.storage.MarkSyncError(ctx, kind, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark sync error", "kind", kind, "id", id, "error", err)
	}
}

// ProcessPending sweeps records still marked pending. Backup path for
// lost broker messages; the AMQP consumer is the primary trigger.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.PendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending records: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending records", "count", len(pending))

	for _, p := range pending {
		var syncErr error
		switch p.Kind {
		case storage.KindInvoice:
			syncErr = w.syncInvoice(ctx, p.ID)
		case storage.KindExpense:
			syncErr = w.syncExpense(ctx, p.ID)
		}
		if syncErr != nil {
			slog.ErrorContext(ctx, "Failed to sync pending record",
				"kind", p.Kind, "id", p.ID, "error", syncErr)
		}
	}
	return nil
}

// StartupSyncCheck drains a larger pending batch once at boot to
// recover from worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.PendingSync(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending records for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending records found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending records on startup, processing...",
		"count", len(pending))

	synced, failed := 0, 0
	for _, p := range pending {
		var syncErr error
		switch p.Kind {
		case storage.KindInvoice:
			syncErr = w.syncInvoice(ctx, p.ID)
		case storage.KindExpense:
			syncErr = w.syncExpense(ctx, p.ID)
		}
		if syncErr != nil {
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending), "synced", synced, "errors", failed)
	return nil
}
