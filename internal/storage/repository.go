// Package storage is the SQLite ledger backend. It implements the
// write-all/read-all store contract on top of two tables and carries
// the sync bookkeeping the mirror worker needs.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"garagebook/internal/core"
	"garagebook/internal/ledger"

	_ "modernc.org/sqlite"
)

// RecordKind distinguishes the two collections in sync bookkeeping.
type RecordKind string

const (
	KindInvoice RecordKind = "invoice"
	KindExpense RecordKind = "expense"
)

// SyncStatus values for the sync_status columns.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

// PendingRecord identifies a record awaiting mirror sync.
type PendingRecord struct {
	Kind RecordKind
	ID   string
}

type SQLiteRepository struct {
	db *sql.DB
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load implements ledger.SnapshotReader. Records come back in seq
// order, which preserves newest-first insertion.
func (r *SQLiteRepository) Load(ctx context.Context) (ledger.Snapshot, error) {
	var snap ledger.Snapshot

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, invoice_date, customer, phone, description,
		       service_category, service_fils, parts_fils, paid_fils, method
		FROM invoices ORDER BY seq ASC`)
	if err != nil {
		return snap, fmt.Errorf("query invoices: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var inv core.Invoice
		var date, category, method string
		if err := rows.Scan(&inv.ID, &date, &inv.Customer, &inv.Phone, &inv.Description,
			&category, &inv.ServiceCost.Fils, &inv.PartsCost.Fils, &inv.Paid.Fils, &method); err != nil {
			return snap, fmt.Errorf("scan invoice: %w", err)
		}
		inv.Date = core.ParseDate(date)
		inv.ServiceCategory = core.ServiceCategory(category)
		inv.Method = core.PaymentMethod(method)
		snap.Invoices = append(snap.Invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("iterate invoices: %w", err)
	}

	erows, err := r.db.QueryContext(ctx, `
		SELECT id, expense_date, category, amount_fils, notes
		FROM expenses ORDER BY seq ASC`)
	if err != nil {
		return snap, fmt.Errorf("query expenses: %w", err)
	}
	defer erows.Close()
	for erows.Next() {
		var exp core.Expense
		var date string
		if err := erows.Scan(&exp.ID, &date, &exp.Category, &exp.Amount.Fils, &exp.Notes); err != nil {
			return snap, fmt.Errorf("scan expense: %w", err)
		}
		exp.Date = core.ParseDate(date)
		snap.Expenses = append(snap.Expenses, exp)
	}
	if err := erows.Err(); err != nil {
		return snap, fmt.Errorf("iterate expenses: %w", err)
	}

	return snap, nil
}

// Save implements ledger.SnapshotWriter: both tables are replaced in a
// single transaction. Last writer wins; the contract has no
// compare-and-swap.
func (r *SQLiteRepository) Save(ctx context.Context, snap ledger.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM invoices`); err != nil {
		return fmt.Errorf("clear invoices: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM expenses`); err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}

	for i, inv := range snap.Invoices {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO invoices (id, invoice_date, customer, phone, description,
				service_category, service_fils, parts_fils, paid_fils, method, seq, sync_status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			inv.ID, inv.Date.String(), inv.Customer, inv.Phone, inv.Description,
			string(inv.ServiceCategory), inv.ServiceCost.Fils, inv.PartsCost.Fils,
			inv.Paid.Fils, string(inv.Method), i, SyncPending); err != nil {
			return fmt.Errorf("insert invoice %s: %w", inv.ID, err)
		}
	}
	for i, exp := range snap.Expenses {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO expenses (id, expense_date, category, amount_fils, notes, seq, sync_status)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			exp.ID, exp.Date.String(), exp.Category, exp.Amount.Fils, exp.Notes,
			i, SyncPending); err != nil {
			return fmt.Errorf("insert expense %s: %w", exp.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// AddInvoice implements ledger.RecordWriter; the new row takes a seq
// below the current minimum so it sorts first.
func (r *SQLiteRepository) AddInvoice(ctx context.Context, inv core.Invoice) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO invoices (id, invoice_date, customer, phone, description,
			service_category, service_fils, parts_fils, paid_fils, method, seq, sync_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MIN(seq), 1) - 1 FROM invoices), ?)`,
		inv.ID, inv.Date.String(), inv.Customer, inv.Phone, inv.Description,
		string(inv.ServiceCategory), inv.ServiceCost.Fils, inv.PartsCost.Fils,
		inv.Paid.Fils, string(inv.Method), SyncPending)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) AddExpense(ctx context.Context, exp core.Expense) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (id, expense_date, category, amount_fils, notes, seq, sync_status)
		VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MIN(seq), 1) - 1 FROM expenses), ?)`,
		exp.ID, exp.Date.String(), exp.Category, exp.Amount.Fils, exp.Notes, SyncPending)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteInvoice(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "invoices", id)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "expenses", id)
}

func (r *SQLiteRepository) deleteByID(ctx context.Context, table, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM invoices`); err != nil {
		return fmt.Errorf("clear invoices: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM expenses`); err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear: %w", err)
	}
	return nil
}

// GetInvoice fetches one invoice for the mirror worker.
func (r *SQLiteRepository) GetInvoice(ctx context.Context, id string) (core.Invoice, error) {
	var inv core.Invoice
	var date, category, method string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, invoice_date, customer, phone, description,
		       service_category, service_fils, parts_fils, paid_fils, method
		FROM invoices WHERE id = ?`, id).
		Scan(&inv.ID, &date, &inv.Customer, &inv.Phone, &inv.Description,
			&category, &inv.ServiceCost.Fils, &inv.PartsCost.Fils, &inv.Paid.Fils, &method)
	if errors.Is(err, sql.ErrNoRows) {
		return inv, ledger.ErrNotFound
	}
	if err != nil {
		return inv, fmt.Errorf("get invoice: %w", err)
	}
	inv.Date = core.ParseDate(date)
	inv.ServiceCategory = core.ServiceCategory(category)
	inv.Method = core.PaymentMethod(method)
	return inv, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	var exp core.Expense
	var date string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, expense_date, category, amount_fils, notes
		FROM expenses WHERE id = ?`, id).
		Scan(&exp.ID, &date, &exp.Category, &exp.Amount.Fils, &exp.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return exp, ledger.ErrNotFound
	}
	if err != nil {
		return exp, fmt.Errorf("get expense: %w", err)
	}
	exp.Date = core.ParseDate(date)
	return exp, nil
}

// PendingSync returns up to limit records that still need mirroring,
// oldest first.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]PendingRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT kind, id FROM (
			SELECT 'invoice' AS kind, id, created_at FROM invoices WHERE sync_status = ?
			UNION ALL
			SELECT 'expense' AS kind, id, created_at FROM expenses WHERE sync_status = ?
		) ORDER BY created_at ASC LIMIT ?`, SyncPending, SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending records: %w", err)
	}
	defer rows.Close()

	var out []PendingRecord
	for rows.Next() {
		var p PendingRecord
		var kind string
		if err := rows.Scan(&kind, &p.ID); err != nil {
			return nil, fmt.Errorf("scan pending record: %w", err)
		}
		p.Kind = RecordKind(kind)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending records: %w", err)
	}
	return out, nil
}

// MarkSynced records a successful mirror append.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, kind RecordKind, id string) error {
	return r.setSyncStatus(ctx, kind, id, SyncDone)
}

// MarkSyncError flags a record whose mirror append failed; the sweep
// does not retry errored records automatically.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, kind RecordKind, id string) error {
	return r.setSyncStatus(ctx, kind, id, SyncError)
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, kind RecordKind, id, status string) error {
	table := "invoices"
	if kind == KindExpense {
		table = "expenses"
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE `+table+` SET sync_status = ? WHERE id = ?`, status, id); err != nil {
		return fmt.Errorf("update sync status: %w", err)
	}
	return nil
}
