package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"garagebook/internal/core"
	"garagebook/internal/ledger"
	"garagebook/internal/log"
)

func (s *Server) handleGetLedger(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Snapshot(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Snapshot load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load ledger")
		return
	}
	if snap.Invoices == nil {
		snap.Invoices = []core.Invoice{}
	}
	if snap.Expenses == nil {
		snap.Expenses = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, snap)
}

// handlePutLedger replaces the ledger with per-field tolerance: a field
// that fails to decode keeps its prior records instead of failing the
// whole request.
func (s *Server) handlePutLedger(w http.ResponseWriter, r *http.Request) {
	s.applyDocument(w, r)
}

// handleImport shares the PUT semantics; it exists as a separate route
// for the file-upload path.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	s.applyDocument(w, r)
}

func (s *Server) applyDocument(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	incoming, result, err := ledger.DecodeDocument(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "document is not a JSON object")
		return
	}

	current, err := s.svc.Snapshot(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Snapshot load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load ledger")
		return
	}

	next := current
	if result.Invoices {
		next.Invoices = incoming.Invoices
	}
	if result.Expenses {
		next.Expenses = incoming.Expenses
	}

	if err := s.svc.ReplaceSnapshot(r.Context(), next); err != nil {
		slog.ErrorContext(r.Context(), "Snapshot save failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save ledger")
		return
	}
	s.invalidateReports()

	slog.InfoContext(r.Context(), "Ledger document applied",
		"invoices_imported", result.Invoices,
		"expenses_imported", result.Expenses)

	writeJSON(w, http.StatusOK, map[string]bool{
		"invoicesImported": result.Invoices,
		"expensesImported": result.Expenses,
	})
}

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Snapshot(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Snapshot load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load ledger")
		return
	}

	filtered := core.FilterInvoices(snap.Invoices, invoiceFilterFromQuery(r))
	total, paid := core.InvoiceSubtotals(filtered)

	writeJSON(w, http.StatusOK, struct {
		Invoices  []core.Invoice `json:"invoices"`
		Subtotals struct {
			Total core.Money `json:"total"`
			Paid  core.Money `json:"paid"`
		} `json:"subtotals"`
	}{
		Invoices: filtered,
		Subtotals: struct {
			Total core.Money `json:"total"`
			Paid  core.Money `json:"paid"`
		}{Total: total, Paid: paid},
	})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Snapshot(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Snapshot load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load ledger")
		return
	}

	filtered := core.FilterExpenses(snap.Expenses, expenseFilterFromQuery(r))

	writeJSON(w, http.StatusOK, struct {
		Expenses []core.Expense `json:"expenses"`
		Subtotal core.Money     `json:"subtotal"`
	}{
		Expenses: filtered,
		Subtotal: core.ExpenseSubtotal(filtered),
	})
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var inv core.Invoice
	if !decodeJSONBody(w, r, &inv) {
		return
	}
	inv.Customer = sanitizeInput(inv.Customer)
	inv.Phone = sanitizeInput(inv.Phone)
	inv.Description = sanitizeInput(inv.Description)

	created, err := s.svc.CreateInvoice(r.Context(), inv)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.httpLog.LogRecordWritten(r.Context(), "invoice", created.ID, created.Total().Fils)
	s.invalidateReports()
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var exp core.Expense
	if !decodeJSONBody(w, r, &exp) {
		return
	}
	exp.Category = sanitizeInput(exp.Category)
	exp.Notes = sanitizeInput(exp.Notes)

	created, err := s.svc.CreateExpense(r.Context(), exp)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.httpLog.LogRecordWritten(r.Context(), "expense", created.ID, created.Amount.Fils)
	s.invalidateReports()
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	s.deleteRecord(w, r, s.svc.DeleteInvoice)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	s.deleteRecord(w, r, s.svc.DeleteExpense)
}

func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request, del func(ctx context.Context, id string) error) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing record id")
		return
	}
	if err := del(r.Context(), id); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		s.httpLog.LogError(r.Context(), "Delete failed", err, log.ComponentLedger, log.OpDelete,
			log.NewFields().WithRequestID(requestIDFromContext(r.Context())))
		writeError(w, http.StatusInternalServerError, "failed to delete record")
		return
	}
	s.invalidateReports()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	if totals, found := s.totalsCache.Get(totalsCacheKey); found {
		writeJSON(w, http.StatusOK, totals)
		return
	}

	snap, err := s.svc.Snapshot(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Snapshot load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load ledger")
		return
	}

	totals := core.ComputeTotals(snap.Invoices, snap.Expenses)
	s.totalsCache.Set(totalsCacheKey, totals)
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	if rows, found := s.monthlyCache.Get(monthlyCacheKey); found {
		writeJSON(w, http.StatusOK, rows)
		return
	}

	snap, err := s.svc.Snapshot(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Snapshot load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load ledger")
		return
	}

	revenue := core.GroupByMonth(snap.Invoices, core.InvoiceDate, core.InvoiceAmount)
	expense := core.GroupByMonth(snap.Expenses, core.ExpenseDate, core.ExpenseAmount)
	rows := core.MergeMonthlySeries(revenue, expense)

	s.monthlyCache.Set(monthlyCacheKey, rows)
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Snapshot(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Snapshot load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load ledger")
		return
	}

	doc, err := ledger.EncodeDocument(snap)
	if err != nil {
		slog.ErrorContext(r.Context(), "Document encode failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to encode ledger")
		return
	}

	filename := fmt.Sprintf("garage-data-%s.json", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Clear(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Clear failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear ledger")
		return
	}
	s.invalidateReports()
	w.WriteHeader(http.StatusNoContent)
}
