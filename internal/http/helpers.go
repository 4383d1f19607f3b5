package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"garagebook/internal/core"
)

// Request bodies are capped; a ledger for one shop fits comfortably.
const maxBodyBytes = 4 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return nil, false
	}
	return body, true
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body, ok := readBody(w, r)
	if !ok {
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// sanitizeInput trims whitespace and strips control characters.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// invoiceFilterFromQuery reads the filter axes off the query string.
// Blank or unparseable dates mean an unset bound.
func invoiceFilterFromQuery(r *http.Request) core.InvoiceFilter {
	q := r.URL.Query()
	return core.InvoiceFilter{
		Query:    sanitizeInput(q.Get("q")),
		From:     core.ParseDate(q.Get("from")),
		To:       core.ParseDate(q.Get("to")),
		Category: core.ServiceCategory(strings.TrimSpace(q.Get("category"))),
	}
}

func expenseFilterFromQuery(r *http.Request) core.ExpenseFilter {
	q := r.URL.Query()
	return core.ExpenseFilter{
		Query: sanitizeInput(q.Get("q")),
		From:  core.ParseDate(q.Get("from")),
		To:    core.ParseDate(q.Get("to")),
	}
}
