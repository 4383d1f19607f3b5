package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"garagebook/internal/core"
	"garagebook/internal/ledger"
	"garagebook/internal/ledger/memory"
	"garagebook/internal/services"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	svc := services.NewLedgerService(memory.New(), nil)
	s := NewServer("127.0.0.1:0", svc)
	t.Cleanup(func() { _ = s.Shutdown(t.Context()) })
	return s
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	if rec := doRequest(s, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}
	if rec := doRequest(s, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("readyz = %d", rec.Code)
	}
}

func TestCreateInvoiceAndListLedger(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/invoices",
		`{"customer":"Ahmad","date":"2025-03-10","serviceCategory":"oil_change","serviceCost":"25","paid":25,"method":"cash"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d body=%s", rec.Code, rec.Body)
	}
	var created core.Invoice
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.ID == "" || created.ServiceCost.Fils != 25000 {
		t.Fatalf("created = %+v", created)
	}

	rec = doRequest(s, http.MethodGet, "/api/ledger", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get ledger = %d", rec.Code)
	}
	var snap struct {
		Invoices []core.Invoice `json:"invoices"`
		Expenses []core.Expense `json:"expenses"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode ledger: %v", err)
	}
	if len(snap.Invoices) != 1 || snap.Invoices[0].ID != created.ID {
		t.Fatalf("ledger = %+v", snap)
	}
	if snap.Expenses == nil {
		t.Error("expenses should encode as [], not null")
	}
}

func TestCreateInvoiceValidation(t *testing.T) {
	s := newTestServer(t)

	// Neither customer nor description.
	rec := doRequest(s, http.MethodPost, "/api/invoices", `{"serviceCost":"10"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("create = %d body=%s", rec.Code, rec.Body)
	}

	// Blank money fields coerce to zero instead of failing.
	rec = doRequest(s, http.MethodPost, "/api/invoices",
		`{"customer":"Layla","serviceCost":"","partsCost":null,"paid":"garbage"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("tolerant create = %d body=%s", rec.Code, rec.Body)
	}
	var created core.Invoice
	_ = json.Unmarshal(rec.Body.Bytes(), &created)
	if created.ServiceCost.Fils != 0 || created.PartsCost.Fils != 0 || created.Paid.Fils != 0 {
		t.Fatalf("coerced amounts = %+v", created)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/expenses", `{"category":"rent","amount":"300"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d body=%s", rec.Code, rec.Body)
	}

	rec = doRequest(s, http.MethodPost, "/api/expenses", `{"category":"","amount":"300"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty category = %d", rec.Code)
	}

	rec = doRequest(s, http.MethodPost, "/api/expenses", `{"category":"rent","amount":""}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("zero amount = %d", rec.Code)
	}
}

func TestDeleteRecord(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/expenses", `{"category":"rent","amount":"300"}`)
	var created core.Expense
	_ = json.Unmarshal(rec.Body.Bytes(), &created)

	if rec := doRequest(s, http.MethodDelete, "/api/expenses/"+created.ID, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rec.Code)
	}
	if rec := doRequest(s, http.MethodDelete, "/api/expenses/"+created.ID, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete = %d", rec.Code)
	}
	if rec := doRequest(s, http.MethodDelete, "/api/invoices/nope", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("delete missing invoice = %d", rec.Code)
	}
}

func TestTotalsReflectMutations(t *testing.T) {
	s := newTestServer(t)

	_ = doRequest(s, http.MethodPost, "/api/invoices",
		`{"customer":"A","serviceCost":"100","partsCost":"50","paid":"80"}`)
	_ = doRequest(s, http.MethodPost, "/api/expenses", `{"category":"rent","amount":"80"}`)

	rec := doRequest(s, http.MethodGet, "/api/totals", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("totals = %d", rec.Code)
	}
	var totals core.Totals
	if err := json.Unmarshal(rec.Body.Bytes(), &totals); err != nil {
		t.Fatalf("decode totals: %v", err)
	}
	if totals.Revenue.Fils != 150000 || totals.PaidToDate.Fils != 80000 ||
		totals.OutstandingReceivable.Fils != 70000 || totals.TotalExpenses.Fils != 80000 ||
		totals.NetProfit.Fils != 70000 {
		t.Fatalf("totals = %+v", totals)
	}

	// Another mutation must invalidate the cached figures.
	_ = doRequest(s, http.MethodPost, "/api/expenses", `{"category":"tools","amount":"20"}`)
	rec = doRequest(s, http.MethodGet, "/api/totals", "")
	_ = json.Unmarshal(rec.Body.Bytes(), &totals)
	if totals.TotalExpenses.Fils != 100000 || totals.NetProfit.Fils != 50000 {
		t.Fatalf("totals after second expense = %+v", totals)
	}
}

func TestApplySnapshotInvalidatesReports(t *testing.T) {
	s := newTestServer(t)

	// Prime the totals cache with the empty ledger.
	rec := doRequest(s, http.MethodGet, "/api/totals", "")
	var totals core.Totals
	_ = json.Unmarshal(rec.Body.Bytes(), &totals)
	if totals.Revenue.Fils != 0 {
		t.Fatalf("initial revenue = %d", totals.Revenue.Fils)
	}

	// A snapshot applied outside the request path, as the remote
	// refresher does, must drop the cached figures too.
	err := s.ApplySnapshot(t.Context(), ledger.Snapshot{
		Invoices: []core.Invoice{{
			ID:          "r1",
			Customer:    "Ahmad",
			ServiceCost: core.Money{Fils: 150000},
		}},
	})
	if err != nil {
		t.Fatalf("ApplySnapshot: %v", err)
	}

	rec = doRequest(s, http.MethodGet, "/api/totals", "")
	_ = json.Unmarshal(rec.Body.Bytes(), &totals)
	if totals.Revenue.Fils != 150000 {
		t.Fatalf("revenue after applied snapshot = %d, want 150000", totals.Revenue.Fils)
	}
}

func TestMonthlyReport(t *testing.T) {
	s := newTestServer(t)

	_ = doRequest(s, http.MethodPost, "/api/invoices",
		`{"customer":"A","date":"2025-01-15","serviceCost":"100"}`)
	_ = doRequest(s, http.MethodPost, "/api/invoices",
		`{"customer":"B","date":"2025-02-02","serviceCost":"40"}`)
	_ = doRequest(s, http.MethodPost, "/api/expenses",
		`{"category":"rent","date":"2025-02-01","amount":"30"}`)

	rec := doRequest(s, http.MethodGet, "/api/report/monthly", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("report = %d", rec.Code)
	}
	var rows []core.MonthlyRow
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(rows) != 2 || rows[0].Key != "2025-01" || rows[1].Key != "2025-02" {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].Revenue.Fils != 100000 || rows[0].Expense.Fils != 0 {
		t.Fatalf("january = %+v", rows[0])
	}
	if rows[1].Revenue.Fils != 40000 || rows[1].Expense.Fils != 30000 {
		t.Fatalf("february = %+v", rows[1])
	}
}

func TestFilteredInvoiceListWithSubtotals(t *testing.T) {
	s := newTestServer(t)

	_ = doRequest(s, http.MethodPost, "/api/invoices",
		`{"customer":"Ahmad","date":"2025-03-01","serviceCategory":"oil_change","serviceCost":"100","paid":"20"}`)
	_ = doRequest(s, http.MethodPost, "/api/invoices",
		`{"customer":"Ahmad","date":"2025-03-05","serviceCategory":"brake_system","serviceCost":"15","paid":"10"}`)
	_ = doRequest(s, http.MethodPost, "/api/invoices",
		`{"customer":"Layla","date":"2025-04-01","serviceCategory":"oil_change","serviceCost":"50","paid":"50"}`)

	rec := doRequest(s, http.MethodGet, "/api/invoices?q=Ahmad&from=2025-03-01&to=2025-03-31", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list = %d", rec.Code)
	}
	var resp struct {
		Invoices  []core.Invoice `json:"invoices"`
		Subtotals struct {
			Total core.Money `json:"total"`
			Paid  core.Money `json:"paid"`
		} `json:"subtotals"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(resp.Invoices) != 2 {
		t.Fatalf("invoices = %+v", resp.Invoices)
	}
	if resp.Subtotals.Total.Fils != 115000 || resp.Subtotals.Paid.Fils != 30000 {
		t.Fatalf("subtotals = %+v", resp.Subtotals)
	}

	rec = doRequest(s, http.MethodGet, "/api/invoices?category=oil_change", "")
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Invoices) != 2 {
		t.Fatalf("category filter = %+v", resp.Invoices)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	s := newTestServer(t)

	_ = doRequest(s, http.MethodPost, "/api/invoices", `{"customer":"Ahmad","serviceCost":"25"}`)
	_ = doRequest(s, http.MethodPost, "/api/expenses", `{"category":"rent","amount":"300"}`)

	rec := doRequest(s, http.MethodGet, "/api/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export = %d", rec.Code)
	}
	disposition := rec.Header().Get("Content-Disposition")
	if !strings.Contains(disposition, "garage-data-") || !strings.Contains(disposition, ".json") {
		t.Errorf("disposition = %q", disposition)
	}
	exported := rec.Body.String()

	// Wipe and re-import the exported document.
	if rec := doRequest(s, http.MethodPost, "/api/clear", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("clear = %d", rec.Code)
	}
	rec = doRequest(s, http.MethodPost, "/api/import", exported)
	if rec.Code != http.StatusOK {
		t.Fatalf("import = %d body=%s", rec.Code, rec.Body)
	}

	rec = doRequest(s, http.MethodGet, "/api/ledger", "")
	var snap struct {
		Invoices []core.Invoice `json:"invoices"`
		Expenses []core.Expense `json:"expenses"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &snap)
	if len(snap.Invoices) != 1 || len(snap.Expenses) != 1 {
		t.Fatalf("round trip = %+v", snap)
	}
}

func TestImportIsPerFieldTolerant(t *testing.T) {
	s := newTestServer(t)

	_ = doRequest(s, http.MethodPost, "/api/expenses", `{"category":"rent","amount":"300"}`)

	// Valid invoices alongside a malformed expenses field: invoices
	// import, prior expenses survive.
	rec := doRequest(s, http.MethodPost, "/api/import",
		`{"invoices":[{"id":"i1","customer":"Ahmad","serviceCost":"25"}],"expenses":"not an array"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("import = %d body=%s", rec.Code, rec.Body)
	}
	var result map[string]bool
	_ = json.Unmarshal(rec.Body.Bytes(), &result)
	if !result["invoicesImported"] || result["expensesImported"] {
		t.Fatalf("result = %v", result)
	}

	rec = doRequest(s, http.MethodGet, "/api/ledger", "")
	var snap struct {
		Invoices []core.Invoice `json:"invoices"`
		Expenses []core.Expense `json:"expenses"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &snap)
	if len(snap.Invoices) != 1 || snap.Invoices[0].ID != "i1" {
		t.Fatalf("invoices = %+v", snap.Invoices)
	}
	if len(snap.Expenses) != 1 || snap.Expenses[0].Category != "rent" {
		t.Fatalf("expenses = %+v", snap.Expenses)
	}

	// A document that is not an object at all is rejected outright.
	if rec := doRequest(s, http.MethodPost, "/api/import", `[1,2,3]`); rec.Code != http.StatusBadRequest {
		t.Fatalf("non-object import = %d", rec.Code)
	}

	// An explicit null field is rejected for that field; it must not
	// wipe the prior records.
	rec = doRequest(s, http.MethodPost, "/api/import", `{"invoices": null, "expenses": null}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("null-field import = %d", rec.Code)
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &result)
	if result["invoicesImported"] || result["expensesImported"] {
		t.Fatalf("null fields should import nothing: %v", result)
	}
	rec = doRequest(s, http.MethodGet, "/api/ledger", "")
	_ = json.Unmarshal(rec.Body.Bytes(), &snap)
	if len(snap.Invoices) != 1 || len(snap.Expenses) != 1 {
		t.Fatalf("ledger after null-field import = %+v", snap)
	}
}

func TestPutLedgerReplacesCollections(t *testing.T) {
	s := newTestServer(t)

	_ = doRequest(s, http.MethodPost, "/api/invoices", `{"customer":"Old","serviceCost":"10"}`)

	rec := doRequest(s, http.MethodPut, "/api/ledger",
		`{"invoices":[{"id":"n1","customer":"New","serviceCost":"99"}],"expenses":[]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put = %d body=%s", rec.Code, rec.Body)
	}

	rec = doRequest(s, http.MethodGet, "/api/ledger", "")
	var snap struct {
		Invoices []core.Invoice `json:"invoices"`
		Expenses []core.Expense `json:"expenses"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &snap)
	if len(snap.Invoices) != 1 || snap.Invoices[0].ID != "n1" {
		t.Fatalf("invoices = %+v", snap.Invoices)
	}
	if len(snap.Expenses) != 0 {
		t.Fatalf("expenses = %+v", snap.Expenses)
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/ledger", "")
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}

func TestMutationRateLimit(t *testing.T) {
	s := newTestServer(t)

	var last int
	for i := 0; i < 70; i++ {
		rec := doRequest(s, http.MethodPost, "/api/expenses",
			fmt.Sprintf(`{"category":"c%d","amount":"1"}`, i))
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("status after 70 mutations = %d, want 429", last)
	}

	// Reads are never throttled.
	if rec := doRequest(s, http.MethodGet, "/api/ledger", ""); rec.Code != http.StatusOK {
		t.Fatalf("read while throttled = %d", rec.Code)
	}
}
