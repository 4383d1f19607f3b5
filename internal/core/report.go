package core

import "sort"

// Totals are the five headline figures shown above the ledger. Net
// profit is recognized on invoiced revenue, not cash collected: the
// shop runs accrual-style books, so netProfit = revenue - expenses and
// uncollected receivables do not reduce it.
type Totals struct {
	Revenue               Money `json:"revenue"`
	PaidToDate            Money `json:"paidToDate"`
	OutstandingReceivable Money `json:"outstandingReceivable"`
	TotalExpenses         Money `json:"totalExpenses"`
	NetProfit             Money `json:"netProfit"`
}

// MonthBucket is one month's summed amount for a single series.
type MonthBucket struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value Money  `json:"value"`
}

// MonthlyRow is one chart row: both series aligned on a month key.
type MonthlyRow struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Revenue Money  `json:"revenue"`
	Expense Money  `json:"expense"`
}

// ComputeTotals reduces the two collections to the headline figures.
// It is total over its inputs: empty collections yield all zeros.
func ComputeTotals(invoices []Invoice, expenses []Expense) Totals {
	var t Totals
	for _, inv := range invoices {
		t.Revenue.Fils += inv.Total().Fils
		t.PaidToDate.Fils += inv.Paid.Fils
	}
	for _, e := range expenses {
		t.TotalExpenses.Fils += e.Amount.Fils
	}
	t.OutstandingReceivable.Fils = t.Revenue.Fils - t.PaidToDate.Fils
	t.NetProfit.Fils = t.Revenue.Fils - t.TotalExpenses.Fils
	return t
}

// Selectors for GroupByMonth. The engine is agnostic to record shape;
// callers supply how to read the date and the amount.
func InvoiceDate(i Invoice) Date    { return i.Date }
func InvoiceAmount(i Invoice) Money { return i.Total() }
func ExpenseDate(e Expense) Date    { return e.Date }
func ExpenseAmount(e Expense) Money { return e.Amount }

// GroupByMonth buckets items by the calendar month of their date and
// sums the selected amount within each bucket. Buckets are emitted in
// ascending key order; records with a blank or unparseable date land in
// the empty-key bucket, which sorts first.
func GroupByMonth[T any](items []T, date func(T) Date, amount func(T) Money) []MonthBucket {
	sums := make(map[string]int64)
	for _, it := range items {
		k := date(it).MonthKey()
		sums[k] += amount(it).Fils
	}
	keys := make([]string, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	buckets := make([]MonthBucket, 0, len(keys))
	for _, k := range keys {
		buckets = append(buckets, MonthBucket{
			Key:   k,
			Label: MonthLabel(k),
			Value: Money{Fils: sums[k]},
		})
	}
	return buckets
}

// MergeMonthlySeries aligns the revenue and expense series on the union
// of their month keys, ascending. A month present in only one series
// appears with 0 on the other side; no month is dropped or duplicated.
func MergeMonthlySeries(revenue, expense []MonthBucket) []MonthlyRow {
	union := make(map[string]struct{}, len(revenue)+len(expense))
	rev := make(map[string]Money, len(revenue))
	exp := make(map[string]Money, len(expense))
	for _, b := range revenue {
		union[b.Key] = struct{}{}
		rev[b.Key] = b.Value
	}
	for _, b := range expense {
		union[b.Key] = struct{}{}
		exp[b.Key] = b.Value
	}
	keys := make([]string, 0, len(union))
	for k := range union {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([]MonthlyRow, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, MonthlyRow{
			Key:     k,
			Label:   MonthLabel(k),
			Revenue: rev[k],
			Expense: exp[k],
		})
	}
	return rows
}
