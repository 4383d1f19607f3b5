package core

import "strings"

// InvoiceFilter narrows the invoice table. An empty criterion means
// "no filter on that axis" and always matches; this is the documented
// semantics of an unset field, not an error state.
type InvoiceFilter struct {
	Query    string
	From     Date
	To       Date
	Category ServiceCategory
}

// ExpenseFilter is the same shape without the category-exact axis.
type ExpenseFilter struct {
	Query string
	From  Date
	To    Date
}

func (f InvoiceFilter) Match(inv Invoice) bool {
	if f.Query != "" &&
		!strings.Contains(inv.Customer, f.Query) &&
		!strings.Contains(inv.Description, f.Query) &&
		!strings.Contains(inv.Phone, f.Query) {
		return false
	}
	if f.Category != "" && inv.ServiceCategory != f.Category {
		return false
	}
	return matchDateRange(inv.Date, f.From, f.To)
}

func (f ExpenseFilter) Match(e Expense) bool {
	if f.Query != "" &&
		!strings.Contains(e.Category, f.Query) &&
		!strings.Contains(e.Notes, f.Query) {
		return false
	}
	return matchDateRange(e.Date, f.From, f.To)
}

// matchDateRange checks an inclusive calendar-date range. A record
// dated exactly on either bound is included; a record with no parseable
// date matches no bounded range.
func matchDateRange(d, from, to Date) bool {
	if from.IsZero() && to.IsZero() {
		return true
	}
	if d.IsZero() {
		return false
	}
	if !from.IsZero() && d.Before(from) {
		return false
	}
	if !to.IsZero() && d.After(to) {
		return false
	}
	return true
}

// FilterInvoices returns the subsequence matching all supplied
// criteria, preserving order.
func FilterInvoices(items []Invoice, f InvoiceFilter) []Invoice {
	out := make([]Invoice, 0, len(items))
	for _, inv := range items {
		if f.Match(inv) {
			out = append(out, inv)
		}
	}
	return out
}

func FilterExpenses(items []Expense, f ExpenseFilter) []Expense {
	out := make([]Expense, 0, len(items))
	for _, e := range items {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// InvoiceSubtotals sums total and paid over a (typically filtered)
// subsequence. The table footer must show these, never the unfiltered
// totals, while a filter is active.
func InvoiceSubtotals(items []Invoice) (total, paid Money) {
	for _, inv := range items {
		total.Fils += inv.Total().Fils
		paid.Fils += inv.Paid.Fils
	}
	return total, paid
}

func ExpenseSubtotal(items []Expense) Money {
	var sum Money
	for _, e := range items {
		sum.Fils += e.Amount.Fils
	}
	return sum
}
