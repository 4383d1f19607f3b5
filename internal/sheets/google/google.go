// Package google mirrors ledger records to a Google Sheets
// spreadsheet using a service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"garagebook/internal/core"
	ports "garagebook/internal/sheets"
)

type Client struct {
	svc            *gsheet.Service
	spreadsheetID  string
	invoicesSheet  string
	expensesSheet  string
	deletionsSheet string
}

var (
	_ ports.RowAppender    = (*Client)(nil)
	_ ports.DeletionMarker = (*Client)(nil)
)

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID plus service account credentials in
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional sheet base names: GOOGLE_INVOICES_SHEET_NAME (default
// "Invoices"), GOOGLE_EXPENSES_SHEET_NAME (default "Expenses"),
// GOOGLE_DELETIONS_SHEET_NAME (default "Deletions"). The current year
// is prefixed to each name.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	invoicesBase := strings.TrimSpace(os.Getenv("GOOGLE_INVOICES_SHEET_NAME"))
	if invoicesBase == "" {
		invoicesBase = "Invoices"
	}
	expensesBase := strings.TrimSpace(os.Getenv("GOOGLE_EXPENSES_SHEET_NAME"))
	if expensesBase == "" {
		expensesBase = "Expenses"
	}
	deletionsBase := strings.TrimSpace(os.Getenv("GOOGLE_DELETIONS_SHEET_NAME"))
	if deletionsBase == "" {
		deletionsBase = "Deletions"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	currentYear := time.Now().Year()
	return &Client{
		svc:            svc,
		spreadsheetID:  spreadsheetID,
		invoicesSheet:  yearPrefixedName(invoicesBase, currentYear),
		expensesSheet:  yearPrefixedName(expensesBase, currentYear),
		deletionsSheet: yearPrefixedName(deletionsBase, currentYear),
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// AppendInvoice writes one invoice row:
// Date, Customer, Phone, Description, Category, Service, Parts, Total, Paid, Balance, Method, ID.
func (c *Client) AppendInvoice(ctx context.Context, inv core.Invoice) (string, error) {
	row := []any{
		inv.Date.String(),
		inv.Customer,
		inv.Phone,
		inv.Description,
		string(inv.ServiceCategory),
		inv.ServiceCost.Dinars(),
		inv.PartsCost.Dinars(),
		inv.Total().Dinars(),
		inv.Paid.Dinars(),
		inv.Balance().Dinars(),
		string(inv.Method),
		inv.ID,
	}
	return c.appendRow(ctx, c.invoicesSheet, row)
}

// AppendExpense writes one expense row:
// Date, Category, Amount, Notes, ID.
func (c *Client) AppendExpense(ctx context.Context, exp core.Expense) (string, error) {
	row := []any{
		exp.Date.String(),
		exp.Category,
		exp.Amount.Dinars(),
		exp.Notes,
		exp.ID,
	}
	return c.appendRow(ctx, c.expensesSheet, row)
}

// AppendDeletion records a removed record on the deletions sheet.
func (c *Client) AppendDeletion(ctx context.Context, kind, id, date, description string, amount core.Money) (string, error) {
	row := []any{
		time.Now().Format("2006-01-02"),
		kind,
		id,
		date,
		description,
		amount.Dinars(),
	}
	return c.appendRow(ctx, c.deletionsSheet, row)
}

func (c *Client) appendRow(ctx context.Context, sheetName string, row []any) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:A", sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheetName, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return sheetName, nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts
// with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
