package ledger

import (
	"encoding/json"
	"fmt"

	"garagebook/internal/core"
)

// ImportResult reports which fields of an imported document were
// accepted. Import is per-field tolerant: a valid invoices array next
// to a malformed expenses field imports the invoices and leaves the
// prior expenses untouched.
type ImportResult struct {
	Invoices bool
	Expenses bool
}

// EncodeDocument serializes the snapshot as the export artifact:
// pretty-printed JSON, round-trippable through DecodeDocument.
func EncodeDocument(snap Snapshot) ([]byte, error) {
	if snap.Invoices == nil {
		snap.Invoices = []core.Invoice{}
	}
	if snap.Expenses == nil {
		snap.Expenses = []core.Expense{}
	}
	return json.MarshalIndent(snap, "", "  ")
}

// DecodeDocument parses a ledger document field by field. The returned
// snapshot carries only the fields that decoded; ImportResult says
// which ones. Only a document that is not a JSON object at all is an
// error.
func DecodeDocument(data []byte) (Snapshot, ImportResult, error) {
	var raw struct {
		Invoices json.RawMessage `json:"invoices"`
		Expenses json.RawMessage `json:"expenses"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Snapshot{}, ImportResult{}, fmt.Errorf("parse ledger document: %w", err)
	}

	var snap Snapshot
	var res ImportResult
	if isArrayField(raw.Invoices) {
		if err := json.Unmarshal(raw.Invoices, &snap.Invoices); err == nil {
			res.Invoices = true
		}
	}
	if isArrayField(raw.Expenses) {
		if err := json.Unmarshal(raw.Expenses, &snap.Expenses); err == nil {
			res.Expenses = true
		}
	}
	return snap, res, nil
}

// isArrayField reports whether the raw value can be an ordered
// sequence. Absent fields and explicit null are both rejected; null
// would otherwise unmarshal cleanly into a nil slice and wipe records
// the caller meant to keep.
func isArrayField(raw json.RawMessage) bool {
	return len(raw) > 0 && raw[0] == '['
}
