package ledger

import (
	"reflect"
	"testing"

	"garagebook/internal/core"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		Invoices: []core.Invoice{{
			ID:              "inv-1",
			Date:            core.ParseDate("2024-01-15"),
			Customer:        "Ahmad",
			Phone:           "0790000001",
			Description:     "oil change",
			ServiceCategory: core.OilChange,
			ServiceCost:     core.Money{Fils: 40000},
			PartsCost:       core.Money{Fils: 10000},
			Paid:            core.Money{Fils: 50000},
			Method:          core.Cash,
		}},
		Expenses: []core.Expense{{
			ID:       "exp-1",
			Date:     core.ParseDate("2024-01-20"),
			Category: "rent",
			Amount:   core.Money{Fils: 30000},
			Notes:    "january",
		}},
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	snap := sampleSnapshot()
	data, err := EncodeDocument(snap)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, res, err := DecodeDocument(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Invoices || !res.Expenses {
		t.Fatalf("round trip did not import both fields: %+v", res)
	}
	if !reflect.DeepEqual(got, snap) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, snap)
	}

	// Encoding the decoded snapshot again must reproduce the bytes.
	again, err := EncodeDocument(got)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if string(again) != string(data) {
		t.Fatalf("export is not byte-stable through import")
	}
}

func TestDecodeDocumentPartial(t *testing.T) {
	// A malformed expenses field rejects that field alone.
	doc := []byte(`{"invoices": [{"id": "i1", "customer": "Sami"}], "expenses": "oops"}`)
	snap, res, err := DecodeDocument(doc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Invoices || res.Expenses {
		t.Fatalf("result = %+v, want invoices only", res)
	}
	if len(snap.Invoices) != 1 || snap.Invoices[0].ID != "i1" {
		t.Fatalf("invoices = %+v", snap.Invoices)
	}
	if snap.Expenses != nil {
		t.Fatalf("rejected field should stay empty, got %+v", snap.Expenses)
	}
}

func TestDecodeDocumentRejectsNullField(t *testing.T) {
	// null is not an ordered sequence; accepting it would replace the
	// caller's prior records with nothing.
	doc := []byte(`{"invoices": null, "expenses": [{"id": "e1", "category": "rent", "amount": "5"}]}`)
	snap, res, err := DecodeDocument(doc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Invoices {
		t.Fatal("null invoices field must be rejected, not imported")
	}
	if !res.Expenses || len(snap.Expenses) != 1 {
		t.Fatalf("expenses should still import: %+v %+v", res, snap.Expenses)
	}

	// Same for a non-array scalar.
	_, res, err = DecodeDocument([]byte(`{"invoices": 42}`))
	if err != nil || res.Invoices {
		t.Fatalf("scalar invoices field: err=%v res=%+v", err, res)
	}
}

func TestDecodeDocumentMissingFields(t *testing.T) {
	snap, res, err := DecodeDocument([]byte(`{}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Invoices || res.Expenses {
		t.Fatalf("missing fields should not import: %+v", res)
	}
	if len(snap.Invoices) != 0 || len(snap.Expenses) != 0 {
		t.Fatalf("snapshot should be empty: %+v", snap)
	}
}

func TestDecodeDocumentNotAnObject(t *testing.T) {
	if _, _, err := DecodeDocument([]byte(`[1,2,3]`)); err == nil {
		t.Fatal("expected error for non-object document")
	}
	if _, _, err := DecodeDocument([]byte(`not json`)); err == nil {
		t.Fatal("expected error for garbage document")
	}
}

func TestDecodeDocumentCoercesBlankAmounts(t *testing.T) {
	// Monetary fields may be blank mid-edit; they coerce to 0.
	doc := []byte(`{"invoices": [{"id": "i1", "customer": "Ahmad",
		"serviceCost": "", "partsCost": null, "paid": "7.5"}]}`)
	snap, res, err := DecodeDocument(doc)
	if err != nil || !res.Invoices {
		t.Fatalf("decode: %v %+v", err, res)
	}
	inv := snap.Invoices[0]
	if inv.ServiceCost.Fils != 0 || inv.PartsCost.Fils != 0 {
		t.Fatalf("blank amounts should coerce to 0: %+v", inv)
	}
	if inv.Paid.Fils != 7500 {
		t.Fatalf("paid = %d, want 7500", inv.Paid.Fils)
	}
}
