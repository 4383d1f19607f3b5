package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record kinds carried on the wire.
const (
	KindInvoice = "invoice"
	KindExpense = "expense"
)

// Operations carried in the envelope discriminator.
const (
	OpSync   = "sync"
	OpDelete = "delete"
)

// RecordSyncMessage asks the mirror worker to append a record to the
// sheet. It carries only the kind and id; the worker fetches the full
// record from storage.
type RecordSyncMessage struct {
	Op        string    `json:"op"`
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordSyncMessage(kind, id string) *RecordSyncMessage {
	return &RecordSyncMessage{
		Op:        OpSync,
		Kind:      kind,
		ID:        id,
		Timestamp: time.Now(),
	}
}

func (m *RecordSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordDeleteMessage tells the worker a record was removed. The row is
// already gone from storage, so the message carries enough detail to
// append a deletion marker to the sheet.
type RecordDeleteMessage struct {
	Op          string    `json:"op"`
	Kind        string    `json:"kind"`
	ID          string    `json:"id"`
	Date        string    `json:"date"`
	Description string    `json:"description"`
	AmountFils  int64     `json:"amountFils"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewRecordDeleteMessage(kind, id, date, description string, amountFils int64) *RecordDeleteMessage {
	return &RecordDeleteMessage{
		Op:          OpDelete,
		Kind:        kind,
		ID:          id,
		Date:        date,
		Description: description,
		AmountFils:  amountFils,
		Timestamp:   time.Now(),
	}
}

func (m *RecordDeleteMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMessage parses a wire payload into one of the two message
// types using the op discriminator.
func DecodeMessage(data []byte) (any, error) {
	var probe struct {
		Op string `json:"op"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch probe.Op {
	case OpSync:
		var msg RecordSyncMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode sync message: %w", err)
		}
		return &msg, nil
	case OpDelete:
		var msg RecordDeleteMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode delete message: %w", err)
		}
		return &msg, nil
	default:
		return nil, fmt.Errorf("unknown message op %q", probe.Op)
	}
}
