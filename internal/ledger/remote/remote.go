// Package remote reads the ledger of a peer garagebook instance over
// HTTP. Paired with a SnapshotRefresher it turns an instance into a
// polling follower of another shop machine.
package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"garagebook/internal/ledger"
)

// Responses are capped at the same bound the server applies to bodies.
const maxResponseBytes = 4 << 20

// Reader implements ledger.SnapshotReader against a peer's ledger URL.
type Reader struct {
	url    string
	client *http.Client
}

func NewReader(url string) *Reader {
	return &Reader{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Load fetches and decodes the peer's ledger document. Decoding is
// tolerant per field, same as import: a malformed collection comes
// back empty rather than failing the poll.
func (r *Reader) Load(ctx context.Context) (ledger.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("build ledger request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("fetch remote ledger: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ledger.Snapshot{}, fmt.Errorf("fetch remote ledger: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("read remote ledger: %w", err)
	}

	snap, _, err := ledger.DecodeDocument(body)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("decode remote ledger: %w", err)
	}
	return snap, nil
}
