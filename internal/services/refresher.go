package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"garagebook/internal/ledger"
)

// SnapshotRefresher re-reads the ledger on an interval and hands each
// snapshot to an apply callback. A failed read is logged and the
// previously applied snapshot stays authoritative.
type SnapshotRefresher struct {
	reader   ledger.SnapshotReader
	apply    func(ledger.Snapshot)
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSnapshotRefresher(reader ledger.SnapshotReader, interval time.Duration, apply func(ledger.Snapshot)) *SnapshotRefresher {
	return &SnapshotRefresher{
		reader:   reader,
		apply:    apply,
		interval: interval,
	}
}

// Start begins the refresh loop. Returns an error if already running.
func (r *SnapshotRefresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("snapshot refresher is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	go r.runLoop(ctx)

	slog.InfoContext(ctx, "Snapshot refresher started", "interval", r.interval)
	return nil
}

// Stop halts the loop and waits for it to finish or the context to
// expire. Stopping twice is a no-op.
func (r *SnapshotRefresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	close(r.stopCh)

	select {
	case <-r.doneCh:
		slog.InfoContext(ctx, "Snapshot refresher stopped")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Snapshot refresher stop timed out")
		return ctx.Err()
	}

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	return nil
}

func (r *SnapshotRefresher) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *SnapshotRefresher) runLoop(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Refresh immediately so callers start with data.
	r.refresh(ctx)

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *SnapshotRefresher) refresh(ctx context.Context) {
	snap, err := r.reader.Load(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Snapshot refresh failed, keeping previous snapshot", "error", err)
		return
	}
	r.apply(snap)
}
