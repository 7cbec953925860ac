package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"autofint/internal/amqp"
	"autofint/internal/core"
	"autofint/internal/ports"
)

// Mirror receives the full ledger on every sync.
type Mirror interface {
	Sync(ctx context.Context, txs []core.Transaction) error
}

// MirrorWorker keeps an external copy of the ledger in step with the store.
// Change events trigger a full rewrite; a periodic pass covers lost events.
type MirrorWorker struct {
	store  ports.TransactionStore
	mirror Mirror

	mu       sync.Mutex
	lastSync time.Time
	synced   int
}

func NewMirrorWorker(store ports.TransactionStore, mirror Mirror) *MirrorWorker {
	return &MirrorWorker{store: store, mirror: mirror}
}

// HandleEvent processes one ledger change event from AMQP.
func (w *MirrorWorker) HandleEvent(ctx context.Context, e *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"event_id", e.EventID,
		"action", e.Action,
		"id", e.ID)

	switch e.Action {
	case ports.EventTransactionCreated, ports.EventTransactionUpdated, ports.EventTransactionDeleted:
	default:
		// Unknown actions still leave the mirror correct after a full pass.
		slog.WarnContext(ctx, "Unknown ledger event action", "action", e.Action)
	}

	w.mu.Lock()
	stale := w.lastSync.Before(e.Timestamp)
	w.mu.Unlock()
	if !stale {
		slog.DebugContext(ctx, "Mirror already newer than event, skipping", "event_id", e.EventID)
		return nil
	}
	return w.MirrorAll(ctx)
}

// MirrorAll rewrites the mirror from the full ledger. Concurrent calls are
// serialized.
func (w *MirrorWorker) MirrorAll(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	started := time.Now()
	txs, err := w.store.QueryTransactions(ctx, core.Filter{})
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	if err := w.mirror.Sync(ctx, txs); err != nil {
		return fmt.Errorf("sync mirror: %w", err)
	}

	w.lastSync = started
	w.synced = len(txs)
	slog.InfoContext(ctx, "Mirror synced", "rows", len(txs), "duration", time.Since(started))
	return nil
}

// RunPeriodic mirrors immediately and then every interval until ctx ends.
// Individual failures are logged; the loop keeps going.
func (w *MirrorWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	if err := w.MirrorAll(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup mirror failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.MirrorAll(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic mirror failed", "error", err)
			}
		}
	}
}

// Status reports when the mirror last succeeded and how many rows it holds.
func (w *MirrorWorker) Status() (time.Time, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSync, w.synced
}
