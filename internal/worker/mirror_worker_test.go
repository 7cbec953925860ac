package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"autofint/internal/amqp"
	"autofint/internal/core"
	"autofint/internal/memory"
	"autofint/internal/ports"
)

type fakeMirror struct {
	mu    sync.Mutex
	calls int
	last  []core.Transaction
	err   error
}

func (m *fakeMirror) Sync(_ context.Context, txs []core.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.last = txs
	return nil
}

func (m *fakeMirror) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New(nil)
	for i := 1; i <= 3; i++ {
		if _, err := store.InsertTransaction(context.Background(), core.Transaction{
			Date: core.NewDate(2025, 1, i), Type: core.Expense, Category: "Makan", Amount: core.Money{Cents: int64(i)},
		}); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

func TestMirrorAllSendsFullLedger(t *testing.T) {
	mirror := &fakeMirror{}
	w := NewMirrorWorker(seededStore(t), mirror)

	if err := w.MirrorAll(context.Background()); err != nil {
		t.Fatalf("MirrorAll: %v", err)
	}
	if len(mirror.last) != 3 || mirror.last[0].ID != 3 {
		t.Fatalf("expected full ledger newest first, got %+v", mirror.last)
	}
	last, rows := w.Status()
	if last.IsZero() || rows != 3 {
		t.Fatalf("unexpected status: %v %d", last, rows)
	}
}

func TestHandleEventSkipsStaleEvents(t *testing.T) {
	mirror := &fakeMirror{}
	w := NewMirrorWorker(seededStore(t), mirror)
	ctx := context.Background()

	old := &amqp.TransactionEvent{Action: ports.EventTransactionCreated, ID: 1, Timestamp: time.Now().Add(-time.Hour)}
	if err := w.HandleEvent(ctx, old); err != nil {
		t.Fatal(err)
	}
	if mirror.count() != 1 {
		t.Fatalf("first event must sync, calls=%d", mirror.count())
	}

	if err := w.HandleEvent(ctx, old); err != nil {
		t.Fatal(err)
	}
	if mirror.count() != 1 {
		t.Fatalf("event older than the last sync must be skipped, calls=%d", mirror.count())
	}

	fresh := amqp.NewTransactionEvent(ports.EventTransactionDeleted, 1)
	fresh.Timestamp = time.Now().Add(time.Second)
	if err := w.HandleEvent(ctx, fresh); err != nil {
		t.Fatal(err)
	}
	if mirror.count() != 2 {
		t.Fatalf("fresh event must sync, calls=%d", mirror.count())
	}
}

func TestHandleEventPropagatesMirrorFailure(t *testing.T) {
	w := NewMirrorWorker(seededStore(t), &fakeMirror{err: errors.New("quota")})
	err := w.HandleEvent(context.Background(), amqp.NewTransactionEvent(ports.EventTransactionCreated, 1))
	if err == nil {
		t.Fatal("expected error so the delivery is requeued")
	}
	if last, _ := w.Status(); !last.IsZero() {
		t.Fatal("failed sync must not advance the last sync time")
	}
}

func TestRunPeriodicStopsOnCancel(t *testing.T) {
	mirror := &fakeMirror{}
	w := NewMirrorWorker(seededStore(t), mirror)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.RunPeriodic(ctx, 5*time.Millisecond) }()

	deadline := time.After(2 * time.Second)
	for mirror.count() < 2 {
		select {
		case <-deadline:
			t.Fatalf("periodic mirror did not tick, calls=%d", mirror.count())
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("RunPeriodic did not stop")
	}
}
