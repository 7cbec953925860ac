package services

import (
	"context"
	"fmt"
	"log/slog"

	"autofint/internal/core"
	"autofint/internal/ports"
)

// TransactionInput is a transaction as a caller submits it. Type and Amount
// are raw text and are validated by the ledger.
type TransactionInput struct {
	Date        core.Date
	Type        string
	Category    string
	Description string
	Amount      string
}

// LedgerService orchestrates transaction writes across the store and the
// optional event publisher.
type LedgerService struct {
	store      ports.TransactionStore
	categories *CategoryService
	publisher  ports.EventPublisher
}

// NewLedgerService wires a ledger. publisher may be nil.
func NewLedgerService(store ports.TransactionStore, categories *CategoryService, publisher ports.EventPublisher) *LedgerService {
	return &LedgerService{
		store:      store,
		categories: categories,
		publisher:  publisher,
	}
}

// Add records a new transaction and returns it with its id.
func (s *LedgerService) Add(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	t, err := s.build(ctx, in)
	if err != nil {
		return core.Transaction{}, err
	}

	id, err := s.store.InsertTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	t.ID = id

	s.publish(ctx, ports.EventTransactionCreated, id)
	return t, nil
}

// Update replaces the mutable fields of transaction id. The stored date is
// kept; in.Date is ignored.
func (s *LedgerService) Update(ctx context.Context, id int64, in TransactionInput) (core.Transaction, error) {
	existing, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}

	in.Date = existing.Date
	t, err := s.build(ctx, in)
	if err != nil {
		return core.Transaction{}, err
	}
	t.ID = id

	if err := s.store.UpdateTransaction(ctx, t); err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction updated", "id", id, "category", t.Category, "amount_cents", t.Amount.Cents)
	s.publish(ctx, ports.EventTransactionUpdated, id)
	return t, nil
}

// Delete removes transaction id. Unknown ids are a no-op.
func (s *LedgerService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.store.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if !deleted {
		slog.DebugContext(ctx, "Delete of unknown transaction ignored", "id", id)
		return nil
	}

	s.publish(ctx, ports.EventTransactionDeleted, id)
	return nil
}

func (s *LedgerService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// Query returns matching transactions, newest first.
func (s *LedgerService) Query(ctx context.Context, f core.Filter) ([]core.Transaction, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	txs, err := s.store.QueryTransactions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	return txs, nil
}

// build validates in and resolves the savings flag from the registry.
func (s *LedgerService) build(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	typ, err := core.ParseTxType(in.Type)
	if err != nil {
		return core.Transaction{}, &core.ValidationError{Field: "type", Err: err}
	}
	amount, err := core.ParseMoney(in.Amount)
	if err != nil {
		return core.Transaction{}, &core.ValidationError{Field: "amount", Err: fmt.Errorf("%w: %q", err, in.Amount)}
	}

	t := core.Transaction{
		Date:        in.Date,
		Type:        typ,
		Category:    in.Category,
		Description: in.Description,
		Amount:      amount,
	}.Normalize()
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if s.categories != nil {
		s.warnOrphan(ctx, t.Category)
		savings, err := s.categories.IsSavingsCategory(ctx, t.Category)
		if err != nil {
			return core.Transaction{}, err
		}
		t.IsSavings = savings
	}
	return t, nil
}

// warnOrphan logs categories missing from the registry. They are allowed.
func (s *LedgerService) warnOrphan(ctx context.Context, name string) {
	cats, err := s.categories.Categories(ctx)
	if err != nil {
		return
	}
	for _, c := range cats {
		if c.Name == name {
			return
		}
	}
	attrs := []any{"category", name}
	if hint, ok, _ := closest(name, cats); ok {
		attrs = append(attrs, "closest", hint)
	}
	slog.WarnContext(ctx, "Transaction references unknown category", attrs...)
}

func (s *LedgerService) publish(ctx context.Context, action string, id int64) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping event", "action", action, "id", id)
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, action, id); err != nil {
		// The mutation is already committed locally.
		slog.ErrorContext(ctx, "Failed to publish ledger event", "action", action, "id", id, "error", err)
	}
}
