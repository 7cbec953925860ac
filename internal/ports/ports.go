package ports

import (
	"context"

	"autofint/internal/core"
)

// Ledger change events.
const (
	EventTransactionCreated = "transaction.created"
	EventTransactionUpdated = "transaction.updated"
	EventTransactionDeleted = "transaction.deleted"
)

// Ports for outbound adapters. The SQLite repository and the in-memory
// store both implement all of them.
type (
	CategoryStore interface {
		CountCategories(ctx context.Context) (int, error)
		// InsertCategory returns false without error when the name exists.
		InsertCategory(ctx context.Context, c core.Category) (inserted bool, err error)
		GetCategory(ctx context.Context, name string) (c core.Category, found bool, err error)
		// ListCategories returns categories in insertion order; an empty
		// type returns every category.
		ListCategories(ctx context.Context, typ core.TxType) ([]core.Category, error)
	}

	TransactionStore interface {
		InsertTransaction(ctx context.Context, t core.Transaction) (id int64, err error)
		// UpdateTransaction returns core.ErrNotFound when t.ID does not exist.
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, id int64) (deleted bool, err error)
		GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
		QueryTransactions(ctx context.Context, f core.Filter) ([]core.Transaction, error)
	}

	// Aggregator computes totals where the data lives.
	Aggregator interface {
		SumTotals(ctx context.Context, f core.Filter) (core.Summary, error)
		SumExpensesByCategory(ctx context.Context, f core.Filter) ([]core.CategoryAmount, error)
	}

	// Store bundles every port a backend provides.
	Store interface {
		CategoryStore
		TransactionStore
		Aggregator
		Close() error
	}

	// EventPublisher announces ledger mutations to interested workers.
	EventPublisher interface {
		PublishTransactionEvent(ctx context.Context, action string, id int64) error
	}
)
