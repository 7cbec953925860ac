package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"autofint/internal/core"
	"autofint/internal/ports"

	_ "modernc.org/sqlite"
)

var _ ports.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer connection serializes every mutation.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	legacy, err := detachLegacyTable(ctx, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("inspect legacy schema: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if legacy {
		n, err := importLegacyRows(ctx, db, time.Now().Year())
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("upgrade legacy ledger: %w", err)
		}
		slog.InfoContext(ctx, "Legacy ledger upgraded", "rows", n)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) CountCategories(ctx context.Context) (int, error) {
	n, err := r.queries.CountCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return int(n), nil
}

func (r *SQLiteRepository) InsertCategory(ctx context.Context, c core.Category) (bool, error) {
	affected, err := r.queries.InsertCategory(ctx, InsertCategoryParams{
		Name:      c.Name,
		Type:      string(c.Type),
		IsSavings: boolToInt(c.IsSavings),
	})
	if err != nil {
		return false, fmt.Errorf("insert category %q: %w", c.Name, err)
	}
	return affected > 0, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, name string) (core.Category, bool, error) {
	row, err := r.queries.GetCategory(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, false, nil
	}
	if err != nil {
		return core.Category{}, false, fmt.Errorf("get category %q: %w", name, err)
	}
	return categoryFromRow(row), true, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, typ core.TxType) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx, string(typ))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, categoryFromRow(row))
	}
	return out, nil
}

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	id, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		Date:        t.Date.String(),
		Type:        string(t.Type),
		Category:    t.Category,
		Description: nullString(t.Description),
		AmountCents: t.Amount.Cents,
		IsSavings:   boolToInt(t.IsSavings),
	})
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"type", t.Type,
		"category", t.Category,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.String())

	return id, nil
}

// UpdateTransaction rewrites every field except the date.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	affected, err := r.queries.UpdateTransaction(ctx, UpdateTransactionParams{
		Type:        string(t.Type),
		Category:    t.Category,
		Description: nullString(t.Description),
		AmountCents: t.Amount.Cents,
		IsSavings:   boolToInt(t.IsSavings),
		ID:          t.ID,
	})
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", t.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %d: %w", t.ID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) (bool, error) {
	affected, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if affected > 0 {
		slog.InfoContext(ctx, "Transaction deleted", "id", id)
	}
	return affected > 0, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return transactionFromRow(row)
}

func (r *SQLiteRepository) QueryTransactions(ctx context.Context, f core.Filter) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := transactionFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *SQLiteRepository) SumTotals(ctx context.Context, f core.Filter) (core.Summary, error) {
	row, err := r.queries.SumTotals(ctx, f.WithoutLimit())
	if err != nil {
		return core.Summary{}, fmt.Errorf("sum totals: %w", err)
	}
	return core.Summary{
		Income:  core.Money{Cents: row.Income},
		Expense: core.Money{Cents: row.Expense},
		Savings: core.Money{Cents: row.Savings},
	}, nil
}

func (r *SQLiteRepository) SumExpensesByCategory(ctx context.Context, f core.Filter) ([]core.CategoryAmount, error) {
	rows, err := r.queries.SumExpensesByCategory(ctx, f.WithoutLimit())
	if err != nil {
		return nil, fmt.Errorf("sum expenses by category: %w", err)
	}
	out := make([]core.CategoryAmount, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.CategoryAmount{Name: row.Category, Amount: core.Money{Cents: row.AmountCents}})
	}
	return out, nil
}

func categoryFromRow(row MasterKategori) core.Category {
	return core.Category{
		Name:      row.Name,
		Type:      core.TxType(row.Type),
		IsSavings: row.IsSavings != 0,
	}
}

func transactionFromRow(row Transaksi) (core.Transaction, error) {
	d, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d has malformed date %q: %w", row.ID, row.Date, err)
	}
	return core.Transaction{
		ID:          row.ID,
		Date:        d,
		Type:        core.TxType(row.Type),
		Category:    row.Category,
		Description: row.Description.String,
		Amount:      core.Money{Cents: row.AmountCents},
		IsSavings:   row.IsSavings != 0,
	}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
