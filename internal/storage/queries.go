package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"autofint/internal/core"
)

// DBTX is satisfied by *sql.DB and *sql.Tx so the same queries run inside
// and outside a transaction.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Transaksi is a row of the transaksi table.
type Transaksi struct {
	ID          int64
	Date        string
	Type        string
	Category    string
	Description sql.NullString
	AmountCents int64
	IsSavings   int64
}

// MasterKategori is a row of the master_kategori table.
type MasterKategori struct {
	Name      string
	Type      string
	IsSavings int64
}

const countCategories = `SELECT COUNT(*) FROM master_kategori`

func (q *Queries) CountCategories(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countCategories)
	var n int64
	err := row.Scan(&n)
	return n, err
}

const insertCategory = `INSERT OR IGNORE INTO master_kategori (name, type, is_savings) VALUES (?, ?, ?)`

type InsertCategoryParams struct {
	Name      string
	Type      string
	IsSavings int64
}

func (q *Queries) InsertCategory(ctx context.Context, arg InsertCategoryParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertCategory, arg.Name, arg.Type, arg.IsSavings)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getCategory = `SELECT name, type, is_savings FROM master_kategori WHERE name = ?`

func (q *Queries) GetCategory(ctx context.Context, name string) (MasterKategori, error) {
	row := q.db.QueryRowContext(ctx, getCategory, name)
	var i MasterKategori
	err := row.Scan(&i.Name, &i.Type, &i.IsSavings)
	return i, err
}

// Insertion order is rowid order.
const listCategories = `SELECT name, type, is_savings FROM master_kategori
WHERE (?1 = '' OR type = ?1)
ORDER BY rowid`

func (q *Queries) ListCategories(ctx context.Context, typ string) ([]MasterKategori, error) {
	rows, err := q.db.QueryContext(ctx, listCategories, typ)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MasterKategori
	for rows.Next() {
		var i MasterKategori
		if err := rows.Scan(&i.Name, &i.Type, &i.IsSavings); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createTransaction = `INSERT INTO transaksi (date, type, category, description, amount_cents, is_savings)
VALUES (?, ?, ?, ?, ?, ?)`

type CreateTransactionParams struct {
	Date        string
	Type        string
	Category    string
	Description sql.NullString
	AmountCents int64
	IsSavings   int64
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createTransaction,
		arg.Date, arg.Type, arg.Category, arg.Description, arg.AmountCents, arg.IsSavings)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const insertTransactionWithID = `INSERT INTO transaksi (id, date, type, category, description, amount_cents, is_savings)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertTransactionWithID(ctx context.Context, arg Transaksi) error {
	_, err := q.db.ExecContext(ctx, insertTransactionWithID,
		arg.ID, arg.Date, arg.Type, arg.Category, arg.Description, arg.AmountCents, arg.IsSavings)
	return err
}

const updateTransaction = `UPDATE transaksi
SET type = ?, category = ?, description = ?, amount_cents = ?, is_savings = ?
WHERE id = ?`

type UpdateTransactionParams struct {
	Type        string
	Category    string
	Description sql.NullString
	AmountCents int64
	IsSavings   int64
	ID          int64
}

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		arg.Type, arg.Category, arg.Description, arg.AmountCents, arg.IsSavings, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransaction = `DELETE FROM transaksi WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const transactionColumns = `id, date, type, category, description, amount_cents, is_savings`

const getTransaction = `SELECT ` + transactionColumns + ` FROM transaksi WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (Transaksi, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id)
	var i Transaksi
	err := row.Scan(&i.ID, &i.Date, &i.Type, &i.Category, &i.Description, &i.AmountCents, &i.IsSavings)
	return i, err
}

func (q *Queries) ListTransactions(ctx context.Context, f core.Filter) ([]Transaksi, error) {
	where, args := whereClause(f)
	query := `SELECT ` + transactionColumns + ` FROM transaksi` + where + ` ORDER BY date DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaksi
	for rows.Next() {
		var i Transaksi
		if err := rows.Scan(&i.ID, &i.Date, &i.Type, &i.Category, &i.Description, &i.AmountCents, &i.IsSavings); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type SumTotalsRow struct {
	Income  int64
	Expense int64
	Savings int64
}

func (q *Queries) SumTotals(ctx context.Context, f core.Filter) (SumTotalsRow, error) {
	where, args := whereClause(f)
	query := `SELECT
    COALESCE(SUM(CASE WHEN type = 'Income' THEN amount_cents ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN type = 'Expense' AND is_savings = 0 THEN amount_cents ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN type = 'Expense' AND is_savings = 1 THEN amount_cents ELSE 0 END), 0)
FROM transaksi` + where
	row := q.db.QueryRowContext(ctx, query, args...)
	var i SumTotalsRow
	err := row.Scan(&i.Income, &i.Expense, &i.Savings)
	return i, err
}

type SumByCategoryRow struct {
	Category    string
	AmountCents int64
}

func (q *Queries) SumExpensesByCategory(ctx context.Context, f core.Filter) ([]SumByCategoryRow, error) {
	where, args := whereClause(f)
	if where == "" {
		where = ` WHERE type = 'Expense'`
	} else {
		where += ` AND type = 'Expense'`
	}
	query := `SELECT category, SUM(amount_cents) FROM transaksi` + where +
		` GROUP BY category ORDER BY MIN(id)`
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SumByCategoryRow
	for rows.Next() {
		var i SumByCategoryRow
		if err := rows.Scan(&i.Category, &i.AmountCents); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// whereClause renders every Filter predicate except Limit.
func whereClause(f core.Filter) (string, []any) {
	var conds []string
	var args []any
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if f.Savings != nil {
		conds = append(conds, "is_savings = ?")
		args = append(args, boolToInt(*f.Savings))
	}
	if f.Year != 0 {
		conds = append(conds, "substr(date, 1, 4) = ?")
		args = append(args, fmt.Sprintf("%04d", f.Year))
	}
	if f.Month != 0 {
		conds = append(conds, "substr(date, 6, 2) = ?")
		args = append(args, fmt.Sprintf("%02d", f.Month))
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
		// The blank-description placeholder is not searchable text.
		conds = append(conds, `((COALESCE(description, '') <> ? AND lower(COALESCE(description, '')) LIKE ? ESCAPE '\') OR lower(category) LIKE ? ESCAPE '\')`)
		args = append(args, core.DescriptionPlaceholder, pattern, pattern)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
