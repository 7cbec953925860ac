package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"autofint/internal/core"
)

const legacyTable = "transaksi_legacy"

// detachLegacyTable renames an old-layout transaksi table out of the way so
// migrations can create the current one. Old layouts store REAL amounts,
// lack is_savings, or both. It reports whether rows are waiting for import.
func detachLegacyTable(ctx context.Context, db *sql.DB) (bool, error) {
	pending, err := tableExists(ctx, db, legacyTable)
	if err != nil || pending {
		return pending, err
	}

	exists, err := tableExists(ctx, db, "transaksi")
	if err != nil || !exists {
		return false, err
	}
	cols, err := tableColumns(ctx, db, "transaksi")
	if err != nil {
		return false, err
	}
	if cols["amount_cents"] && cols["is_savings"] {
		return false, nil
	}

	slog.InfoContext(ctx, "Legacy transaksi layout detected", "columns", len(cols))
	if _, err := db.ExecContext(ctx, `ALTER TABLE transaksi RENAME TO `+legacyTable); err != nil {
		return false, fmt.Errorf("rename legacy table: %w", err)
	}
	// Index names travel with the renamed table and would shadow the new ones.
	if err := dropIndexes(ctx, db, legacyTable); err != nil {
		return false, err
	}
	return true, nil
}

// importLegacyRows copies the detached rows into the current table, keeping
// ids, converting amounts to cents and day-month dates to shortDateYear.
// Rows that cannot be converted are logged and skipped.
func importLegacyRows(ctx context.Context, db *sql.DB, shortDateYear int) (int, error) {
	cols, err := tableColumns(ctx, db, legacyTable)
	if err != nil {
		return 0, err
	}
	savingsByCategory, err := loadSavingsFlags(ctx, db)
	if err != nil {
		return 0, err
	}

	amountCol, inCents := "amount", false
	if cols["amount_cents"] {
		amountCol, inCents = "amount_cents", true
	}
	savingsCol := "NULL"
	if cols["is_savings"] {
		savingsCol = "is_savings"
	}
	descCol := "NULL"
	if cols["description"] {
		descCol = "description"
	}

	query := fmt.Sprintf(`SELECT id, date, type, category, %s, %s, %s FROM %s ORDER BY id`,
		descCol, amountCol, savingsCol, legacyTable)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("read legacy rows: %w", err)
	}
	var converted []Transaksi
	for rows.Next() {
		var (
			id                  int64
			date, typ, category string
			desc                sql.NullString
			amount              any
			savings             sql.NullInt64
		)
		if err := rows.Scan(&id, &date, &typ, &category, &desc, &amount, &savings); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan legacy row: %w", err)
		}
		row, err := convertLegacyRow(id, date, typ, category, desc, amount, inCents, shortDateYear)
		if err != nil {
			slog.WarnContext(ctx, "Skipping legacy row", "id", id, "error", err)
			continue
		}
		switch {
		case savings.Valid:
			row.IsSavings = boolToInt(savings.Int64 != 0)
		case row.Type == string(core.Expense):
			row.IsSavings = boolToInt(savingsByCategory[row.Category])
		}
		converted = append(converted, row)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin legacy import: %w", err)
	}
	defer tx.Rollback()

	qtx := New(db).WithTx(tx)
	for _, row := range converted {
		if err := qtx.InsertTransactionWithID(ctx, row); err != nil {
			return 0, fmt.Errorf("copy legacy row %d: %w", row.ID, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DROP TABLE `+legacyTable); err != nil {
		return 0, fmt.Errorf("drop legacy table: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit legacy import: %w", err)
	}
	return len(converted), nil
}

func convertLegacyRow(id int64, date, typ, category string, desc sql.NullString, amount any, inCents bool, year int) (Transaksi, error) {
	d, err := parseLegacyDate(date, year)
	if err != nil {
		return Transaksi{}, err
	}
	t, err := core.ParseTxType(typ)
	if err != nil {
		return Transaksi{}, err
	}
	cents, err := legacyCents(amount, inCents)
	if err != nil {
		return Transaksi{}, err
	}
	return Transaksi{
		ID:          id,
		Date:        d.String(),
		Type:        string(t),
		Category:    strings.TrimSpace(category),
		Description: desc,
		AmountCents: cents,
	}, nil
}

func parseLegacyDate(s string, year int) (core.Date, error) {
	s = strings.TrimSpace(s)
	if d, err := core.ParseDate(s); err == nil {
		return d, nil
	}
	if d, err := core.ParseShortDate(s, year); err == nil {
		return d, nil
	}
	if t, err := time.Parse("02-01-2006", s); err == nil {
		return core.DateOf(t), nil
	}
	return core.Date{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
}

func legacyCents(v any, inCents bool) (int64, error) {
	var d decimal.Decimal
	switch x := v.(type) {
	case int64:
		d = decimal.NewFromInt(x)
	case float64:
		d = decimal.NewFromFloat(x)
	case []byte:
		return legacyCents(string(x), inCents)
	case string:
		parsed, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(x), ",", "."))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", core.ErrInvalidAmount, x)
		}
		d = parsed
	default:
		return 0, fmt.Errorf("%w: unsupported value %v", core.ErrInvalidAmount, v)
	}
	if !inCents {
		d = d.Mul(decimal.NewFromInt(100))
	}
	d = d.Round(0)
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: negative amount %s", core.ErrInvalidAmount, d)
	}
	return d.IntPart(), nil
}

func loadSavingsFlags(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	cats, err := New(db).ListCategories(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("load category flags: %w", err)
	}
	out := make(map[string]bool, len(cats))
	for _, c := range cats {
		out[c.Name] = c.IsSavings != 0
	}
	return out, nil
}

func tableExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return n > 0, nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()
	cols := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[strings.ToLower(name)] = true
	}
	return cols, rows.Err()
}

func dropIndexes(ctx context.Context, db *sql.DB, table string) error {
	rows, err := db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND sql IS NOT NULL`, table)
	if err != nil {
		return fmt.Errorf("list indexes: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		names = append(names, name)
	}
	rows.Close()
	for _, name := range names {
		if _, err := db.ExecContext(ctx, `DROP INDEX IF EXISTS `+strconv.Quote(name)); err != nil {
			return fmt.Errorf("drop index %s: %w", name, err)
		}
	}
	return nil
}
