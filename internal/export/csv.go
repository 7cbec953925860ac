// Package export renders the ledger for outside consumers: CSV files and a
// Google Sheets mirror (see the sheets subpackage).
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"autofint/internal/core"
)

// Header is the column layout shared by every export target.
var Header = []string{"id", "date", "type", "category", "description", "amount", "is_savings"}

// Record renders t in Header order. Amounts are plain decimals.
func Record(t core.Transaction) []string {
	return []string{
		strconv.FormatInt(t.ID, 10),
		t.Date.String(),
		string(t.Type),
		t.Category,
		t.Description,
		t.Amount.String(),
		strconv.FormatBool(t.IsSavings),
	}
}

// WriteCSV writes the header followed by one record per transaction.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, t := range txs {
		if err := cw.Write(Record(t)); err != nil {
			return fmt.Errorf("writing csv record %d: %w", t.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}
