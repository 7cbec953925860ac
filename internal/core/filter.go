package core

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Filter narrows ledger queries and aggregations. Zero values mean "any".
type Filter struct {
	Type     TxType
	Category string
	Savings  *bool
	Year     int
	Month    int // 1-12
	Search   string
	Limit    int
}

func (f Filter) Validate() error {
	if f.Type != "" && !f.Type.Valid() {
		return &ValidationError{Field: "type", Err: ErrInvalidType}
	}
	if f.Month < 0 || f.Month > 12 {
		return &ValidationError{Field: "month", Err: fmt.Errorf("%w: month %d", ErrInvalidFilter, f.Month)}
	}
	if f.Year < 0 || f.Year > 9999 {
		return &ValidationError{Field: "year", Err: fmt.Errorf("%w: year %d", ErrInvalidFilter, f.Year)}
	}
	if f.Limit < 0 {
		return &ValidationError{Field: "limit", Err: fmt.Errorf("%w: limit %d", ErrInvalidFilter, f.Limit)}
	}
	return nil
}

// Matches reports whether t passes every predicate except Limit.
func (f Filter) Matches(t Transaction) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Savings != nil && t.IsSavings != *f.Savings {
		return false
	}
	if f.Year != 0 && t.Date.Year() != f.Year {
		return false
	}
	if f.Month != 0 && int(t.Date.Month()) != f.Month {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		inDescription := t.Description != DescriptionPlaceholder &&
			strings.Contains(strings.ToLower(t.Description), q)
		if !inDescription && !strings.Contains(strings.ToLower(t.Category), q) {
			return false
		}
	}
	return true
}

// Apply filters, orders newest first and truncates to Limit.
func (f Filter) Apply(txs []Transaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	SortNewestFirst(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// WithoutLimit drops the result limit; aggregations always see every match.
func (f Filter) WithoutLimit() Filter {
	f.Limit = 0
	return f
}

// SortNewestFirst orders by date descending, then id descending.
func SortNewestFirst(txs []Transaction) {
	slices.SortFunc(txs, func(a, b Transaction) int {
		if c := b.Date.Compare(a.Date.Time); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}
