package core

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"
)

// Summary holds the headline totals for a set of transactions.
// Expense excludes savings; Savings is the savings-flagged expense.
type Summary struct {
	Income  Money
	Expense Money
	Savings Money
}

// NetCash is income minus plain expense minus savings.
func (s Summary) NetCash() Money {
	return Money{Cents: s.Income.Cents - s.Expense.Cents - s.Savings.Cents}
}

// Add folds one transaction into the totals.
func (s *Summary) Add(t Transaction) {
	switch {
	case t.Type == Income:
		s.Income.Cents += t.Amount.Cents
	case t.Type == Expense && t.IsSavings:
		s.Savings.Cents += t.Amount.Cents
	case t.Type == Expense:
		s.Expense.Cents += t.Amount.Cents
	}
}

// Summarize totals txs. An empty slice yields a zero Summary.
func Summarize(txs []Transaction) Summary {
	var s Summary
	for _, t := range txs {
		s.Add(t)
	}
	return s
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// CategoryShare is one breakdown row; Percent is rounded to a whole number.
type CategoryShare struct {
	Name    string
	Amount  Money
	Percent int64
}

// Breakdown is the expense split by category. NoData is set when the
// filtered total is zero, in which case Rows is empty.
type Breakdown struct {
	Rows   []CategoryShare
	Total  Money
	NoData bool
}

// GroupExpenses sums expense amounts per category.
func GroupExpenses(txs []Transaction) []CategoryAmount {
	sums := map[string]int64{}
	var order []string
	for _, t := range txs {
		if t.Type != Expense {
			continue
		}
		if _, seen := sums[t.Category]; !seen {
			order = append(order, t.Category)
		}
		sums[t.Category] += t.Amount.Cents
	}
	out := make([]CategoryAmount, 0, len(order))
	for _, name := range order {
		out = append(out, CategoryAmount{Name: name, Amount: Money{Cents: sums[name]}})
	}
	return out
}

// NewBreakdown computes shares from per-category sums. Rows are ordered by
// amount descending, then name.
func NewBreakdown(amounts []CategoryAmount) Breakdown {
	var total int64
	for _, a := range amounts {
		total += a.Amount.Cents
	}
	if total <= 0 {
		return Breakdown{Rows: []CategoryShare{}, NoData: true}
	}

	totalDec := decimal.NewFromInt(total)
	rows := make([]CategoryShare, 0, len(amounts))
	for _, a := range amounts {
		pct := decimal.NewFromInt(a.Amount.Cents).Mul(hundred).Div(totalDec).Round(0)
		rows = append(rows, CategoryShare{Name: a.Name, Amount: a.Amount, Percent: pct.IntPart()})
	}
	slices.SortFunc(rows, func(a, b CategoryShare) int {
		if c := cmp.Compare(b.Amount.Cents, a.Amount.Cents); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return Breakdown{Rows: rows, Total: Money{Cents: total}}
}
