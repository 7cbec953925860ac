package services

import (
	"context"
	"errors"
	"testing"

	"autofint/internal/core"
	"autofint/internal/memory"
)

func seededReports(t *testing.T) *ReportService {
	t.Helper()
	ctx := context.Background()
	store := memory.New(core.DefaultCategories())
	ledger := NewLedgerService(store, NewCategoryService(store), nil)
	for _, in := range []TransactionInput{
		{Date: core.NewDate(2025, 1, 1), Type: "Income", Category: "Gaji", Amount: "500000"},
		{Date: core.NewDate(2025, 1, 2), Type: "Expense", Category: "Makan", Amount: "100000"},
		{Date: core.NewDate(2025, 1, 3), Type: "Expense", Category: "Belanja", Amount: "50000"},
		{Date: core.NewDate(2025, 1, 4), Type: "Expense", Category: "Dana Darurat", Amount: "50000"},
	} {
		if _, err := ledger.Add(ctx, in); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return NewReportService(store)
}

func TestSummarizeScenario(t *testing.T) {
	reports := seededReports(t)
	sum, err := reports.Summarize(context.Background(), core.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Income.Cents != 50000000 || sum.Expense.Cents != 15000000 || sum.Savings.Cents != 5000000 {
		t.Fatalf("unexpected totals: %+v", sum)
	}
	if sum.NetCash().Cents != 30000000 {
		t.Fatalf("net cash = %s, want 300000.00", sum.NetCash())
	}

	empty, err := reports.Summarize(context.Background(), core.Filter{Year: 2001})
	if err != nil || empty.NetCash().Cents != 0 {
		t.Fatalf("empty filter should be zero: %+v err=%v", empty, err)
	}
}

func TestCategoryBreakdown(t *testing.T) {
	reports := seededReports(t)
	b, err := reports.CategoryBreakdown(context.Background(), core.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if b.NoData || b.Total.Cents != 20000000 {
		t.Fatalf("unexpected breakdown: %+v", b)
	}
	want := []core.CategoryShare{
		{Name: "Makan", Amount: core.Money{Cents: 10000000}, Percent: 50},
		{Name: "Belanja", Amount: core.Money{Cents: 5000000}, Percent: 25},
		{Name: "Dana Darurat", Amount: core.Money{Cents: 5000000}, Percent: 25},
	}
	if len(b.Rows) != len(want) {
		t.Fatalf("got %+v", b.Rows)
	}
	for i := range want {
		if b.Rows[i] != want[i] {
			t.Errorf("row %d: got %+v, want %+v", i, b.Rows[i], want[i])
		}
	}

	none, err := reports.CategoryBreakdown(context.Background(), core.Filter{Type: core.Income})
	if err != nil || !none.NoData || len(none.Rows) != 0 {
		t.Fatalf("income-only breakdown should be NoData: %+v err=%v", none, err)
	}
}

func TestRunwayUsesNetCash(t *testing.T) {
	reports := seededReports(t)
	today := core.NewDate(2025, 1, 10)

	r, err := reports.Runway(context.Background(), core.Filter{}, today.AddDays(30), today)
	if err != nil {
		t.Fatalf("runway: %v", err)
	}
	if r.Days != 30 || r.DailyAllowance.Cents != 1000000 {
		t.Fatalf("unexpected runway: %+v", r)
	}

	if _, err := reports.Runway(context.Background(), core.Filter{}, today, today); !errors.Is(err, core.ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}

	_, err = reports.Runway(context.Background(), core.Filter{Year: 1999}, today.AddDays(5), today)
	if !errors.Is(err, core.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}
