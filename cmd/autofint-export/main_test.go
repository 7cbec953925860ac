package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"autofint/internal/core"
	"autofint/internal/memory"
)

func TestRunWritesFile(t *testing.T) {
	ctx := context.Background()
	store := memory.New(core.DefaultCategories())
	for _, tx := range []core.Transaction{
		{Date: core.NewDate(2024, 6, 1), Type: core.Income, Category: "Gaji", Description: "-", Amount: core.Money{Cents: 500_000}},
		{Date: core.NewDate(2024, 6, 2), Type: core.Expense, Category: "Makan", Description: "soto", Amount: core.Money{Cents: 2_550}},
	} {
		if _, err := store.InsertTransaction(ctx, tx); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "ledger.csv")
	n, err := run(ctx, store, path)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 2 {
		t.Errorf("rows = %d, want 2", n)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %q", lines)
	}
	// Newest first.
	if !strings.HasPrefix(lines[1], "2,2024-06-02,Expense,Makan,soto,25.50") {
		t.Errorf("first row = %q", lines[1])
	}
}

func TestRunBadPath(t *testing.T) {
	store := memory.New(nil)
	if _, err := run(context.Background(), store, filepath.Join(t.TempDir(), "missing", "x.csv")); err == nil {
		t.Error("expected error for unwritable path")
	}
}
