package services

import (
	"context"
	"errors"
	"testing"

	"autofint/internal/core"
	"autofint/internal/memory"
)

func TestSeedDefaultsOnlyWhenEmpty(t *testing.T) {
	ctx := context.Background()
	svc := NewCategoryService(memory.New(nil))

	added, err := svc.SeedDefaults(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if added != len(core.DefaultCategories()) {
		t.Fatalf("added %d, want %d", added, len(core.DefaultCategories()))
	}

	again, err := svc.SeedDefaults(ctx)
	if err != nil || again != 0 {
		t.Fatalf("second seed must be a no-op: added=%d err=%v", again, err)
	}

	custom := NewCategoryService(memory.New([]core.Category{{Name: "Kopi", Type: core.Expense}}))
	if n, _ := custom.SeedDefaults(ctx); n != 0 {
		t.Fatalf("non-empty registry must not be seeded, added %d", n)
	}
}

func TestCategoriesForKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	svc := NewCategoryService(memory.New(nil))
	if _, err := svc.SeedDefaults(ctx); err != nil {
		t.Fatal(err)
	}

	income, err := svc.CategoriesFor(ctx, core.Income)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Gaji", "Bonus", "Hadiah", "Pemasukan Lain"}
	if len(income) != len(want) {
		t.Fatalf("got %v, want %v", income, want)
	}
	for i := range want {
		if income[i] != want[i] {
			t.Fatalf("got %v, want %v", income, want)
		}
	}

	def, err := svc.DefaultCategory(ctx, core.Expense)
	if err != nil || def != "Makan" {
		t.Fatalf("default expense = %q err=%v", def, err)
	}

	if _, err := svc.CategoriesFor(ctx, core.TxType("Transfer")); !errors.Is(err, core.ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestAddCategory(t *testing.T) {
	ctx := context.Background()
	svc := NewCategoryService(memory.New(nil))

	tests := []struct {
		name      string
		catName   string
		typ       core.TxType
		wantAdded bool
		wantField string
	}{
		{"new", "Liburan", core.Expense, true, ""},
		{"duplicate is silent", "Liburan", core.Expense, false, ""},
		{"duplicate of other type is silent", "Liburan", core.Income, false, ""},
		{"trimmed duplicate", "  Liburan ", core.Expense, false, ""},
		{"blank name", "   ", core.Expense, false, "name"},
		{"bad type", "Hadiah", core.TxType("gift"), false, "type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			added, err := svc.AddCategory(ctx, tt.catName, tt.typ, false)
			if tt.wantField != "" {
				var ve *core.ValidationError
				if !errors.As(err, &ve) || ve.Field != tt.wantField {
					t.Fatalf("expected validation error on %q, got %v", tt.wantField, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if added != tt.wantAdded {
				t.Fatalf("added = %v, want %v", added, tt.wantAdded)
			}
		})
	}

	names, _ := svc.CategoriesFor(ctx, core.Expense)
	if len(names) != 1 || names[0] != "Liburan" {
		t.Fatalf("registry changed unexpectedly: %v", names)
	}
}

func TestIsSavingsCategory(t *testing.T) {
	ctx := context.Background()
	svc := NewCategoryService(memory.New(core.DefaultCategories()))

	tests := []struct {
		name string
		want bool
	}{
		{"Dana Darurat", true},
		{"Investasi", true},
		{"Makan", false},
		{"Gaji", false},
		{"Tidak Ada", false},
	}
	for _, tt := range tests {
		got, err := svc.IsSavingsCategory(ctx, tt.name)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("IsSavingsCategory(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSuggest(t *testing.T) {
	ctx := context.Background()
	svc := NewCategoryService(memory.New(core.DefaultCategories()))

	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"makan", "Makan", true},
		{"Transprtasi", "Transportasi", true},
		{"tabugan", "Tabungan", true},
		{"xyz", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok, err := svc.Suggest(ctx, tt.input)
		if err != nil {
			t.Fatalf("%q: %v", tt.input, err)
		}
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Suggest(%q) = %q,%v want %q,%v", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}
