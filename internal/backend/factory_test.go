package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"autofint/internal/config"
	"autofint/internal/core"
)

func TestFromAppConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.DataBackend = "memory"
	got, err := FromAppConfig(&cfg)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if got.Type != MemoryBackend || got.DataDirectory != "data" {
		t.Fatalf("unexpected backend config: %+v", got)
	}

	cfg.DataBackend = "sheets"
	if _, err := FromAppConfig(&cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "memory", config: Config{Type: MemoryBackend}},
		{name: "sqlite", config: Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}},
		{name: "sqlite without path", config: Config{Type: SQLiteBackend}, wantErr: true},
		{name: "unknown type", config: Config{Type: "sheets"}, wantErr: true},
		{name: "amqp without queue", config: Config{Type: MemoryBackend, AMQPURL: "amqp://x", AMQPExchange: "e"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "categories.txt"), []byte("Income:Gaji\nExpense:Makan\n"), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: dir})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Cleanup()

	if res.Publisher != nil {
		t.Fatal("publisher must be nil without AMQP_URL")
	}
	n, err := res.Store.CountCategories(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("CountCategories = %d, %v; want 2", n, err)
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}

	ctx := context.Background()
	if _, err := res.Store.InsertCategory(ctx, core.Category{Name: "Makan", Type: core.Expense}); err != nil {
		t.Fatalf("InsertCategory: %v", err)
	}
	if err := res.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file not created: %v", err)
	}
}
