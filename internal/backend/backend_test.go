package backend

import (
	"path/filepath"
	"testing"

	"garagebook/internal/config"
)

func TestCreateBackend(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		cfg := &config.Config{
			DataBackend:    "memory",
			LedgerFilePath: filepath.Join(t.TempDir(), "ledger.json"),
		}
		result, err := NewFactory(nil).CreateBackend(cfg)
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		if result.Store == nil {
			t.Fatal("expected a store")
		}
		if result.Cleanup != nil {
			t.Error("memory backend should have no cleanup")
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := &config.Config{
			DataBackend:  "sqlite",
			SQLiteDBPath: filepath.Join(t.TempDir(), "ledger.db"),
		}
		result, err := NewFactory(nil).CreateBackend(cfg)
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		if result.Store == nil {
			t.Fatal("expected a store")
		}
		if result.Cleanup == nil {
			t.Fatal("sqlite backend needs cleanup")
		}
		if err := result.Cleanup(); err != nil {
			t.Errorf("Cleanup: %v", err)
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		if _, err := NewFactory(nil).CreateBackend(&config.Config{DataBackend: "redis"}); err == nil {
			t.Fatal("expected error for unknown backend")
		}
	})
}
