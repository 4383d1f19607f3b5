// Package backend selects and builds the ledger store named by the
// configuration.
package backend

import (
	"fmt"
	"log/slog"

	"garagebook/internal/config"
	"garagebook/internal/ledger"
	"garagebook/internal/ledger/memory"
	"garagebook/internal/storage"
)

// Type names a store implementation.
type Type string

const (
	MemoryBackend Type = "memory"
	SQLiteBackend Type = "sqlite"
)

func (t Type) String() string { return string(t) }

func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}

// CleanupFunc releases backend resources at shutdown.
type CleanupFunc func() error

// Result carries the built store and its optional cleanup.
type Result struct {
	Store   ledger.Store
	Cleanup CleanupFunc
}

// Factory builds stores from application config.
type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

func (f *Factory) CreateBackend(cfg *config.Config) (*Result, error) {
	t := Type(cfg.DataBackend)
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}

	switch t {
	case SQLiteBackend:
		return f.createSQLiteBackend(cfg)
	default:
		return f.createMemoryBackend(cfg)
	}
}

func (f *Factory) createSQLiteBackend(cfg *config.Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
	return &Result{Store: repo, Cleanup: repo.Close}, nil
}

func (f *Factory) createMemoryBackend(cfg *config.Config) (*Result, error) {
	store, err := memory.NewFromFile(cfg.LedgerFilePath)
	if err != nil {
		return nil, fmt.Errorf("initialize file-backed store: %w", err)
	}

	f.logger.Info("Initialized memory backend", "ledger_file", cfg.LedgerFilePath)
	return &Result{Store: store, Cleanup: nil}, nil
}
