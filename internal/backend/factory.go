// Package backend selects and constructs the persistence layer from
// configuration.
package backend

import (
	"fmt"
	"log/slog"

	"finapi/internal/config"
	"finapi/internal/storage"
	"finapi/internal/store"
	"finapi/internal/store/memory"
)

type Kind string

const (
	SQLiteBackend Kind = "sqlite"
	MemoryBackend Kind = "memory"
)

func (k Kind) IsValid() bool {
	return k == SQLiteBackend || k == MemoryBackend
}

// New builds the store named by the config. The returned store owns
// its resources; callers close it on shutdown.
func New(cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	kind := Kind(cfg.DataBackend)
	switch kind {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite repository: %w", err)
		}
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return repo, nil
	case MemoryBackend:
		logger.Info("Initialized memory backend")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.DataBackend)
	}
}
