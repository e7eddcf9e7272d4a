package main

import (
	"context"

	"github.com/mmeshcher/storefront/internal/config"
	"github.com/mmeshcher/storefront/internal/repository"
)

type persistedStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// openStore выбирает хранилище: PostgreSQL, затем SQLite, иначе память процесса.
func openStore(cfg *config.Config) (persistedStore, string, error) {
	switch {
	case cfg.DatabaseURI != "":
		s, err := repository.NewPostgresStore(cfg.DatabaseURI)
		if err != nil {
			return nil, "", err
		}
		return s, "postgres", nil
	case cfg.SQLitePath != "":
		s, err := repository.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, "", err
		}
		return s, "sqlite", nil
	default:
		return repository.NewMemoryStore(), "memory", nil
	}
}
