package database

import (
	"context"
	"time"

	"bipv-docs/internal/config"

	"github.com/pkg/errors"
)

var (
	_ Store = (*MemoryDB)(nil)
	_ Store = (*MongoDB)(nil)
	_ Store = (*PostgresDB)(nil)
)

// Open connects the backend selected by cfg.Type.
func Open(cfg *config.DatabaseConfig) (Store, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryDB(), nil
	case "mongo":
		return NewMongoDB(cfg.URI, cfg.MongoDatabase)
	case "postgres":
		db, err := NewPostgresDB(cfg.URI)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := db.InitializeTables(ctx); err != nil {
			db.Close(ctx)
			return nil, err
		}
		return db, nil
	default:
		return nil, errors.Errorf("unsupported database type %q", cfg.Type)
	}
}
