package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/valpere/scrapping/internal/config"
	"github.com/valpere/scrapping/internal/pipeline"
)

// NewDedupeStore builds the DedupeStore named by cfg.Store ("memory",
// "sqlite", "bbolt", "postgres", "mysql", "mongo"). An empty Store
// defaults to memory, matching the always-available, never-persisted
// baseline documented in pipeline.MemoryDedupeStore.
func NewDedupeStore(ctx context.Context, cfg config.DedupeConfig) (pipeline.DedupeStore, error) {
	switch cfg.Store {
	case "", "memory":
		return pipeline.NewMemoryDedupeStore(), nil
	case "sqlite":
		return NewSQLDedupeStore("sqlite3", cfg.StoreDSN)
	case "postgres":
		return NewSQLDedupeStore("postgres", cfg.StoreDSN)
	case "mysql":
		return NewSQLDedupeStore("mysql", cfg.StoreDSN)
	case "bbolt":
		return NewBboltDedupeStore(cfg.StoreDSN)
	case "mongo":
		return newMongoDedupeStoreFromDSN(ctx, cfg.StoreDSN)
	default:
		return nil, fmt.Errorf("store: unknown dedupe store %q", cfg.Store)
	}
}

// newMongoDedupeStoreFromDSN expects a DSN of the form
// "<connection_string>|<database>|<collection>", since a mongo connection
// string alone does not name a database/collection pair.
func newMongoDedupeStoreFromDSN(ctx context.Context, dsn string) (*MongoDedupeStore, error) {
	connectionString, database, collection, err := splitMongoDSN(dsn)
	if err != nil {
		return nil, err
	}
	return NewMongoDedupeStore(ctx, connectionString, database, collection)
}

func splitMongoDSN(dsn string) (connectionString, database, collection string, err error) {
	parts := strings.Split(dsn, "|")
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("store: mongo dedupe dsn must be \"<connection_string>|<database>|<collection>\", got %q", dsn)
	}
	return parts[0], parts[1], parts[2], nil
}
