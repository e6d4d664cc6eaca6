// Package app wires stores, services and HTTP routes into a running process.
package app

import (
	"context"
	"fmt"
	"log"

	"foodconnect/internal/config"
	"foodconnect/internal/repository"
	"foodconnect/internal/repository/sqlite"
)

// Store is an opened backend
type Store struct {
	Repos repository.Repositories
	Ping  func(context.Context) error
	Close func()
}

// OpenStore connects to the backend selected by cfg.DBDriver and applies the schema
func OpenStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		pool, err := config.ConnectDB(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		if err := config.AutoMigrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &Store{
			Repos: repository.NewPostgresRepositories(pool),
			Ping:  pool.Ping,
			Close: pool.Close,
		}, nil
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Printf("Using SQLite database at %s", cfg.SQLitePath)
		return &Store{
			Repos: store.Repositories(),
			Ping:  store.Ping,
			Close: func() {
				if err := store.Close(); err != nil {
					log.Printf("Error closing SQLite database: %v", err)
				}
			},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}
