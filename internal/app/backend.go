// Package app wires the document store, the settlement services and their collaborators.
package app

import (
	"context"
	"fmt"

	"coffeetrace/internal/config"
	"coffeetrace/internal/core/docstore"
	"coffeetrace/internal/core/tx"
	"coffeetrace/internal/infrastructure/storage/memory"
	"coffeetrace/internal/infrastructure/storage/mongodb"
	"coffeetrace/internal/infrastructure/storage/postgres"
	"coffeetrace/pkg/logger"
)

// Backend is an opened document store with its transaction manager.
type Backend struct {
	Driver    string
	Store     docstore.Store
	TxManager tx.Manager

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

// Ping checks the store connection.
func (b *Backend) Ping(ctx context.Context) error {
	if b.ping == nil {
		return nil
	}
	return b.ping(ctx)
}

// Close releases the store connection.
func (b *Backend) Close(ctx context.Context) error {
	if b.close == nil {
		return nil
	}
	return b.close(ctx)
}

// NewMemoryBackend returns an in-process backend.
func NewMemoryBackend() *Backend {
	return &Backend{
		Driver:    config.DriverMemory,
		Store:     memory.New(),
		TxManager: tx.NewSerial(),
	}
}

// OpenBackend opens the store selected by cfg.Store.Driver.
func OpenBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		logger.Warn(ctx, "using in-memory store, data is lost on restart")
		return NewMemoryBackend(), nil

	case config.DriverMongo:
		store, err := mongodb.NewStore(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			return nil, err
		}
		logger.Info(ctx, "mongodb connection established", "db", cfg.MongoDB.DBName)
		return &Backend{
			Driver:    config.DriverMongo,
			Store:     store,
			TxManager: tx.NewSerial(),
			ping:      store.Ping,
			close:     store.Close,
		}, nil

	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Postgres.URL, int32(cfg.Postgres.MaxConns)))
		if err != nil {
			return nil, err
		}
		txm := postgres.NewTxManager(pool)
		store := postgres.NewStore(txm)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		postgres.LogPoolStats(ctx, pool)
		return &Backend{
			Driver:    config.DriverPostgres,
			Store:     store,
			TxManager: txm,
			ping:      pool.Ping,
			close: func(context.Context) error {
				pool.Close()
				return nil
			},
		}, nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}
