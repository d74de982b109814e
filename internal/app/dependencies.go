package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/bakery-pos/internal/domain"
	"github.com/vladislavdragonenkov/bakery-pos/internal/storage/memory"
	"github.com/vladislavdragonenkov/bakery-pos/internal/storage/postgres"
)

// Поддерживаемые драйверы хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Dependencies содержит хранилища приложения. Store заполнен только при
// postgres-драйвере.
type Dependencies struct {
	Products domain.ProductRepository
	Ledger   domain.LedgerRepository
	Outbox   domain.OutboxRepository
	Store    *postgres.Store
	Logger   *log.Entry
}

// NewDependencies собирает хранилища по выбранному драйверу.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	switch cfg.StorageDriver {
	case "", StorageDriverMemory:
		logger.Info("using in-memory storage")
		return &Dependencies{
			Products: memory.NewProductRepository(),
			Ledger:   memory.NewLedgerRepository(),
			Outbox:   memory.NewOutboxRepository(),
			Logger:   logger,
		}, nil

	case StorageDriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres storage: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply postgres migrations: %w", err)
			}
		}
		logger.Info("using postgres storage")
		return &Dependencies{
			Products: postgres.NewProductRepository(store),
			Ledger:   postgres.NewLedgerRepository(store),
			Outbox:   postgres.NewOutboxRepository(store),
			Store:    store,
			Logger:   logger,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver: %q", cfg.StorageDriver)
	}
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close() {
	if d == nil || d.Store == nil {
		return
	}
	if err := d.Store.Close(); err != nil {
		d.Logger.WithError(err).Warn("failed to close postgres store")
	}
}
