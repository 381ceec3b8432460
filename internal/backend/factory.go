package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
	"fintrack/internal/store"
)

const cacheSweepInterval = time.Minute

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var cleanups []func() error
	cleanup := func() error {
		var errs []error
		for i := len(cleanups) - 1; i >= 0; i-- {
			if err := cleanups[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	result := &BackendResult{}

	switch config.Type {
	case SQLiteBackend:
		db, err := storage.NewSQLiteStore(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		cleanups = append(cleanups, db.Close)
		result.KV = db
		result.Ready = db.Ping
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	default:
		result.KV = memory.New()
		result.Ready = func(context.Context) error { return nil }
		f.logger.InfoContext(ctx, "Initialized memory backend")
	}

	var ledgerCache cache.Cache[[]core.Transaction]
	if config.CacheSize > 0 {
		lru := cache.NewLRUCache[[]core.Transaction](config.CacheSize, config.CacheTTL)
		manager := cache.NewManager()
		manager.Register(lru)
		manager.StartCleanup(cacheSweepInterval)
		cleanups = append(cleanups, func() error { manager.Stop(); return nil })
		ledgerCache = lru
		result.Cache = manager
	}
	result.Ledgers = store.NewTransactionStore(result.KV, ledgerCache)

	var publisher services.EventPublisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		switch {
		case err != nil && config.RequireAMQP:
			cleanup()
			return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
		case err != nil:
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", "error", err)
		default:
			cleanups = append(cleanups, client.Close)
			result.AMQP = client
			publisher = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	ledgerConfig := services.DefaultLedgerConfig()
	ledgerConfig.StrictCategories = config.StrictCategories
	result.Service = services.NewLedgerService(result.Ledgers, publisher, ledgerConfig)
	result.Cleanup = cleanup

	f.logger.InfoContext(ctx, "Ledger backend ready",
		"backend", config.Type,
		"cache_size", config.CacheSize,
		"events_enabled", publisher != nil,
		"strict_categories", config.StrictCategories)

	return result, nil
}
