package backend

import (
	"context"
	"errors"
	"fmt"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
	"expensetracker/internal/storage/firestore"
	"expensetracker/internal/storage/memory"
)

// statsCacheEntries bounds the number of distinct stats filters kept.
const statsCacheEntries = 256

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend opens the configured store and builds the expense service
// around it. AMQP failures only disable event publishing.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.openStore(ctx, config)
	if err != nil {
		return nil, err
	}

	opts := services.Options{
		Location:         config.Location,
		StrictCategories: config.StrictCategories,
	}

	var statsCache *cache.Ristretto[core.Stats]
	if config.StatsCacheTTL > 0 {
		statsCache, err = cache.NewRistretto[core.Stats](cache.Config{MaxItems: statsCacheEntries, TTL: config.StatsCacheTTL})
		if err != nil {
			store.Close()
			return nil, err
		}
		opts.StatsCache = statsCache
	}

	if config.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", applog.FieldError, err.Error())
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			opts.Publisher = amqpClient
		}
	}

	svc := services.NewExpenseService(store, opts)

	f.logger.Info("Initialized backend",
		applog.FieldBackend, config.Type.String(),
		"events_enabled", opts.Publisher != nil,
		"stats_cache_ttl", config.StatsCacheTTL.String())

	return &BackendResult{
		Store:   store,
		Service: svc,
		Cleanup: func() error {
			err := svc.Close()
			if statsCache != nil {
				statsCache.Close()
			}
			return err
		},
	}, nil
}

func (f *DefaultFactory) openStore(ctx context.Context, config Config) (storage.Store, error) {
	switch config.Type {
	case MemoryBackend:
		if config.MemorySeedFile == "" {
			return memory.New(), nil
		}
		store, err := memory.NewFromFile(config.MemorySeedFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load memory seed file: %w", err)
		}
		f.logger.Info("Seeded memory backend", "file", config.MemorySeedFile, "expenses", store.Len())
		return store, nil

	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		return repo, nil

	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(ctx, config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL repository: %w", err)
		}
		return repo, nil

	case FirestoreBackend:
		store, err := firestore.New(ctx, config.FirestoreProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Firestore store: %w", err)
		}
		if err := store.Ping(ctx); err != nil {
			return nil, errors.Join(fmt.Errorf("failed to reach Firestore: %w", err), store.Close())
		}
		return store, nil
	}

	return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
}
