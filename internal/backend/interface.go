package backend

import (
	"context"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/services"
	"fintrack/internal/storage"
	"fintrack/internal/store"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult bundles the wired ledger stack for one process.
type BackendResult struct {
	KV      storage.KV
	Ledgers *store.TransactionStore
	Service *services.LedgerService

	// AMQP is nil when events are disabled or the broker was unreachable.
	AMQP  *amqp.Client
	Cache *cache.Manager

	// Ready reports whether the storage backend can serve requests.
	Ready   func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Ledger events, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	// RequireAMQP fails creation when the broker is unreachable instead
	// of continuing without events.
	RequireAMQP bool

	// Ledger
	StrictCategories bool
	CacheSize        int
	CacheTTL         time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
