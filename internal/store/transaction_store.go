package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

const keyPrefix = "transactions:"

// Key returns the KV key holding a user's ledger.
func Key(userID string) string {
	return keyPrefix + userID
}

// TransactionStore persists each user's ledger as one JSON value. It is the
// only component that talks to the KV boundary.
type TransactionStore struct {
	kv    storage.KV
	cache cache.Cache[[]core.Transaction]
	group singleflight.Group

	mu      sync.Mutex
	version map[string]uint64
}

// NewTransactionStore builds a store over kv. ledgerCache may be nil to
// disable caching of decoded ledgers.
func NewTransactionStore(kv storage.KV, ledgerCache cache.Cache[[]core.Transaction]) *TransactionStore {
	return &TransactionStore{
		kv:      kv,
		cache:   ledgerCache,
		version: make(map[string]uint64),
	}
}

// Load returns the user's ledger. A missing key is an empty ledger. An
// unreadable payload yields an empty ledger together with a
// *core.CorruptionError so the caller decides whether to degrade.
func (s *TransactionStore) Load(ctx context.Context, userID string) ([]core.Transaction, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, core.NewValidationError("userId", core.ErrEmptyUser)
	}

	if s.cache != nil {
		if txs, ok := s.cache.Get(userID); ok {
			return slices.Clone(txs), nil
		}
	}

	v, err, _ := s.group.Do(userID, func() (any, error) {
		return s.load(ctx, userID)
	})
	if err != nil {
		return []core.Transaction{}, err
	}
	return slices.Clone(v.([]core.Transaction)), nil
}

func (s *TransactionStore) load(ctx context.Context, userID string) ([]core.Transaction, error) {
	gen := s.generation(userID)

	payload, found, err := s.kv.Get(ctx, Key(userID))
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if !found {
		return []core.Transaction{}, nil
	}

	txs, err := decodeLedger(userID, payload)
	if err != nil {
		slog.WarnContext(ctx, "Stored ledger could not be decoded",
			"user_id", userID,
			"bytes", len(payload),
			"error", err)
		return nil, &core.CorruptionError{UserID: userID, Err: err}
	}

	// Skip caching if a save landed while we were reading.
	if s.cache != nil && s.generation(userID) == gen {
		s.cache.Set(userID, txs)
	}
	return txs, nil
}

// SaveAll replaces the user's entire ledger in a single KV write.
func (s *TransactionStore) SaveAll(ctx context.Context, userID string, txs []core.Transaction) error {
	if strings.TrimSpace(userID) == "" {
		return core.NewValidationError("userId", core.ErrEmptyUser)
	}
	for _, t := range txs {
		if t.UserID != userID {
			return fmt.Errorf("save ledger: transaction %q belongs to %q, not %q", t.ID, t.UserID, userID)
		}
	}

	payload, err := encodeLedger(txs)
	if err != nil {
		return err
	}

	s.bump(userID)
	if err := s.kv.Set(ctx, Key(userID), payload); err != nil {
		if s.cache != nil {
			s.cache.Delete(userID)
		}
		return fmt.Errorf("save ledger: %w", err)
	}
	s.group.Forget(userID)

	if s.cache != nil {
		s.cache.Set(userID, slices.Clone(txs))
	}

	slog.DebugContext(ctx, "Ledger saved",
		"user_id", userID,
		"count", len(txs))
	return nil
}

func (s *TransactionStore) generation(userID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version[userID]
}

func (s *TransactionStore) bump(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version[userID]++
}
