package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// LedgerStore persists a user's whole transaction set.
type LedgerStore interface {
	Load(ctx context.Context, userID string) ([]core.Transaction, error)
	SaveAll(ctx context.Context, userID string, txs []core.Transaction) error
}

// EventPublisher announces committed ledger changes.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error
}

// LedgerConfig holds configuration for the ledger service
type LedgerConfig struct {
	// StrictCategories rejects categories outside the fixed set for the
	// transaction type (default: true)
	StrictCategories bool

	// Now is the clock used for CreatedAt and event timestamps (default: time.Now)
	Now func() time.Time

	// NewID generates transaction ids (default: random UUID)
	NewID func() string
}

// DefaultLedgerConfig returns sensible defaults
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		StrictCategories: true,
		Now:              time.Now,
		NewID:            uuid.NewString,
	}
}

const maxIDAttempts = 5

// LedgerService is the single mutation path for user ledgers. Each mutation
// validates, loads the current set, applies the change and persists the
// whole set again; in-process mutations for one user are serialized.
type LedgerService struct {
	store     LedgerStore
	publisher EventPublisher
	config    LedgerConfig

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLedgerService creates a ledger service. publisher may be nil.
func NewLedgerService(store LedgerStore, publisher EventPublisher, config LedgerConfig) *LedgerService {
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.NewID == nil {
		config.NewID = uuid.NewString
	}
	return &LedgerService{
		store:     store,
		publisher: publisher,
		config:    config,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Create validates draft and appends a new transaction with a fresh id and
// creation time.
func (s *LedgerService) Create(ctx context.Context, userID string, draft core.Draft) (core.Transaction, error) {
	if err := checkUser(userID); err != nil {
		return core.Transaction{}, err
	}
	fields, err := s.validate(draft)
	if err != nil {
		return core.Transaction{}, err
	}

	unlock := s.lock(userID)
	defer unlock()

	txs, err := s.store.Load(ctx, userID)
	if err != nil {
		return core.Transaction{}, err
	}

	id, err := s.newID(txs)
	if err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		ID:        id,
		UserID:    userID,
		CreatedAt: s.config.Now().UTC(),
	}.Apply(fields)

	if err := s.store.SaveAll(ctx, userID, append(txs, tx)); err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created", transactionFields(applog.OpCreate, tx)...)
	s.publish(ctx, amqp.EventCreated, userID, tx.ID)
	return tx, nil
}

// Update replaces the mutable fields of an existing transaction. ID, owner
// and creation time are kept.
func (s *LedgerService) Update(ctx context.Context, userID, id string, draft core.Draft) (core.Transaction, error) {
	if err := checkUser(userID); err != nil {
		return core.Transaction{}, err
	}
	if err := checkID(id); err != nil {
		return core.Transaction{}, err
	}
	fields, err := s.validate(draft)
	if err != nil {
		return core.Transaction{}, err
	}

	unlock := s.lock(userID)
	defer unlock()

	txs, err := s.store.Load(ctx, userID)
	if err != nil {
		return core.Transaction{}, err
	}
	i := indexOf(txs, id)
	if i < 0 {
		return core.Transaction{}, notFound(id)
	}
	txs[i] = txs[i].Apply(fields)

	if err := s.store.SaveAll(ctx, userID, txs); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction updated", transactionFields(applog.OpUpdate, txs[i])...)
	s.publish(ctx, amqp.EventUpdated, userID, id)
	return txs[i], nil
}

// Delete removes one transaction.
func (s *LedgerService) Delete(ctx context.Context, userID, id string) error {
	if err := checkUser(userID); err != nil {
		return err
	}
	if err := checkID(id); err != nil {
		return err
	}

	unlock := s.lock(userID)
	defer unlock()

	txs, err := s.store.Load(ctx, userID)
	if err != nil {
		return err
	}
	i := indexOf(txs, id)
	if i < 0 {
		return notFound(id)
	}

	if err := s.store.SaveAll(ctx, userID, slices.Delete(txs, i, i+1)); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction deleted",
		"user_id", userID,
		"transaction_id", id)
	s.publish(ctx, amqp.EventDeleted, userID, id)
	return nil
}

// Get returns one transaction by id.
func (s *LedgerService) Get(ctx context.Context, userID, id string) (core.Transaction, error) {
	if err := checkUser(userID); err != nil {
		return core.Transaction{}, err
	}
	if err := checkID(id); err != nil {
		return core.Transaction{}, err
	}
	txs, err := s.store.Load(ctx, userID)
	if err != nil {
		return core.Transaction{}, err
	}
	i := indexOf(txs, id)
	if i < 0 {
		return core.Transaction{}, notFound(id)
	}
	return txs[i], nil
}

// List returns the user's whole ledger in stored order. A corrupt ledger
// yields an empty slice together with the corruption error.
func (s *LedgerService) List(ctx context.Context, userID string) ([]core.Transaction, error) {
	if err := checkUser(userID); err != nil {
		return []core.Transaction{}, err
	}
	return s.store.Load(ctx, userID)
}

// Reset discards the user's ledger by persisting an empty set. It is the
// way out of a corrupt ledger.
func (s *LedgerService) Reset(ctx context.Context, userID string) error {
	if err := checkUser(userID); err != nil {
		return err
	}

	unlock := s.lock(userID)
	defer unlock()

	if err := s.store.SaveAll(ctx, userID, []core.Transaction{}); err != nil {
		return fmt.Errorf("reset ledger: %w", err)
	}
	slog.WarnContext(ctx, "Ledger reset", "user_id", userID)
	return nil
}

// AllowedCategories lists the categories accepted for typ.
func (s *LedgerService) AllowedCategories(typ core.TransactionType) []string {
	return core.CategoriesFor(typ)
}

func (s *LedgerService) validate(draft core.Draft) (core.Fields, error) {
	fields, err := draft.Validate()
	if err != nil {
		return core.Fields{}, err
	}
	if s.config.StrictCategories && !core.CategoryAllowed(fields.Type, fields.Category) {
		return core.Fields{}, core.NewValidationError("category", core.ErrUnknownCategory)
	}
	return fields, nil
}

func (s *LedgerService) newID(txs []core.Transaction) (string, error) {
	for range maxIDAttempts {
		id := s.config.NewID()
		if strings.TrimSpace(id) != "" && indexOf(txs, id) < 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique transaction id after %d attempts", maxIDAttempts)
}

func (s *LedgerService) lock(userID string) func() {
	s.mu.Lock()
	m, ok := s.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[userID] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func (s *LedgerService) publish(ctx context.Context, typ amqp.EventType, userID, id string) {
	if s.publisher == nil {
		return
	}
	event := amqp.NewLedgerEvent(typ, userID, id, s.config.Now())
	if err := s.publisher.PublishLedgerEvent(ctx, event); err != nil {
		// The ledger is already saved; consumers catch up on the next event.
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"type", typ,
			"user_id", userID,
			"transaction_id", id,
			"error", err)
	}
}

func transactionFields(op string, tx core.Transaction) []any {
	return applog.NewFields().
		WithUser(tx.UserID).
		WithOperation(op).
		WithTransaction(tx.ID, tx.Type.String(), tx.Category, tx.Amount.String()).
		ToSlice()
}

func checkUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return core.NewValidationError("userId", core.ErrEmptyUser)
	}
	return nil
}

func checkID(id string) error {
	if strings.TrimSpace(id) == "" {
		return core.NewValidationError("id", core.ErrEmptyID)
	}
	return nil
}

func indexOf(txs []core.Transaction, id string) int {
	return slices.IndexFunc(txs, func(t core.Transaction) bool { return t.ID == id })
}

func notFound(id string) error {
	return fmt.Errorf("transaction %q: %w", id, core.ErrNotFound)
}
