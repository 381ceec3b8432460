package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/storage/memory"
	"fintrack/internal/store"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, e *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

var fixedNow = time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, kv *memory.Store, pub EventPublisher) *LedgerService {
	t.Helper()
	n := 0
	cfg := DefaultLedgerConfig()
	cfg.Now = func() time.Time { return fixedNow }
	cfg.NewID = func() string {
		n++
		return fmt.Sprintf("tx-%d", n)
	}
	return NewLedgerService(store.NewTransactionStore(kv, nil), pub, cfg)
}

func expenseDraft(amount string) core.Draft {
	return core.Draft{Amount: amount, Type: "expense", Category: "Food", Date: "2024-01-15"}
}

func TestCreateThenGet(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.New(), nil)

	draft := core.Draft{Amount: "12.345", Type: "Expense", Category: " Food ", Date: "2024-01-15", Description: " lunch "}
	created, err := svc.Create(ctx, "u1", draft)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != "tx-1" || created.UserID != "u1" || !created.CreatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected identity fields: %+v", created)
	}

	got, err := svc.Get(ctx, "u1", created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Amount.Cents != 1235 || got.Type != core.Expense || got.Category != "Food" ||
		got.Date.String() != "2024-01-15" || got.Description != "lunch" {
		t.Fatalf("stored fields differ from draft: %+v", got)
	}
}

func TestCreateScenarios(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.New(), nil)

	if _, err := svc.Create(ctx, "u1", expenseDraft("50")); err != nil {
		t.Fatalf("create expense: %v", err)
	}
	txs, _ := svc.List(ctx, "u1")
	if s := analytics.Summarize(txs, fixedNow); s.Balance.Cents != -5000 {
		t.Fatalf("balance = %s, want -50.00", s.Balance)
	}

	svc = newTestService(t, memory.New(), nil)
	if _, err := svc.Create(ctx, "u1", core.Draft{Amount: "1000", Type: "income", Category: "Salary", Date: "2024-01-01"}); err != nil {
		t.Fatalf("create income: %v", err)
	}
	if _, err := svc.Create(ctx, "u1", expenseDraft("50")); err != nil {
		t.Fatalf("create expense: %v", err)
	}
	txs, _ = svc.List(ctx, "u1")
	s := analytics.Summarize(txs, fixedNow)
	if s.TotalIncome.Cents != 100000 || s.TotalExpenses.Cents != 5000 || s.Balance.Cents != 95000 {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name  string
		user  string
		draft core.Draft
		field string
		err   error
	}{
		{"empty user", "", expenseDraft("1"), "userId", core.ErrEmptyUser},
		{"zero amount", "u1", expenseDraft("0"), "amount", core.ErrInvalidAmount},
		{"negative amount", "u1", expenseDraft("-5"), "amount", core.ErrInvalidAmount},
		{"text amount", "u1", expenseDraft("ten"), "amount", core.ErrInvalidAmount},
		{"bad type", "u1", core.Draft{Amount: "1", Type: "loan", Category: "Food", Date: "2024-01-01"}, "type", core.ErrInvalidType},
		{"empty category", "u1", core.Draft{Amount: "1", Type: "expense", Category: " ", Date: "2024-01-01"}, "category", core.ErrEmptyCategory},
		{"bad date", "u1", core.Draft{Amount: "1", Type: "expense", Category: "Food", Date: "15/01/2024"}, "date", core.ErrInvalidDate},
		{"wrong type category", "u1", core.Draft{Amount: "1", Type: "income", Category: "Food", Date: "2024-01-01"}, "category", core.ErrUnknownCategory},
		{"first failing field wins", "u1", core.Draft{Amount: "x", Type: "loan"}, "amount", core.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := memory.New()
			svc := newTestService(t, kv, nil)
			_, err := svc.Create(context.Background(), tt.user, tt.draft)

			var verr *core.ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Fatalf("expected validation error on %q, got %v", tt.field, err)
			}
			if !errors.Is(err, tt.err) || !errors.Is(err, core.ErrValidation) {
				t.Fatalf("expected %v wrapped in a validation error, got %v", tt.err, err)
			}
			if len(kv.Keys()) != 0 {
				t.Fatalf("invalid draft must not be persisted")
			}
		})
	}
}

func TestLenientCategories(t *testing.T) {
	cfg := DefaultLedgerConfig()
	cfg.StrictCategories = false
	svc := NewLedgerService(store.NewTransactionStore(memory.New(), nil), nil, cfg)

	tx, err := svc.Create(context.Background(), "u1", core.Draft{Amount: "3", Type: "expense", Category: "Pets", Date: "2024-01-01"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tx.Category != "Pets" || tx.ID == "" {
		t.Fatalf("unexpected transaction %+v", tx)
	}
}

func TestUpdatePreservesIdentity(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.New(), nil)
	created, _ := svc.Create(ctx, "u1", expenseDraft("50"))

	svc.config.Now = func() time.Time { return fixedNow.Add(time.Hour) }
	updated, err := svc.Update(ctx, "u1", created.ID, expenseDraft("75"))
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := svc.Get(ctx, "u1", created.ID)
	if got.Amount.Cents != 7500 || updated.Amount.Cents != 7500 {
		t.Fatalf("amount not updated: %+v", got)
	}
	if got.ID != created.ID || got.UserID != created.UserID || !got.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("identity changed: before %+v after %+v", created, got)
	}
	if got.Category != created.Category || got.Date.Compare(created.Date) != 0 {
		t.Fatalf("unchanged fields were modified: %+v", got)
	}
}

func TestUpdateErrors(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.New(), nil)
	created, _ := svc.Create(ctx, "u1", expenseDraft("50"))

	if _, err := svc.Update(ctx, "u1", "missing", expenseDraft("1")); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Update(ctx, "u2", created.ID, expenseDraft("1")); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("other user's id must not be visible, got %v", err)
	}
	if _, err := svc.Update(ctx, "u1", created.ID, expenseDraft("0")); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	got, _ := svc.Get(ctx, "u1", created.ID)
	if got.Amount.Cents != 5000 {
		t.Errorf("failed update must not change the record, got %s", got.Amount)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.New(), nil)
	a, _ := svc.Create(ctx, "u1", expenseDraft("1"))
	b, _ := svc.Create(ctx, "u1", expenseDraft("2"))
	c, _ := svc.Create(ctx, "u1", expenseDraft("3"))

	if err := svc.Delete(ctx, "u1", b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, "u1", b.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	txs, _ := svc.List(ctx, "u1")
	if len(txs) != 2 || txs[0].ID != a.ID || txs[1].ID != c.ID {
		t.Fatalf("expected exactly one record removed, got %v", txs)
	}
	if err := svc.Delete(ctx, "u1", b.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.New(), nil)
	svc.Create(ctx, "u1", expenseDraft("1"))
	svc.Create(ctx, "u2", expenseDraft("2"))

	u1, _ := svc.List(ctx, "u1")
	u2, _ := svc.List(ctx, "u2")
	if len(u1) != 1 || len(u2) != 1 || u1[0].UserID != "u1" || u2[0].UserID != "u2" {
		t.Fatalf("ledgers leaked across users: %v %v", u1, u2)
	}
}

func TestCorruptLedgerBlocksMutationsUntilReset(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewWithData(map[string]string{store.Key("u1"): "not json"})
	svc := newTestService(t, kv, nil)

	txs, err := svc.List(ctx, "u1")
	if !errors.Is(err, core.ErrStorageCorrupt) || len(txs) != 0 {
		t.Fatalf("expected corrupt error with empty ledger, got %v %v", txs, err)
	}
	if _, err := svc.Create(ctx, "u1", expenseDraft("1")); !errors.Is(err, core.ErrStorageCorrupt) {
		t.Fatalf("create on corrupt ledger should fail, got %v", err)
	}
	raw, _, _ := kv.Get(ctx, store.Key("u1"))
	if raw != "not json" {
		t.Fatalf("corrupt payload must be left untouched, got %q", raw)
	}

	if err := svc.Reset(ctx, "u1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := svc.Create(ctx, "u1", expenseDraft("1")); err != nil {
		t.Fatalf("create after reset: %v", err)
	}
}

func TestPublishesEvents(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := newTestService(t, memory.New(), pub)

	tx, _ := svc.Create(ctx, "u1", expenseDraft("1"))
	svc.Update(ctx, "u1", tx.ID, expenseDraft("2"))
	svc.Delete(ctx, "u1", tx.ID)
	svc.Delete(ctx, "u1", tx.ID)

	want := []amqp.EventType{amqp.EventCreated, amqp.EventUpdated, amqp.EventDeleted}
	if len(pub.events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(pub.events))
	}
	for i, e := range pub.events {
		if e.Type != want[i] || e.UserID != "u1" || e.TransactionID != tx.ID || !e.Timestamp.Equal(fixedNow) {
			t.Errorf("event %d = %+v", i, e)
		}
	}
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := newTestService(t, memory.New(), pub)

	tx, err := svc.Create(ctx, "u1", expenseDraft("1"))
	if err != nil {
		t.Fatalf("create should succeed despite publish failure: %v", err)
	}
	if _, err := svc.Get(ctx, "u1", tx.ID); err != nil {
		t.Fatalf("transaction should be persisted: %v", err)
	}
}

func TestIDCollisionIsRetried(t *testing.T) {
	ctx := context.Background()
	ids := []string{"same", "same", "other"}
	cfg := DefaultLedgerConfig()
	cfg.NewID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}
	svc := NewLedgerService(store.NewTransactionStore(memory.New(), nil), nil, cfg)

	a, _ := svc.Create(ctx, "u1", expenseDraft("1"))
	b, err := svc.Create(ctx, "u1", expenseDraft("2"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID != "same" || b.ID != "other" {
		t.Fatalf("expected distinct ids, got %q and %q", a.ID, b.ID)
	}
}

func TestDefaultIDsAreUUIDs(t *testing.T) {
	svc := NewLedgerService(store.NewTransactionStore(memory.New(), nil), nil, LedgerConfig{StrictCategories: true})
	tx, err := svc.Create(context.Background(), "u1", expenseDraft("1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(tx.ID) != 36 {
		t.Fatalf("expected a UUID id, got %q", tx.ID)
	}
}

func TestConcurrentCreatesAreSerialized(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultLedgerConfig()
	svc := NewLedgerService(store.NewTransactionStore(memory.New(), nil), nil, cfg)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Create(ctx, "u1", expenseDraft("1")); err != nil {
				t.Errorf("create: %v", err)
			}
		}()
	}
	wg.Wait()

	txs, _ := svc.List(ctx, "u1")
	if len(txs) != 20 {
		t.Fatalf("expected 20 transactions, got %d", len(txs))
	}
}

func TestAllowedCategories(t *testing.T) {
	svc := newTestService(t, memory.New(), nil)
	if got := svc.AllowedCategories(core.Income); len(got) != 6 || got[0] != "Salary" {
		t.Fatalf("unexpected income categories %v", got)
	}
}

func TestMutationsLogTransactionFields(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx := context.Background()
	svc := newTestService(t, memory.New(), nil)
	created, err := svc.Create(ctx, "u1", expenseDraft("50"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Update(ctx, "u1", created.ID, expenseDraft("75")); err != nil {
		t.Fatalf("update: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %q", buf.String())
	}
	tests := []struct {
		line string
		want []string
	}{
		{lines[0], []string{`msg="Transaction created"`, "operation=create", "user_id=u1", "transaction_id=tx-1", "type=expense", "category=Food", "amount=50.00"}},
		{lines[1], []string{`msg="Transaction updated"`, "operation=update", "transaction_id=tx-1", "amount=75.00"}},
	}
	for _, tt := range tests {
		for _, w := range tt.want {
			if !strings.Contains(tt.line, w) {
				t.Errorf("log line %q missing %q", tt.line, w)
			}
		}
	}
}
