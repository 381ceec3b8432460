package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/storage/memory"
)

type countingKV struct {
	*memory.Store
	gets   int
	setErr error
}

func (c *countingKV) Get(ctx context.Context, key string) (string, bool, error) {
	c.gets++
	return c.Store.Get(ctx, key)
}

func (c *countingKV) Set(ctx context.Context, key, value string) error {
	if c.setErr != nil {
		return c.setErr
	}
	return c.Store.Set(ctx, key, value)
}

func sampleTx(id string, cents int64) core.Transaction {
	return core.Transaction{
		ID:          id,
		UserID:      "u1",
		Amount:      core.Money{Cents: cents},
		Type:        core.Expense,
		Category:    "Food",
		Date:        core.NewDate(2024, 1, 15),
		Description: "lunch",
		CreatedAt:   time.Date(2024, 1, 15, 12, 30, 0, 0, time.UTC),
	}
}

func TestLoadMissingKeyIsEmpty(t *testing.T) {
	s := NewTransactionStore(memory.New(), nil)
	txs, err := s.Load(context.Background(), "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if txs == nil || len(txs) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", txs)
	}
}

func TestSaveAllThenLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	s := NewTransactionStore(kv, nil)

	in := []core.Transaction{sampleTx("a", 5000), sampleTx("b", 1)}
	in[1].Type = core.Income
	in[1].Category = "Gift"
	in[1].Description = ""
	if err := s.SaveAll(ctx, "u1", in); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, _, _ := kv.Get(ctx, "transactions:u1")
	if !strings.Contains(raw, `"amount":50.00`) || !strings.Contains(raw, `"date":"2024-01-15"`) {
		t.Fatalf("unexpected payload: %s", raw)
	}
	if strings.Count(raw, `"description"`) != 1 {
		t.Fatalf("empty description should be omitted: %s", raw)
	}

	out, err := s.Load(ctx, "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out))
	}
	for i := range in {
		if out[i].ID != in[i].ID || out[i].Amount != in[i].Amount || out[i].Type != in[i].Type ||
			out[i].Category != in[i].Category || out[i].Date.Compare(in[i].Date) != 0 ||
			out[i].Description != in[i].Description || !out[i].CreatedAt.Equal(in[i].CreatedAt) {
			t.Fatalf("record %d mismatch: got %+v want %+v", i, out[i], in[i])
		}
	}
}

func TestLoadLegacyPayload(t *testing.T) {
	payload := `[{"id":"1705312200000","amount":"12.5","type":"expense","category":"Food",
		"date":"2024-01-15T00:00:00.000Z","userId":"u1","createdAt":"2024-01-15T10:30:00.000Z"},
		{"id":"2","amount":1000,"type":"income","category":"Salary","date":"2024-01-01","description":"pay"}]`
	s := NewTransactionStore(memory.NewWithData(map[string]string{"transactions:u1": payload}), nil)

	txs, err := s.Load(context.Background(), "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(txs))
	}
	if txs[0].Amount.Cents != 1250 || txs[0].Date.String() != "2024-01-15" {
		t.Fatalf("unexpected first record: %+v", txs[0])
	}
	if txs[1].UserID != "u1" || txs[1].Amount.Cents != 100000 {
		t.Fatalf("unexpected second record: %+v", txs[1])
	}
}

func TestLoadCorruptPayload(t *testing.T) {
	cases := map[string]string{
		"not json":       `{{{`,
		"object":         `{"id":"1"}`,
		"zero amount":    `[{"id":"1","amount":0,"type":"expense","category":"Food","date":"2024-01-01","userId":"u1"}]`,
		"bad type":       `[{"id":"1","amount":1,"type":"loan","category":"Food","date":"2024-01-01","userId":"u1"}]`,
		"bad date":       `[{"id":"1","amount":1,"type":"expense","category":"Food","date":"soon","userId":"u1"}]`,
		"foreign owner":  `[{"id":"1","amount":1,"type":"expense","category":"Food","date":"2024-01-01","userId":"u2"}]`,
		"duplicate id":   `[{"id":"1","amount":1,"type":"expense","category":"Food","date":"2024-01-01"},{"id":"1","amount":2,"type":"expense","category":"Food","date":"2024-01-02"}]`,
		"empty category": `[{"id":"1","amount":1,"type":"expense","category":"","date":"2024-01-01"}]`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			s := NewTransactionStore(memory.NewWithData(map[string]string{"transactions:u1": payload}), nil)
			txs, err := s.Load(context.Background(), "u1")
			if !errors.Is(err, core.ErrStorageCorrupt) {
				t.Fatalf("expected ErrStorageCorrupt, got %v", err)
			}
			var cerr *core.CorruptionError
			if !errors.As(err, &cerr) || cerr.UserID != "u1" {
				t.Fatalf("expected CorruptionError for u1, got %v", err)
			}
			if txs == nil || len(txs) != 0 {
				t.Fatalf("expected empty ledger alongside error, got %#v", txs)
			}
		})
	}
}

func TestLoadUsesCacheAndReturnsCopies(t *testing.T) {
	ctx := context.Background()
	kv := &countingKV{Store: memory.New()}
	s := NewTransactionStore(kv, cache.NewLRUCache[[]core.Transaction](8, time.Minute))

	if err := s.SaveAll(ctx, "u1", []core.Transaction{sampleTx("a", 100)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	first, err := s.Load(ctx, "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	first[0].Category = "mutated"

	second, _ := s.Load(ctx, "u1")
	if second[0].Category != "Food" {
		t.Fatalf("cached ledger was mutated through a returned slice")
	}
	if kv.gets != 0 {
		t.Fatalf("expected cache hits only, got %d KV reads", kv.gets)
	}
}

func TestSaveAllFailureDropsCacheEntry(t *testing.T) {
	ctx := context.Background()
	kv := &countingKV{Store: memory.New()}
	c := cache.NewLRUCache[[]core.Transaction](8, time.Minute)
	s := NewTransactionStore(kv, c)

	if err := s.SaveAll(ctx, "u1", []core.Transaction{sampleTx("a", 100)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	kv.setErr = errors.New("disk full")
	if err := s.SaveAll(ctx, "u1", nil); err == nil {
		t.Fatalf("expected save error")
	}
	if _, ok := c.Get("u1"); ok {
		t.Fatalf("cache should be invalidated after failed save")
	}

	txs, err := s.Load(ctx, "u1")
	if err != nil || len(txs) != 1 {
		t.Fatalf("expected persisted ledger to survive failed save, got %v %v", txs, err)
	}
}

func TestSaveAllRejectsForeignRecords(t *testing.T) {
	s := NewTransactionStore(memory.New(), nil)
	tx := sampleTx("a", 100)
	tx.UserID = "u2"
	if err := s.SaveAll(context.Background(), "u1", []core.Transaction{tx}); err == nil {
		t.Fatalf("expected error saving another user's record")
	}
}

func TestEmptyUserID(t *testing.T) {
	s := NewTransactionStore(memory.New(), nil)
	if _, err := s.Load(context.Background(), " "); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := s.SaveAll(context.Background(), "", nil); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
