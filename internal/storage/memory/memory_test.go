package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestMemoryStoreGetSet(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, ok, err := s.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "a", "1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "a", "2"); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, ok, err := s.Get(ctx, "a")
	if err != nil || !ok || v != "2" {
		t.Fatalf("unexpected get: v=%q ok=%v err=%v", v, ok, err)
	}
}

func TestNewWithDataCopiesSeed(t *testing.T) {
	seed := map[string]string{"b": "x", "a": "y"}
	s := NewWithData(seed)
	seed["a"] = "changed"

	v, _, _ := s.Get(context.Background(), "a")
	if v != "y" {
		t.Fatalf("store shares seed map: got %q", v)
	}
	keys := s.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%4)
			_ = s.Set(ctx, key, fmt.Sprint(i))
			_, _, _ = s.Get(ctx, key)
		}(i)
	}
	wg.Wait()
	if len(s.Keys()) != 4 {
		t.Fatalf("expected 4 keys, got %v", s.Keys())
	}
}
