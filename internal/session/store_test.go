package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/franmoretti/tiendabot-backend/pkg/llm"
)

type fakeCache struct {
	values map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]string)}
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (f *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.values[key] = fmt.Sprintf("%v", value)
	return nil
}

func (f *fakeCache) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func (f *fakeCache) SessionKey(tenantID, customerID string) string {
	return "session:" + tenantID + ":" + customerID
}

func TestRedisStoreAppendTrimsHistory(t *testing.T) {
	store, err := NewRedisStore(newFakeCache(), time.Hour, 4)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		err := store.Append(ctx, "t1", "c1", llm.Message{Role: llm.RoleUser, Content: fmt.Sprintf("turno %d", i)})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	history, err := store.History(ctx, "t1", "c1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("history = %d messages, want 4", len(history))
	}
	if history[0].Content != "turno 2" || history[3].Content != "turno 5" {
		t.Fatalf("oldest turns must be trimmed first, got %+v", history)
	}
}

func TestRedisStoreMissingSessionIsEmpty(t *testing.T) {
	store, err := NewRedisStore(newFakeCache(), time.Hour, 4)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}

	history, err := store.History(context.Background(), "t1", "nunca-escribio")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("history = %d messages, want 0", len(history))
	}
}

func TestRedisStoreCorruptPayloadIsDropped(t *testing.T) {
	cache := newFakeCache()
	store, err := NewRedisStore(cache, time.Hour, 4)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	ctx := context.Background()

	cache.values[cache.SessionKey("t1", "c1")] = "{not json"

	history, err := store.History(ctx, "t1", "c1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if history != nil {
		t.Fatalf("corrupt payload must read as empty, got %+v", history)
	}

	// The next append starts a fresh session over the corrupt value.
	if err := store.Append(ctx, "t1", "c1", llm.Message{Role: llm.RoleUser, Content: "hola"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	history, err = store.History(ctx, "t1", "c1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].Content != "hola" {
		t.Fatalf("history = %+v", history)
	}
}

func TestRedisStoreEvict(t *testing.T) {
	store, err := NewRedisStore(newFakeCache(), time.Hour, 4)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	ctx := context.Background()

	if err := store.Append(ctx, "t1", "c1", llm.Message{Role: llm.RoleUser, Content: "hola"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Evict(ctx, "t1", "c1"); err != nil {
		t.Fatalf("Evict: %v", err)
	}
	history, err := store.History(ctx, "t1", "c1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("history = %d messages after evict, want 0", len(history))
	}
}

func TestMemoryStoreTrimsAndCopies(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := store.Append(ctx, "t1", "c1", llm.Message{Role: llm.RoleUser, Content: fmt.Sprintf("turno %d", i)}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	history, err := store.History(ctx, "t1", "c1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 3 || history[0].Content != "turno 2" {
		t.Fatalf("history = %+v", history)
	}

	// Mutating the returned slice must not leak into the store.
	history[0].Content = "mutado"
	again, err := store.History(ctx, "t1", "c1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if again[0].Content != "turno 2" {
		t.Fatalf("store history was mutated through the returned slice")
	}
}
