package kvstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestSQLiteStore(t *testing.T, clock *fakeClock) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "kv.db"), WithClock(clock.Now))
	if err != nil {
		t.Fatalf("Failed to create SQLite store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// backends returns each Store implementation wired to the same clock
func backends(t *testing.T, clock *fakeClock) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(WithClock(clock.Now)),
		"sqlite": newTestSQLiteStore(t, clock),
	}
}

func TestStore_GetSet(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t, newFakeClock()) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := store.Get(ctx, "missing"); err != nil || ok {
				t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
			}

			if err := store.Set(ctx, "k", []byte("v1"), time.Minute); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if err := store.Set(ctx, "k", []byte("v2"), time.Minute); err != nil {
				t.Fatalf("Set failed: %v", err)
			}

			got, ok, err := store.Get(ctx, "k")
			if err != nil || !ok {
				t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
			}
			if string(got) != "v2" {
				t.Errorf("expected overwritten value v2, got %s", got)
			}

			if err := store.Delete(ctx, "k"); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, ok, _ := store.Get(ctx, "k"); ok {
				t.Error("expected miss after delete")
			}
		})
	}
}

func TestStore_ExpiredEntryIsAbsentButPhysicallyPresent(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()

	memory := NewMemoryStore(WithClock(clock.Now))
	sqlite := newTestSQLiteStore(t, clock)

	for _, store := range []Store{memory, sqlite} {
		if err := store.Set(ctx, "languages:octo/widgets", []byte(`{}`), 30*time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	clock.Advance(30 * time.Minute)
	for _, store := range []Store{memory, sqlite} {
		if _, ok, _ := store.Get(ctx, "languages:octo/widgets"); !ok {
			t.Error("entry at exactly its expiry instant should still be live")
		}
	}

	clock.Advance(time.Second)
	for _, store := range []Store{memory, sqlite} {
		if _, ok, _ := store.Get(ctx, "languages:octo/widgets"); ok {
			t.Error("expired entry must be reported as absent")
		}
	}

	if memory.Len() != 1 {
		t.Errorf("memory store should still hold the dead entry, got %d", memory.Len())
	}
	rows, err := sqlite.RowCount(ctx)
	if err != nil {
		t.Fatalf("RowCount failed: %v", err)
	}
	if rows != 1 {
		t.Errorf("sqlite store should still hold the dead row, got %d", rows)
	}
}

func TestStore_ZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()

	for name, store := range backends(t, clock) {
		t.Run(name, func(t *testing.T) {
			if err := store.Set(ctx, "ratelimit:reset", []byte("1700000000000"), 0); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			clock.Advance(365 * 24 * time.Hour)
			if _, ok, _ := store.Get(ctx, "ratelimit:reset"); !ok {
				t.Error("entry without TTL should never expire")
			}
		})
	}
}

func TestStore_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()

	for name, store := range backends(t, clock) {
		t.Run(name, func(t *testing.T) {
			_ = store.Set(ctx, "a", []byte("1"), time.Minute)
			_ = store.Set(ctx, "b", []byte("2"), time.Hour)
			_ = store.Set(ctx, "c", []byte("3"), 0)

			clock.Advance(2 * time.Minute)

			removed, err := store.PurgeExpired(ctx)
			if err != nil {
				t.Fatalf("PurgeExpired failed: %v", err)
			}
			if removed != 1 {
				t.Errorf("expected 1 purged entry, got %d", removed)
			}
			if _, ok, _ := store.Get(ctx, "b"); !ok {
				t.Error("live entry b was purged")
			}
			if _, ok, _ := store.Get(ctx, "c"); !ok {
				t.Error("entry without TTL was purged")
			}
			clock.Advance(-2 * time.Minute)
		})
	}
}

func TestStore_DeletePrefix(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t, newFakeClock()) {
		t.Run(name, func(t *testing.T) {
			_ = store.Set(ctx, "legitimacy:octo/a", []byte("1"), time.Hour)
			_ = store.Set(ctx, "legitimacy:octo/b", []byte("1"), time.Hour)
			_ = store.Set(ctx, "languages:octo/a", []byte("1"), time.Hour)
			_ = store.Set(ctx, "legitimacy_x", []byte("1"), time.Hour)

			removed, err := store.DeletePrefix(ctx, "legitimacy:")
			if err != nil {
				t.Fatalf("DeletePrefix failed: %v", err)
			}
			if removed != 2 {
				t.Errorf("expected 2 removed, got %d", removed)
			}
			if _, ok, _ := store.Get(ctx, "languages:octo/a"); !ok {
				t.Error("other namespace must survive")
			}
			if _, ok, _ := store.Get(ctx, "legitimacy_x"); !ok {
				t.Error("underscore must not act as a wildcard")
			}
		})
	}
}

func TestSQLiteStore_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persist.db")

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("Failed to create SQLite store: %v", err)
	}
	if err := store.Set(ctx, "bounties:list", []byte(`{"data":[]}`), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	store.Close()

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("Failed to reopen SQLite store: %v", err)
	}
	defer reopened.Close()

	if err := reopened.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	got, ok, err := reopened.Get(ctx, "bounties:list")
	if err != nil || !ok {
		t.Fatalf("expected value to survive reopen, ok=%v err=%v", ok, err)
	}
	if string(got) != `{"data":[]}` {
		t.Errorf("unexpected value %s", got)
	}
}
