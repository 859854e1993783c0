package kvstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type legitimacyValue struct {
	IsValid bool `json:"isValid"`
}

// failingStore returns err from every operation
type failingStore struct {
	err error
}

func (f *failingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, f.err
}
func (f *failingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return f.err
}
func (f *failingStore) Delete(ctx context.Context, key string) error { return f.err }
func (f *failingStore) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	return 0, f.err
}
func (f *failingStore) PurgeExpired(ctx context.Context) (int64, error) { return 0, f.err }
func (f *failingStore) Ping(ctx context.Context) error                  { return f.err }
func (f *failingStore) Close() error                                    { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestNamespace_RoundTripWithEnvelope(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryStore(WithClock(clock.Now))

	ns := NewNamespace[legitimacyValue](store, LegitimacyPolicy, discardLogger()).WithClock(clock.Now)
	ns.Set(ctx, "octo/widgets", legitimacyValue{IsValid: true})

	raw, ok, _ := store.Get(ctx, "legitimacy:octo/widgets")
	if !ok {
		t.Fatal("expected namespaced key in the backing store")
	}
	if string(raw) != `{"data":{"isValid":true},"timestamp":`+strconv.FormatInt(clock.Now().UnixMilli(), 10)+`}` {
		t.Errorf("unexpected persisted layout %s", raw)
	}

	entry, ok := ns.Get(ctx, "octo/widgets")
	if !ok || !entry.Data.IsValid {
		t.Fatalf("expected cached verdict, got ok=%v entry=%+v", ok, entry)
	}
	if !entry.CapturedAt().Equal(clock.Now().Truncate(time.Millisecond)) {
		t.Errorf("unexpected capture time %v", entry.CapturedAt())
	}

	clock.Advance(24*time.Hour + time.Second)
	if _, ok := ns.Get(ctx, "octo/widgets"); ok {
		t.Error("entry must be absent after the namespace TTL")
	}
}

func TestNamespace_SwallowsBackendErrors(t *testing.T) {
	ctx := context.Background()
	ns := NewNamespace[[]string](&failingStore{err: errors.New("quota exceeded")}, LanguagePolicy, discardLogger())

	// Must not panic and must behave as an always-missing cache
	ns.Set(ctx, "octo/widgets", []string{"Go"})
	if _, ok := ns.Get(ctx, "octo/widgets"); ok {
		t.Error("failing backend must degrade to a miss")
	}
	ns.Delete(ctx, "octo/widgets")
}

func TestNamespace_UndecodableEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.Set(ctx, "bounties:list", []byte("not json"), time.Minute)

	ns := NewNamespace[[]int](store, BountyPolicy, discardLogger())
	if _, ok := ns.Get(ctx, "list"); ok {
		t.Error("corrupt entry must be treated as absent")
	}
}

func TestNamespace_Clear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	langs := NewNamespace[[]string](store, LanguagePolicy, discardLogger())
	legit := NewNamespace[legitimacyValue](store, LegitimacyPolicy, discardLogger())

	langs.Set(ctx, "a/b", []string{"Go"})
	legit.Set(ctx, "a/b", legitimacyValue{IsValid: true})

	removed, err := langs.Clear(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("Clear() = %d, %v", removed, err)
	}
	if _, ok := legit.Get(ctx, "a/b"); !ok {
		t.Error("clearing one namespace must not touch another")
	}
}

// TestExpiryProperty checks that any lookup after the TTL elapses is a miss
func TestExpiryProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("get after expiry is absent, get before is present", prop.ForAll(
		func(ttlSeconds int, elapsedSeconds int) bool {
			ctx := context.Background()
			clock := newFakeClock()
			store := NewMemoryStore(WithClock(clock.Now))

			ttl := time.Duration(ttlSeconds) * time.Second
			_ = store.Set(ctx, "k", []byte("v"), ttl)
			clock.Advance(time.Duration(elapsedSeconds) * time.Second)

			_, ok, _ := store.Get(ctx, "k")
			if elapsedSeconds > ttlSeconds {
				return !ok
			}
			return ok
		},
		gen.IntRange(1, 86400),
		gen.IntRange(0, 172800),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
