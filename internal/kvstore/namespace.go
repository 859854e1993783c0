package kvstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/devlopersumit/issuehub/internal/observability"
)

// Policy names a key namespace and the TTL applied to every entry in it
type Policy struct {
	Name string
	TTL  time.Duration
}

// Namespace policies used by the service
var (
	BountyPolicy     = Policy{Name: "bounties", TTL: 5 * time.Minute}
	LanguagePolicy   = Policy{Name: "languages", TTL: 30 * time.Minute}
	LegitimacyPolicy = Policy{Name: "legitimacy", TTL: 24 * time.Hour}
	RateLimitPolicy  = Policy{Name: "ratelimit", TTL: 0}

	// SearchPolicy holds the last good page per query for stale fallback
	SearchPolicy = Policy{Name: "search", TTL: 7 * 24 * time.Hour}
)

// Entry is the persisted envelope: the payload plus its capture time in unix milliseconds
type Entry[T any] struct {
	Data      T     `json:"data"`
	Timestamp int64 `json:"timestamp"`
}

// CapturedAt returns the capture time
func (e Entry[T]) CapturedAt() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Namespace is a typed view over a Store. Backend and decoding errors are
// logged and swallowed so a broken store degrades to a cache that always misses.
type Namespace[T any] struct {
	store  Store
	policy Policy
	logger *slog.Logger
	now    func() time.Time
}

// NewNamespace creates a typed namespace over store
func NewNamespace[T any](store Store, policy Policy, logger *slog.Logger) *Namespace[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Namespace[T]{
		store:  store,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the capture-time source
func (n *Namespace[T]) WithClock(now func() time.Time) *Namespace[T] {
	n.now = now
	return n
}

// Policy returns the namespace policy
func (n *Namespace[T]) Policy() Policy {
	return n.policy
}

// Key returns the fully qualified store key
func (n *Namespace[T]) Key(key string) string {
	return n.policy.Name + ":" + key
}

// Get returns the live entry for key
func (n *Namespace[T]) Get(ctx context.Context, key string) (Entry[T], bool) {
	metrics := observability.GetMetrics()

	raw, ok, err := n.store.Get(ctx, n.Key(key))
	if err != nil {
		metrics.CacheErrors.WithLabelValues(n.policy.Name).Inc()
		n.logger.Debug("cache read failed",
			"namespace", n.policy.Name,
			"key", key,
			"error", err)
		return Entry[T]{}, false
	}
	if !ok {
		metrics.CacheLookups.WithLabelValues(n.policy.Name, "miss").Inc()
		return Entry[T]{}, false
	}

	var entry Entry[T]
	if err := json.Unmarshal(raw, &entry); err != nil {
		metrics.CacheErrors.WithLabelValues(n.policy.Name).Inc()
		n.logger.Debug("cache entry undecodable",
			"namespace", n.policy.Name,
			"key", key,
			"error", err)
		return Entry[T]{}, false
	}

	metrics.CacheLookups.WithLabelValues(n.policy.Name, "hit").Inc()
	return entry, true
}

// Set stores value with the namespace TTL
func (n *Namespace[T]) Set(ctx context.Context, key string, value T) {
	entry := Entry[T]{Data: value, Timestamp: n.now().UnixMilli()}

	raw, err := json.Marshal(entry)
	if err != nil {
		n.logger.Debug("cache entry unencodable",
			"namespace", n.policy.Name,
			"key", key,
			"error", err)
		return
	}

	if err := n.store.Set(ctx, n.Key(key), raw, n.policy.TTL); err != nil {
		observability.GetMetrics().CacheErrors.WithLabelValues(n.policy.Name).Inc()
		n.logger.Debug("cache write failed",
			"namespace", n.policy.Name,
			"key", key,
			"error", err)
	}
}

// Delete removes key
func (n *Namespace[T]) Delete(ctx context.Context, key string) {
	if err := n.store.Delete(ctx, n.Key(key)); err != nil {
		n.logger.Debug("cache delete failed",
			"namespace", n.policy.Name,
			"key", key,
			"error", err)
	}
}

// Clear removes every key in the namespace
func (n *Namespace[T]) Clear(ctx context.Context) (int64, error) {
	return n.store.DeletePrefix(ctx, n.policy.Name+":")
}
