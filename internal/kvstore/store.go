package kvstore

import (
	"context"
	"time"
)

// Store is a byte-oriented key/value store with per-key expiry.
// A ttl of zero or less stores the value without expiry.
// Get must report an expired key as absent even if the backend still holds it.
type Store interface {
	// Get returns the value for key and whether it is present and live
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every key starting with prefix and returns the count
	DeletePrefix(ctx context.Context, prefix string) (int64, error)

	// PurgeExpired physically removes expired entries and returns the count
	PurgeExpired(ctx context.Context) (int64, error)

	// Ping verifies the backend is usable
	Ping(ctx context.Context) error

	// Close releases backend resources
	Close() error
}

// Option configures a Store backend
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source used for expiry decisions
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func expiryFor(now time.Time, ttl time.Duration) *time.Time {
	if ttl <= 0 {
		return nil
	}
	t := now.Add(ttl)
	return &t
}
