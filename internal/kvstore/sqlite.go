package kvstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/devlopersumit/issuehub/internal/errors"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a new SQLite key/value store
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	o := buildOptions(opts)

	db, err := sql.Open(driverName, dataSourceName(dbPath))
	if err != nil {
		return nil, errors.NewTransientf("failed to open sqlite database: %w", err)
	}

	// WAL mode supports one writer and multiple concurrent readers
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db, now: o.now}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, errors.NewPermanentf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.NewTransientf("failed to ping sqlite database: %w", err)
	}
	return nil
}

// initSchema creates the key/value table
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv_entries (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expires_at INTEGER, -- unix milliseconds, NULL never expires
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_kv_entries_expires ON kv_entries(expires_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Get returns the value for key. Rows past their expiry stay on disk until
// PurgeExpired runs but are reported as absent.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var expiresAt sql.NullInt64

	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM kv_entries WHERE key = ?`, key,
	).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewTransientf("failed to read key %s: %w", key, err)
	}

	if expiresAt.Valid && s.now().UnixMilli() > expiresAt.Int64 {
		return nil, false, nil
	}

	return value, true, nil
}

// Set upserts key
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := s.now()

	var expiresAt sql.NullInt64
	if exp := expiryFor(now, ttl); exp != nil {
		expiresAt = sql.NullInt64{Int64: exp.UnixMilli(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value, expires_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, key, value, expiresAt, now.UnixMilli())
	if err != nil {
		return errors.NewTransientf("failed to write key %s: %w", key, err)
	}
	return nil
}

// Delete removes key
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key); err != nil {
		return errors.NewTransientf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes all keys starting with prefix
func (s *SQLiteStore) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM kv_entries WHERE key LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%")
	if err != nil {
		return 0, errors.NewTransientf("failed to delete prefix %s: %w", prefix, err)
	}
	return res.RowsAffected()
}

// PurgeExpired physically removes rows whose expiry has passed
func (s *SQLiteStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM kv_entries WHERE expires_at IS NOT NULL AND expires_at < ?`, s.now().UnixMilli())
	if err != nil {
		return 0, errors.NewTransientf("failed to purge expired entries: %w", err)
	}
	return res.RowsAffected()
}

// RowCount reports the number of rows on disk, live or not
func (s *SQLiteStore) RowCount(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv_entries`).Scan(&n); err != nil {
		return 0, errors.NewTransientf("failed to count entries: %w", err)
	}
	return n, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
