//go:build !purego

package kvstore

import (
	_ "github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3"

// mode=rwc: Read/Write/Create mode
// _journal_mode=WAL: concurrent readers with a single writer
// _busy_timeout=3000: wait up to 3 seconds for locks
func dataSourceName(path string) string {
	return path + "?mode=rwc&_journal_mode=WAL&_busy_timeout=3000"
}
