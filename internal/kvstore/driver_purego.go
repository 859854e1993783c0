//go:build purego

package kvstore

import (
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

func dataSourceName(path string) string {
	return "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(3000)"
}
