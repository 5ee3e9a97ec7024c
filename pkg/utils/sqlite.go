package utils

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens a SQLite database through the modernc driver with WAL, a busy timeout
// and foreign keys enabled. ":memory:" is held on a single connection so every query sees
// the same database.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	memory := path == ":memory:"

	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn = fmt.Sprintf("%s%s_pragma=busy_timeout=10000&_pragma=journal_mode=WAL&_pragma=foreign_keys=ON", dsn, sep)

	pool := PoolConfig{MaxOpenConns: 4}
	if memory {
		pool = PoolConfig{MaxOpenConns: 1, ConnMaxLifetime: -1, ConnMaxIdleTime: -1}
	}
	return OpenDB(ctx, "sqlite", dsn, pool)
}
