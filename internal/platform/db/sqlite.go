package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens (creating if necessary) the SQLite database file at path.
// Foreign keys are enforced and WAL mode is enabled so a second process
// holding the same file does not block readers. busyTimeoutMS bounds how
// long a statement waits on another writer before failing.
// Use ":memory:" for an in-memory database in tests.
func Open(path string, busyTimeoutMS int) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=%d", path, busyTimeoutMS)
	sqldb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	// The sqlite driver serializes writes; more than one open connection
	// only trades lock errors for busy-timeout waits.
	sqldb.SetMaxOpenConns(1)
	if err := sqldb.Ping(); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("ping database %s: %w", path, err)
	}
	return sqldb, nil
}
