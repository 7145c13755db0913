package store

import (
	"time"
)

// Book is a single row of the books table.
type Book struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// Config controls how Open connects to and prepares the database.
type Config struct {
	// Path is the SQLite database file. ":memory:" opens an in-memory
	// database private to the store that lives as long as the store.
	Path string

	// Pragmas run on every new connection, in order. Nil means DefaultPragmas.
	Pragmas []string

	// BusyTimeout is handed to SQLite's own busy handler. Zero makes lock
	// contention surface immediately so Retry can handle it.
	BusyTimeout time.Duration

	// Retry is the busy/locked retry policy. The zero value means
	// DefaultRetryPolicy.
	Retry RetryPolicy
}

// Stats reports store internals for debugging.
type Stats struct {
	CachedStatements int   `json:"cached_statements"`
	BusyRetries      int64 `json:"busy_retries"`
}

// DefaultPragmas returns the pragmas applied when Config.Pragmas is nil.
func DefaultPragmas() []string {
	return []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = 1000",
		"PRAGMA temp_store = MEMORY",
	}
}
