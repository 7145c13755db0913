// Package store provides the SQLite-backed data-access layer for the book archive.
//
// The store owns a single database handle and exposes five operations over the
// books table: AddBook, DeleteBook, UpdateBook, SearchBooks and ListBooks.
//
// # Statement Cache
//
// Every SQL text the store runs is prepared once and kept in a cache keyed by
// the exact text. Lookups take a shared lock; a miss upgrades to an exclusive
// lock and re-checks before preparing. The store only ever runs a fixed set of
// literal statements, so the cache saturates after the first call of each kind
// and has no eviction policy.
//
// # Concurrency
//
//   - Writes (INSERT/UPDATE/DELETE) hold the connection lock exclusively for
//     each attempt and release it while waiting out a busy result.
//   - Reads hold the connection lock shared from opening the cursor until it
//     is closed, so concurrent readers interleave but a write never runs
//     against an open cursor.
//   - Parameters are bound fresh on every call; no binding survives between
//     executions of a cached statement.
//
// # Busy Retry
//
// SQLITE_BUSY and SQLITE_LOCKED results are retried in place with exponential
// backoff (BaseDelay * 2^attempt) up to MaxRetries. The SQLite busy timeout
// defaults to zero so that contention surfaces to this policy instead of
// blocking inside the engine.
//
// # Database Configuration
//
//   - foreign_keys=ON
//   - journal_mode=WAL: concurrent reads during writes
//   - synchronous=NORMAL
//   - cache_size=1000
//   - temp_store=MEMORY
//
// Pragmas are applied on every new connection. A failing pragma is logged and
// skipped; a failing CREATE TABLE aborts Open.
package store
