package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS books (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	createIndexSQL = `CREATE INDEX IF NOT EXISTS idx_books_title_author ON books(title, author)`
)

// Store is the book archive's data-access layer. It owns one database
// handle and one statement cache. A Store must not be copied.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	retry  RetryPolicy

	// connMu is held exclusively by writes and shared by read steps.
	connMu sync.RWMutex
	stmts  *stmtCache

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error

	busyRetries atomic.Int64
}

// Open creates or opens the database at cfg.Path and prepares the schema.
//
// Open:
//  1. Connects to the database (fatal on failure)
//  2. Applies cfg.Pragmas on each connection (failures are logged)
//  3. Creates the books table (fatal on failure)
//  4. Creates the (title, author) index (failures are logged)
//
// A nil logger discards all log output.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Path == "" {
		return nil, &Error{Code: ErrCodeInitFailed, Op: "open", Err: errors.New("database path is empty")}
	}
	if cfg.Pragmas == nil {
		cfg.Pragmas = DefaultPragmas()
	}
	if cfg.Retry == (RetryPolicy{}) {
		cfg.Retry = DefaultRetryPolicy()
	}

	s := &Store{
		path:   cfg.Path,
		logger: logger,
		retry:  cfg.Retry,
	}

	drv := &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			applyPragmas(conn, cfg.Pragmas, logger)
			return nil
		},
	}
	s.db = sql.OpenDB(&connector{dsn: buildDSN(cfg), driver: drv})
	s.stmts = newStmtCache(s.db)

	if err := s.db.PingContext(ctx); err != nil {
		logger.Error("cannot open database", "path", cfg.Path, "error", err)
		s.Shutdown() //nolint:errcheck // best effort cleanup on error path
		return nil, &Error{Code: ErrCodeInitFailed, Op: "open", Err: err}
	}

	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		logger.Error("failed to create table", "error", err)
		s.Shutdown() //nolint:errcheck // best effort cleanup on error path
		return nil, &Error{Code: ErrCodeInitFailed, Op: "create table", SQL: createTableSQL, Err: err}
	}

	if _, err := s.db.ExecContext(ctx, createIndexSQL); err != nil {
		logger.Error("failed to create index", "error", err)
	}

	logger.Info("book archive initialized", "path", cfg.Path)
	return s, nil
}

// buildDSN turns a plain path into a go-sqlite3 URI carrying the busy timeout.
// See: https://github.com/mattn/go-sqlite3#connection-string
func buildDSN(cfg Config) string {
	path := cfg.Path
	params := fmt.Sprintf("_busy_timeout=%d", cfg.BusyTimeout.Milliseconds())

	if path == ":memory:" {
		// Pooled connections share the database by name; the name is unique
		// to this store.
		return fmt.Sprintf("file:mem-%s?mode=memory&cache=shared&%s", uuid.NewString(), params)
	}
	if strings.HasPrefix(path, "file:") {
		if strings.Contains(path, "?") {
			return path + "&" + params
		}
		return path + "?" + params
	}
	return fmt.Sprintf("file:%s?%s", escapePath(path), params)
}

// escapePath percent-encodes the characters that would otherwise end the
// path part of a URI (?, # and %).
func escapePath(path string) string {
	u := url.URL{Path: path}
	return u.EscapedPath()
}

// applyPragmas runs each pragma on a fresh connection. Pragmas are
// optimizations, so a failure is logged and the rest still run.
func applyPragmas(conn *sqlite3.SQLiteConn, pragmas []string, logger *slog.Logger) {
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma, nil); err != nil {
			logger.Error("failed to set pragma", "pragma", pragma, "error", err)
			continue
		}
		logger.Debug("pragma applied", "pragma", pragma)
	}
}

// connector hands database/sql a driver instance with a per-store ConnectHook,
// so no global driver registration is needed.
type connector struct {
	dsn    string
	driver *sqlite3.SQLiteDriver
}

func (c *connector) Connect(_ context.Context) (driver.Conn, error) {
	return c.driver.Open(c.dsn)
}

func (c *connector) Driver() driver.Driver {
	return c.driver
}

// Shutdown closes every cached statement and then the database handle.
// Only the first call does any work; later calls return the same result.
// It waits for in-flight operations to release the connection lock.
func (s *Store) Shutdown() error {
	if s == nil {
		return nil
	}

	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.logger.Info("shutting down book archive")

		s.connMu.Lock()
		defer s.connMu.Unlock()

		var errs []error
		if s.stmts != nil {
			if err := s.stmts.clearAll(); err != nil {
				errs = append(errs, err)
			}
		}
		if s.db != nil {
			if err := s.db.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing database: %w", err))
			}
		}
		s.closeErr = errors.Join(errs...)
	})

	return s.closeErr
}

// Close is Shutdown under the io.Closer name.
func (s *Store) Close() error {
	return s.Shutdown()
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Stats returns statement cache size and the number of busy retries so far.
func (s *Store) Stats() Stats {
	return Stats{
		CachedStatements: s.stmts.len(),
		BusyRetries:      s.busyRetries.Load(),
	}
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
