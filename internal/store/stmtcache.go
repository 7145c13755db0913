package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"
)

// preparer compiles SQL text against a connection.
type preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// cachedStmt is one compiled statement plus the number of ? placeholders
// it expects.
type cachedStmt struct {
	stmt     *sql.Stmt
	query    string
	numInput int
}

// stmtCache maps SQL text to its compiled statement. At most one statement
// exists per distinct text until clearAll.
type stmtCache struct {
	mu    sync.RWMutex
	db    preparer
	stmts map[string]*cachedStmt
}

func newStmtCache(db preparer) *stmtCache {
	return &stmtCache{
		db:    db,
		stmts: make(map[string]*cachedStmt),
	}
}

// getOrPrepare returns the cached statement for query, compiling it on the
// first request. A compile failure leaves the cache unchanged.
func (c *stmtCache) getOrPrepare(ctx context.Context, query string) (*cachedStmt, error) {
	// fast path
	c.mu.RLock()
	cs, ok := c.stmts[query]
	c.mu.RUnlock()
	if ok {
		return cs, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have prepared it between the two locks.
	if cs, ok := c.stmts[query]; ok {
		return cs, nil
	}

	if c.db == nil {
		return nil, &Error{Code: ErrCodePrepareFailed, Op: "prepare", SQL: query, Err: ErrClosed}
	}

	stmt, err := c.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, &Error{Code: ErrCodePrepareFailed, Op: "prepare", SQL: query, Err: err}
	}

	cs = &cachedStmt{
		stmt:     stmt,
		query:    query,
		numInput: countPlaceholders(query),
	}
	c.stmts[query] = cs
	return cs, nil
}

// clearAll closes every cached statement and empties the cache. It is safe
// to call more than once; later calls see an empty cache.
func (c *stmtCache) clearAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for query, cs := range c.stmts {
		if err := cs.stmt.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close statement %q: %w", query, err))
		}
	}
	clear(c.stmts)
	c.db = nil

	return errors.Join(errs...)
}

// len returns the number of cached statements.
func (c *stmtCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.stmts)
}

// bind converts text parameters into driver arguments in placeholder order.
// Every parameter is bound as TEXT; column affinity converts ids back to
// integers.
func (cs *cachedStmt) bind(params []string) ([]any, error) {
	if len(params) != cs.numInput {
		return nil, &Error{
			Code: ErrCodeBindFailed,
			Op:   "bind",
			SQL:  cs.query,
			Err:  fmt.Errorf("expected %d parameters, got %d", cs.numInput, len(params)),
		}
	}

	args := make([]any, len(params))
	for i, p := range params {
		if !utf8.ValidString(p) {
			return nil, &Error{
				Code: ErrCodeBindFailed,
				Op:   "bind",
				SQL:  cs.query,
				Err:  fmt.Errorf("parameter %d is not valid UTF-8", i+1),
			}
		}
		args[i] = p
	}
	return args, nil
}

// countPlaceholders counts ? markers outside of quoted literals.
func countPlaceholders(query string) int {
	n := 0
	var quote rune
	for _, r := range query {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '?':
			n++
		}
	}
	return n
}
