package store

import (
	"context"
	"database/sql"
)

// execute runs a write statement with text parameters and returns the number
// of rows it affected.
//
// Each attempt holds the connection lock exclusively, so writers never
// interleave with each other or with an open read cursor. The lock is
// released during the backoff wait.
func (s *Store) execute(ctx context.Context, op, query string, params ...string) (int64, error) {
	s.logger.Debug("executing statement", "op", op, "sql", query, "params", len(params))

	if s.closed.Load() {
		return 0, &Error{Code: ErrCodeExecFailed, Op: op, SQL: query, Err: ErrClosed}
	}

	cs, err := s.stmts.getOrPrepare(ctx, query)
	if err != nil {
		s.logger.Error("failed to prepare statement", "sql", query, "error", err)
		return 0, err
	}

	args, err := cs.bind(params)
	if err != nil {
		s.logger.Error("failed to bind parameters", "sql", query, "error", err)
		return 0, err
	}

	var res sql.Result
	retries, err := s.retry.run(ctx, s.logger, op, func() error {
		s.connMu.Lock()
		defer s.connMu.Unlock()

		if s.closed.Load() {
			return ErrClosed
		}
		var execErr error
		res, execErr = cs.stmt.ExecContext(ctx, args...)
		return execErr
	})
	s.busyRetries.Add(int64(retries))

	if err != nil {
		s.logger.Error("failed to execute statement", "op", op, "retries", retries, "error", err)
		return 0, &Error{Code: ErrCodeExecFailed, Op: op, SQL: query, Err: classify(err)}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		// The write itself succeeded; only the count is unavailable.
		s.logger.Debug("rows affected unavailable", "op", op, "error", err)
		return 0, nil
	}
	return affected, nil
}

// query runs a SELECT returning (id, title, author, created_at) rows.
//
// The connection lock is held shared while a cursor is open, covering every
// row step, so readers interleave freely but never overlap a write. A busy
// result closes the cursor and restarts the query from the first row after
// the backoff delay, up to the retry ceiling. Any other failure stops the loop; the rows collected so far
// are returned together with a QUERY_FAILED error.
func (s *Store) query(ctx context.Context, op, query string, params ...string) ([]Book, error) {
	s.logger.Debug("executing query", "op", op, "sql", query, "params", len(params))

	if s.closed.Load() {
		return nil, &Error{Code: ErrCodeQueryFailed, Op: op, SQL: query, Err: ErrClosed}
	}

	cs, err := s.stmts.getOrPrepare(ctx, query)
	if err != nil {
		s.logger.Error("failed to prepare statement", "sql", query, "error", err)
		return nil, err
	}

	args, err := cs.bind(params)
	if err != nil {
		s.logger.Error("failed to bind parameters", "sql", query, "error", err)
		return nil, err
	}

	var books []Book
	retries, err := s.retry.run(ctx, s.logger, op, func() error {
		books = books[:0]
		return s.collect(ctx, cs, args, &books)
	})
	s.busyRetries.Add(int64(retries))

	if err != nil {
		s.logger.Error("failed to execute query", "op", op, "retries", retries, "rows", len(books), "error", err)
		return books, &Error{Code: ErrCodeQueryFailed, Op: op, SQL: query, Err: err}
	}

	if len(books) == 0 {
		s.logger.Debug("query returned no results", "op", op)
	} else {
		s.logger.Debug("query returned results", "op", op, "rows", len(books))
	}
	if books == nil {
		books = []Book{}
	}
	return books, nil
}

// collect opens the cursor and steps it to completion, appending each row.
// The shared lock is released only after the cursor is closed.
func (s *Store) collect(ctx context.Context, cs *cachedStmt, args []any, books *[]Book) error {
	s.connMu.RLock()
	defer s.connMu.RUnlock()

	if s.closed.Load() {
		return ErrClosed
	}

	rows, err := cs.stmt.QueryContext(ctx, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var b Book
		if err := scanBook(rows, &b); err != nil {
			return err
		}
		*books = append(*books, b)
	}
	return rows.Err()
}

// scanBook decodes one row. NULL text decodes as "" and a NULL timestamp as
// the zero time.
func scanBook(rows *sql.Rows, b *Book) error {
	var (
		title     sql.NullString
		author    sql.NullString
		createdAt sql.NullTime
	)
	if err := rows.Scan(&b.ID, &title, &author, &createdAt); err != nil {
		return err
	}
	b.Title = title.String
	b.Author = author.String
	b.CreatedAt = createdAt.Time
	return nil
}
