package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// Sentinel errors wrapped inside *Error values.
var (
	// ErrDuplicateID is returned (wrapped in EXEC_FAILED) when a book id already exists.
	ErrDuplicateID = errors.New("book id already exists")

	// ErrInvalidBook is returned when a title or author is empty.
	ErrInvalidBook = errors.New("title and author cannot be empty")

	// ErrClosed is returned for operations issued after Shutdown.
	ErrClosed = errors.New("store is closed")
)

// ErrorCode categorizes data-access failures.
type ErrorCode string

const (
	// ErrCodeInitFailed means the connection could not be opened or the
	// books table could not be created.
	ErrCodeInitFailed ErrorCode = "INIT_FAILED"

	// ErrCodePrepareFailed means SQL text failed to compile.
	ErrCodePrepareFailed ErrorCode = "PREPARE_FAILED"

	// ErrCodeBindFailed means a parameter was rejected before execution.
	ErrCodeBindFailed ErrorCode = "BIND_FAILED"

	// ErrCodeExecFailed means a write did not complete, including after
	// the busy retry ceiling was reached.
	ErrCodeExecFailed ErrorCode = "EXEC_FAILED"

	// ErrCodeQueryFailed means a read loop stopped on an unexpected status.
	ErrCodeQueryFailed ErrorCode = "QUERY_FAILED"
)

// Error is the error type returned by every store operation.
type Error struct {
	// Code identifies the failure category.
	Code ErrorCode

	// Op names the operation that failed ("open", "prepare", "add book", ...).
	Op string

	// SQL is the statement text involved, if any.
	SQL string

	// Err is the underlying driver or sentinel error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.SQL != "" {
		return fmt.Sprintf("%s: %s: %v (sql=%q)", e.Code, e.Op, e.Err, e.SQL)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsInitError reports whether err is an INIT_FAILED error.
func IsInitError(err error) bool { return hasCode(err, ErrCodeInitFailed) }

// IsPrepareError reports whether err is a PREPARE_FAILED error.
func IsPrepareError(err error) bool { return hasCode(err, ErrCodePrepareFailed) }

// IsBindError reports whether err is a BIND_FAILED error.
func IsBindError(err error) bool { return hasCode(err, ErrCodeBindFailed) }

// IsExecError reports whether err is an EXEC_FAILED error.
func IsExecError(err error) bool { return hasCode(err, ErrCodeExecFailed) }

// IsQueryError reports whether err is a QUERY_FAILED error.
func IsQueryError(err error) bool { return hasCode(err, ErrCodeQueryFailed) }

// isBusy reports whether err is a transient lock-contention result.
func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// classify attaches a sentinel to driver errors that callers care about.
func classify(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return fmt.Errorf("%w: %w", ErrDuplicateID, err)
		}
	}
	return err
}
