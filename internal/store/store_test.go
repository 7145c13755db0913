package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s := createTestStoreAt(t, path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if s.Path() != path {
		t.Errorf("Path() = %q, want %q", s.Path(), path)
	}
}

func TestOpen_OpensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s1, err := Open(ctx, Config{Path: path, Retry: DefaultRetryPolicy()}, nil)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	if err := s1.AddBook(ctx, 7, "Dune", "Frank Herbert"); err != nil {
		t.Fatalf("AddBook() failed: %v", err)
	}
	if err := s1.Shutdown(); err != nil {
		t.Fatalf("Shutdown() failed: %v", err)
	}

	s2 := createTestStoreAt(t, path)
	assertBooks(t, mustList(t, s2), []Book{{ID: 7, Title: "Dune", Author: "Frank Herbert"}})
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(context.Background(), Config{Path: path}, nil)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Shutdown()
	}

	s := createTestStoreAt(t, path)
	for _, name := range []string{"books", "idx_books_title_author"} {
		var got string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE name = ?", name).Scan(&got)
		if err != nil {
			t.Errorf("%q not found after repeated opens: %v", name, err)
		}
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL
		{"cache_size", "1000"},
		{"temp_store", "2"}, // MEMORY
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.verifyPragma(tt.name, tt.expected); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestOpen_PragmaFailureIsNotFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(context.Background(), Config{
		Path: path,
		Pragmas: []string{
			"PRAGMA this is not valid sql",
			"PRAGMA foreign_keys = ON",
		},
	}, nil)
	if err != nil {
		t.Fatalf("Open() failed on bad pragma: %v", err)
	}
	defer s.Shutdown()

	if err := s.verifyPragma("foreign_keys", "1"); err != nil {
		t.Errorf("pragma after the failing one was not applied: %v", err)
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(context.Background(), Config{}, nil)
	if !IsInitError(err) {
		t.Fatalf("Open(\"\") error = %v, want INIT_FAILED", err)
	}
}

func TestOpen_UnopenableDatabase(t *testing.T) {
	// A directory cannot be opened as a database file.
	_, err := Open(context.Background(), Config{Path: t.TempDir()}, nil)
	if !IsInitError(err) {
		t.Fatalf("Open(dir) error = %v, want INIT_FAILED", err)
	}
}

func TestOpen_TableCreationFailureIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readonly.db")

	// Seed a valid database without the books table.
	raw, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open() failed: %v", err)
	}
	if _, err := raw.Exec("CREATE TABLE other (x INTEGER)"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	raw.Close()

	_, err = Open(context.Background(), Config{Path: "file:" + path + "?mode=ro"}, nil)
	if !IsInitError(err) {
		t.Fatalf("Open(read-only) error = %v, want INIT_FAILED", err)
	}

	var se *Error
	if errors.As(err, &se) && se.Op != "create table" {
		t.Errorf("Op = %q, want %q", se.Op, "create table")
	}
}

func TestOpen_InMemory(t *testing.T) {
	s := createTestStoreAt(t, ":memory:")

	mustAdd(t, s, 1, "Dune", "Frank Herbert")
	assertBooks(t, mustList(t, s), []Book{{ID: 1, Title: "Dune", Author: "Frank Herbert"}})
}

func TestShutdown_Idempotent(t *testing.T) {
	s, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "test.db")}, nil)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	mustAdd(t, s, 1, "Dune", "Frank Herbert")

	if err := s.Shutdown(); err != nil {
		t.Fatalf("first Shutdown() failed: %v", err)
	}
	if err := s.Shutdown(); err != nil {
		t.Fatalf("second Shutdown() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() after Shutdown() failed: %v", err)
	}
	if n := s.Stats().CachedStatements; n != 0 {
		t.Errorf("CachedStatements after Shutdown() = %d, want 0", n)
	}
}

func TestShutdown_NilStore(t *testing.T) {
	var s *Store
	if err := s.Shutdown(); err != nil {
		t.Errorf("Shutdown() on nil store = %v, want nil", err)
	}
}

func TestOperationsAfterShutdown(t *testing.T) {
	s, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "test.db")}, nil)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	s.Shutdown()

	ctx := context.Background()

	err = s.AddBook(ctx, 1, "Dune", "Frank Herbert")
	if !IsExecError(err) || !errors.Is(err, ErrClosed) {
		t.Errorf("AddBook() after Shutdown() = %v, want EXEC_FAILED wrapping ErrClosed", err)
	}

	_, err = s.ListBooks(ctx)
	if !IsQueryError(err) || !errors.Is(err, ErrClosed) {
		t.Errorf("ListBooks() after Shutdown() = %v, want QUERY_FAILED wrapping ErrClosed", err)
	}
}

func TestStats_CacheSaturates(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		mustAdd(t, s, i, "Title", "Author")
		if err := s.UpdateBook(ctx, i, "New", "Author"); err != nil {
			t.Fatalf("UpdateBook() failed: %v", err)
		}
		if _, err := s.SearchBooks(ctx, "New"); err != nil {
			t.Fatalf("SearchBooks() failed: %v", err)
		}
		mustList(t, s)
		if err := s.DeleteBook(ctx, i); err != nil {
			t.Fatalf("DeleteBook() failed: %v", err)
		}
	}

	if got := s.Stats().CachedStatements; got != 5 {
		t.Errorf("CachedStatements = %d, want 5", got)
	}
}

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"plain path", Config{Path: "/tmp/a.db"}, "file:/tmp/a.db?_busy_timeout=0"},
		{"busy timeout", Config{Path: "a.db", BusyTimeout: 250 * time.Millisecond}, "file:a.db?_busy_timeout=250"},
		{"uri delimiters escaped", Config{Path: "/tmp/what?#100%.db"}, "file:/tmp/what%3F%23100%25.db?_busy_timeout=0"},
		{"uri without query", Config{Path: "file:a.db"}, "file:a.db?_busy_timeout=0"},
		{"uri with query", Config{Path: "file:a.db?mode=ro"}, "file:a.db?mode=ro&_busy_timeout=0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildDSN(tt.cfg); got != tt.want {
				t.Errorf("buildDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildDSN_MemoryNamesAreUnique(t *testing.T) {
	first := buildDSN(Config{Path: ":memory:"})
	second := buildDSN(Config{Path: ":memory:"})

	if first == second {
		t.Errorf("buildDSN(:memory:) returned %q twice", first)
	}
	for _, dsn := range []string{first, second} {
		if !strings.HasPrefix(dsn, "file:mem-") || !strings.HasSuffix(dsn, "?mode=memory&cache=shared&_busy_timeout=0") {
			t.Errorf("buildDSN(:memory:) = %q, want a named shared-cache memory URI", dsn)
		}
	}
}

func TestOpen_InMemoryStoresAreIndependent(t *testing.T) {
	first := createTestStoreAt(t, ":memory:")
	second := createTestStoreAt(t, ":memory:")

	mustAdd(t, first, 1, "Dune", "Frank Herbert")

	assertBooks(t, mustList(t, first), []Book{{ID: 1, Title: "Dune", Author: "Frank Herbert"}})
	assertBooks(t, mustList(t, second), nil)
}

func TestOpen_PathWithURIDelimiters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "what?#100%.db")

	s := createTestStoreAt(t, path)
	mustAdd(t, s, 1, "Dune", "Frank Herbert")

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file %q not created: %v", path, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() failed: %v", err)
	}
	for _, e := range entries {
		if e.Name() == "what" {
			t.Errorf("path was truncated at the URI delimiter: found %q", e.Name())
		}
	}
}

func TestOpen_ZeroRetryPolicyUsesDefault(t *testing.T) {
	s, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "test.db")}, nil)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Shutdown()

	if s.retry != DefaultRetryPolicy() {
		t.Errorf("retry = %+v, want %+v", s.retry, DefaultRetryPolicy())
	}

	// An explicit policy is kept, even one that disables retries.
	noRetry := RetryPolicy{MaxRetries: 0, BaseDelay: time.Millisecond}
	s2, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "test.db"), Retry: noRetry}, nil)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s2.Shutdown()

	if s2.retry != noRetry {
		t.Errorf("retry = %+v, want %+v", s2.retry, noRetry)
	}
}
