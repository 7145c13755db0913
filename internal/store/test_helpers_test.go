package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// createTestStore opens a store on a fresh database in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	return createTestStoreAt(t, filepath.Join(t.TempDir(), "test.db"))
}

func createTestStoreAt(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{
		Path:  path,
		Retry: DefaultRetryPolicy(),
	}, nil)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Shutdown() })
	return s
}

// mustAdd inserts a book or fails the test.
func mustAdd(t *testing.T, s *Store, id int64, title, author string) {
	t.Helper()
	if err := s.AddBook(context.Background(), id, title, author); err != nil {
		t.Fatalf("AddBook(%d) failed: %v", id, err)
	}
}

// mustList returns every book or fails the test.
func mustList(t *testing.T, s *Store) []Book {
	t.Helper()
	books, err := s.ListBooks(context.Background())
	if err != nil {
		t.Fatalf("ListBooks() failed: %v", err)
	}
	return books
}

// ignoreCreatedAt compares books by id, title and author only.
var ignoreCreatedAt = cmpopts.IgnoreFields(Book{}, "CreatedAt")

func assertBooks(t *testing.T, got, want []Book) {
	t.Helper()
	if diff := cmp.Diff(want, got, ignoreCreatedAt, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("books mismatch (-want +got):\n%s", diff)
	}
}

// fastRetry keeps contention tests short.
var fastRetry = RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond}
