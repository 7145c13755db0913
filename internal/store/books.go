package store

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Statement set. The cache never holds anything but these texts.
const (
	insertBookSQL = `INSERT INTO books (id, title, author) VALUES (?, ?, ?)`
	deleteBookSQL = `DELETE FROM books WHERE id = ?`
	updateBookSQL = `UPDATE books SET title = ?, author = ? WHERE id = ?`

	searchBooksSQL = `SELECT id, title, author, created_at FROM books
		WHERE title LIKE ? ESCAPE '\' OR author LIKE ? ESCAPE '\'
		ORDER BY id ASC`

	listBooksSQL = `SELECT id, title, author, created_at FROM books ORDER BY id ASC`
)

// AddBook inserts a new book. An existing id fails with an EXEC_FAILED
// error wrapping ErrDuplicateID and leaves the table unchanged.
func (s *Store) AddBook(ctx context.Context, id int64, title, author string) error {
	title, author = normalize(title), normalize(author)
	s.logger.Info("adding book", "id", id, "title", title, "author", author)

	if title == "" || author == "" {
		s.logger.Error("failed to add book", "id", id, "error", ErrInvalidBook)
		return &Error{Code: ErrCodeBindFailed, Op: "add book", Err: ErrInvalidBook}
	}

	if _, err := s.execute(ctx, "add book", insertBookSQL, formatID(id), title, author); err != nil {
		s.logger.Error("failed to add book", "id", id, "error", err)
		return err
	}
	return nil
}

// DeleteBook removes the book with the given id. Deleting an absent id
// is a successful no-op.
func (s *Store) DeleteBook(ctx context.Context, id int64) error {
	s.logger.Info("deleting book", "id", id)

	n, err := s.execute(ctx, "delete book", deleteBookSQL, formatID(id))
	if err != nil {
		s.logger.Error("failed to delete book", "id", id, "error", err)
		return err
	}
	s.logger.Debug("book deleted", "id", id, "rows_affected", n)
	return nil
}

// UpdateBook replaces the title and author of the book with the given id.
// The id and created_at are left unchanged. Updating an absent id is a
// successful no-op.
func (s *Store) UpdateBook(ctx context.Context, id int64, title, author string) error {
	title, author = normalize(title), normalize(author)
	s.logger.Info("updating book", "id", id, "title", title, "author", author)

	if title == "" || author == "" {
		s.logger.Error("failed to update book", "id", id, "error", ErrInvalidBook)
		return &Error{Code: ErrCodeBindFailed, Op: "update book", Err: ErrInvalidBook}
	}

	n, err := s.execute(ctx, "update book", updateBookSQL, title, author, formatID(id))
	if err != nil {
		s.logger.Error("failed to update book", "id", id, "error", err)
		return err
	}
	s.logger.Debug("book updated", "id", id, "rows_affected", n)
	return nil
}

// SearchBooks returns books whose title or author contains keyword, ordered
// by id. Matching uses SQLite's LIKE, which ignores ASCII case; % and _ in
// keyword match literally.
func (s *Store) SearchBooks(ctx context.Context, keyword string) ([]Book, error) {
	keyword = norm.NFC.String(keyword)
	s.logger.Info("searching books", "keyword", keyword)

	pattern := "%" + escapeLike(keyword) + "%"
	return s.query(ctx, "search books", searchBooksSQL, pattern, pattern)
}

// ListBooks returns every book ordered by id.
func (s *Store) ListBooks(ctx context.Context) ([]Book, error) {
	s.logger.Info("listing books")
	return s.query(ctx, "list books", listBooksSQL)
}

// normalize trims surrounding whitespace and converts to NFC so that the
// same visible text is always stored with the same bytes.
func normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// escapeLike escapes LIKE wildcards using \ as the escape character.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
