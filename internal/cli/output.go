package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/roach88/bookarchive/internal/store"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation failure (database could not be opened, write rejected, etc.)
	ExitCommandError = 2 // Command error (unknown flag, bad arguments, invalid config)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil and ExitFailure if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // store error code or "USAGE"
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// BookResult is the JSON payload of add, delete and update.
type BookResult struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// BookList is the JSON payload of search and display.
type BookList struct {
	Keyword string       `json:"keyword,omitempty"`
	Books   []store.Book `json:"books"`
	Total   int          `json:"total"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error: %s\n", message)
	return nil
}

// Result reports a completed write. Text mode prints only the message.
func (f *OutputFormatter) Result(id int64, message string) error {
	if f.Format == "json" {
		return f.Success(BookResult{ID: id, Message: message})
	}
	return f.Success(message)
}

// SearchResults prints the books matching keyword.
func (f *OutputFormatter) SearchResults(keyword string, books []store.Book) error {
	if f.Format == "json" {
		return f.Success(BookList{Keyword: keyword, Books: books, Total: len(books)})
	}
	writeSearchResults(f.Writer, keyword, books)
	return nil
}

// AllBooks prints every book in the archive.
func (f *OutputFormatter) AllBooks(books []store.Book) error {
	if f.Format == "json" {
		return f.Success(BookList{Books: books, Total: len(books)})
	}
	writeAllBooks(f.Writer, books)
	return nil
}

// Column widths of the book table.
const (
	idWidth     = 5
	titleWidth  = 30
	authorWidth = 20
	ruleWidth   = 60
)

func writeSearchResults(w io.Writer, keyword string, books []store.Book) {
	if len(books) == 0 {
		fmt.Fprintf(w, "No books found matching '%s'.\n", keyword)
		return
	}
	fmt.Fprintf(w, "Search Results for '%s':\n", keyword)
	writeBookTable(w, books)
}

func writeAllBooks(w io.Writer, books []store.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books found in the database.")
		return
	}
	fmt.Fprintln(w, "Book Archive - All Books:")
	writeBookTable(w, books)
	fmt.Fprintf(w, "\nTotal: %d book(s)\n", len(books))
}

// writeBookTable renders books as right-aligned fixed-width columns.
func writeBookTable(w io.Writer, books []store.Book) {
	fmt.Fprintf(w, "%*s | %*s | %*s\n", idWidth, "ID", titleWidth, "Title", authorWidth, "Author")
	fmt.Fprintln(w, strings.Repeat("-", ruleWidth))

	for _, b := range books {
		fmt.Fprintf(w, "%*d | %*s | %*s\n",
			idWidth, b.ID,
			titleWidth, truncate(b.Title, titleWidth),
			authorWidth, truncate(b.Author, authorWidth))
	}
}

// truncate shortens s to width runes, ending in "..." when cut.
func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	return string(r[:width-3]) + "..."
}
