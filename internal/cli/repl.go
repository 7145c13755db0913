package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/roach88/bookarchive/internal/logging"
	"github.com/roach88/bookarchive/internal/store"
)

// Shell is the interactive command loop. It borrows the store and the
// logger; whoever opened them closes them after Run returns.
type Shell struct {
	store  *store.Store
	logger *logging.Logger
	build  BuildInfo
	in     io.Reader
	out    *OutputFormatter
}

// NewShell creates a shell reading commands from in and writing to out.
func NewShell(st *store.Store, logger *logging.Logger, build BuildInfo, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		store:  st,
		logger: logger,
		build:  build,
		in:     in,
		out:    &OutputFormatter{Format: "text", Writer: out},
	}
}

// Run prints the banner and processes one command per line until exit,
// end of input, or ctx is cancelled.
func (s *Shell) Run(ctx context.Context) error {
	w := s.out.Writer
	fmt.Fprintf(w, "Book Archive %s - Library Management Tool\n", s.build.Version)
	fmt.Fprintln(w, "Type 'help' for available commands, 'exit' to quit.")

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(w, "\n> ")

		select {
		case <-ctx.Done():
			fmt.Fprintln(w, "\nReceived termination signal. Shutting down gracefully...")
			s.logger.Info("interactive session interrupted")
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(w)
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			if s.Execute(ctx, line) {
				return nil
			}
		}
	}
}

// Execute runs a single command line and reports whether the shell should exit.
func (s *Shell) Execute(ctx context.Context, line string) (exit bool) {
	cmd, err := parseCommand(line)
	if err != nil {
		s.out.Error("USAGE", err.Error(), nil) //nolint:errcheck // terminal output
		s.logger.Error("command error", "error", err, "command", line)
		return false
	}

	switch cmd.action {
	case "":
		// blank line
	case "add":
		if err := s.store.AddBook(ctx, cmd.id, cmd.title, cmd.author); err != nil {
			s.fail("add the book", cmd.id, err)
			break
		}
		s.out.Success(msgAdded) //nolint:errcheck // terminal output
	case "delete":
		if err := s.store.DeleteBook(ctx, cmd.id); err != nil {
			s.fail("delete the book", cmd.id, err)
			break
		}
		s.out.Success(msgDeleted) //nolint:errcheck // terminal output
	case "update":
		if err := s.store.UpdateBook(ctx, cmd.id, cmd.title, cmd.author); err != nil {
			s.fail("update the book", cmd.id, err)
			break
		}
		s.out.Success(msgUpdated) //nolint:errcheck // terminal output
	case "search":
		// Rows read before a failure are still shown.
		books, err := s.store.SearchBooks(ctx, cmd.keyword)
		if err == nil || len(books) > 0 {
			s.out.SearchResults(cmd.keyword, books) //nolint:errcheck // terminal output
		}
		if err != nil {
			s.fail("search books", 0, err)
		}
	case "display":
		books, err := s.store.ListBooks(ctx)
		if err == nil || len(books) > 0 {
			s.out.AllBooks(books) //nolint:errcheck // terminal output
		}
		if err != nil {
			s.fail("list books", 0, err)
		}
	case "help":
		writeHelp(s.out.Writer, s.build.Version)
	case "version":
		fmt.Fprint(s.out.Writer, versionText(currentVersion(s.build)))
	case "debug":
		s.toggleDebug()
	case "exit", "quit":
		fmt.Fprintln(s.out.Writer, "Exiting Book Archive. Goodbye!")
		return true
	default:
		fmt.Fprintln(s.out.Writer, "Invalid command. Type 'help' for a list of commands.")
	}
	return false
}

// fail prints the user-facing line. The store has already logged the details.
func (s *Shell) fail(action string, id int64, err error) {
	s.out.Error(errorCode(err), failureMessage(action, id, err), nil) //nolint:errcheck // terminal output
}

// toggleDebug flips between DEBUG and INFO logging.
func (s *Shell) toggleDebug() {
	if s.logger.Level() == slog.LevelDebug {
		s.logger.SetLevel(slog.LevelInfo)
		fmt.Fprintln(s.out.Writer, "Logging level switched to INFO.")
	} else {
		s.logger.SetLevel(slog.LevelDebug)
		fmt.Fprintln(s.out.Writer, "Logging level switched to DEBUG.")
	}
	s.logger.Info("log level changed", "level", s.logger.Level().String())
}

var helpEntries = []struct{ usage, text string }{
	{"add <id> <title>, <author>", "Add a new book"},
	{"delete <id>", "Delete a book by ID"},
	{"update <id> <new_title>, <new_author>", "Update a book's information based on ID"},
	{"search <keyword>", "Search books by title or author"},
	{"display", "Show all books in the database"},
	{"help", "Show this help menu"},
	{"version", "Display the tool version"},
	{"debug", "Toggle debug logging"},
	{"exit, quit", "Quit the program"},
}

func writeHelp(w io.Writer, version string) {
	fmt.Fprintf(w, "\nBook Archive %s - Command List\n\n", version)
	for _, e := range helpEntries {
		fmt.Fprintf(w, "  %-40s- %s\n", e.usage, e.text)
	}
	fmt.Fprintln(w)
}

// command is one parsed shell line.
type command struct {
	action  string
	id      int64
	title   string
	author  string
	keyword string
}

var (
	errMissingID      = errors.New("missing book ID")
	errEmptyFields    = errors.New("title and author cannot be empty")
	errMissingKeyword = errors.New("missing search keyword")
)

// parseCommand splits a shell line into its action and arguments.
// Title and author are separated by the first comma.
func parseCommand(line string) (command, error) {
	action, rest := nextToken(line)
	cmd := command{action: action}

	switch action {
	case "add", "update":
		id, rest, err := parseIDToken(rest)
		if err != nil {
			return cmd, err
		}
		title, author, ok := strings.Cut(rest, ",")
		if !ok {
			if action == "add" {
				return cmd, errors.New("invalid format, use: add <id> <title>, <author>")
			}
			return cmd, errors.New("invalid format, use: update <id> <new_title>, <new_author>")
		}
		cmd.id = id
		cmd.title = strings.TrimSpace(title)
		cmd.author = strings.TrimSpace(author)
		if cmd.title == "" || cmd.author == "" {
			return cmd, errEmptyFields
		}
	case "delete":
		id, _, err := parseIDToken(rest)
		if err != nil {
			return cmd, err
		}
		cmd.id = id
	case "search":
		cmd.keyword = strings.TrimSpace(rest)
		if cmd.keyword == "" {
			return cmd, errMissingKeyword
		}
	}
	return cmd, nil
}

func parseIDToken(s string) (int64, string, error) {
	tok, rest := nextToken(s)
	if tok == "" {
		return 0, "", errMissingID
	}
	id, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid book ID: %s", tok)
	}
	return id, rest, nil
}

// nextToken returns the first whitespace-delimited word of s and the
// remainder after it, unmodified.
func nextToken(s string) (tok, rest string) {
	s = strings.TrimLeft(s, " \t")
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], s[i:]
	}
	return s, ""
}
