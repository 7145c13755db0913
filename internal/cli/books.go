package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// Messages printed after a successful write.
const (
	msgAdded   = "Book added successfully!"
	msgDeleted = "Book deleted successfully!"
	msgUpdated = "Book updated successfully!"
)

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "add <id> <title> <author>",
		Short:         "Add a new book",
		Example:       `  bookarchive add 1 "Dune" "Frank Herbert"`,
		Args:          argsError(cobra.ExactArgs(3)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withArchive(cmd, rootOpts, func(ctx context.Context, a *archive, f *OutputFormatter) error {
				if err := a.store.AddBook(ctx, id, args[1], args[2]); err != nil {
					return failure(f, "add the book", id, err)
				}
				return f.Result(id, msgAdded)
			})
		},
	}
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a book by ID",
		Args:          argsError(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withArchive(cmd, rootOpts, func(ctx context.Context, a *archive, f *OutputFormatter) error {
				if err := a.store.DeleteBook(ctx, id); err != nil {
					return failure(f, "delete the book", id, err)
				}
				return f.Result(id, msgDeleted)
			})
		},
	}
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "update <id> <new-title> <new-author>",
		Short:         "Update a book's title and author",
		Example:       `  bookarchive update 1 "Dune Messiah" "Frank Herbert"`,
		Args:          argsError(cobra.ExactArgs(3)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withArchive(cmd, rootOpts, func(ctx context.Context, a *archive, f *OutputFormatter) error {
				if err := a.store.UpdateBook(ctx, id, args[1], args[2]); err != nil {
					return failure(f, "update the book", id, err)
				}
				return f.Result(id, msgUpdated)
			})
		},
	}
}

// NewSearchCommand creates the search command. All arguments form one keyword.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "search <keyword>...",
		Short:         "Search books by title or author",
		Args:          argsError(cobra.MinimumNArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			keyword := strings.TrimSpace(strings.Join(args, " "))
			if keyword == "" {
				return NewExitError(ExitCommandError, "missing search keyword")
			}
			return withArchive(cmd, rootOpts, func(ctx context.Context, a *archive, f *OutputFormatter) error {
				books, err := a.store.SearchBooks(ctx, keyword)
				if err != nil {
					if f.Format == "text" && len(books) > 0 {
						f.SearchResults(keyword, books) //nolint:errcheck // the failure is reported next
					}
					return failure(f, "search books", 0, err)
				}
				return f.SearchResults(keyword, books)
			})
		},
	}
}

// NewDisplayCommand creates the display command.
func NewDisplayCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "display",
		Aliases:       []string{"list"},
		Short:         "Show all books in the database",
		Args:          argsError(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withArchive(cmd, rootOpts, func(ctx context.Context, a *archive, f *OutputFormatter) error {
				books, err := a.store.ListBooks(ctx)
				if err != nil {
					if f.Format == "text" && len(books) > 0 {
						f.AllBooks(books) //nolint:errcheck // the failure is reported next
					}
					return failure(f, "list books", 0, err)
				}
				return f.AllBooks(books)
			})
		},
	}
}

// withArchive opens the archive for a single command and always closes it.
func withArchive(cmd *cobra.Command, opts *RootOptions, fn func(context.Context, *archive, *OutputFormatter) error) error {
	formatter := &OutputFormatter{
		Format: opts.Format,
		Writer: cmd.OutOrStdout(),
	}

	a, err := openArchive(cmd.Context(), opts)
	if err != nil {
		if formatter.Format == "json" {
			formatter.Error(errorCode(err), err.Error(), nil) //nolint:errcheck // exit code carries the failure
		}
		return err
	}
	defer a.Close() //nolint:errcheck // logged by Close

	return fn(cmd.Context(), a, formatter)
}

// parseID parses a book id argument.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid book ID: %s", s))
	}
	return id, nil
}
