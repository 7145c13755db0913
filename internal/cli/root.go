package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// BuildInfo identifies the binary. It is filled in by the linker.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Database   string
	LogLevel   string
	Format     string // "json" | "text"

	Build BuildInfo
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the Book Archive CLI.
// Without a subcommand it starts the interactive command loop.
func NewRootCommand(build BuildInfo) *cobra.Command {
	opts := &RootOptions{Build: build}

	cmd := &cobra.Command{
		Use:   "bookarchive",
		Short: "Book Archive - Library Management Tool",
		Long: `Manage a collection of books stored in a SQLite database.

Run without a command to start the interactive shell, or use one of the
commands below for a single operation.`,
		Example: `  bookarchive --db books.db
  bookarchive add 1 "Dune" "Frank Herbert"
  bookarchive search dune --format json`,
		Version:       build.Version,
		Args:          argsError(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, opts)
		},
	}

	cmd.SetVersionTemplate(versionText(currentVersion(build)))
	cmd.SetFlagErrorFunc(flagError)

	// Global flags
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (YAML, or JSON with comments)")
	cmd.PersistentFlags().StringVarP(&opts.Database, "db", "d", "", "database file (default from config: book_archive.db)")
	cmd.PersistentFlags().StringVarP(&opts.LogLevel, "log-level", "l", "", "log level: DEBUG, INFO, WARN, ERROR (default from config: ERROR)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewDisplayCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// flagError prints usage for a bad flag and marks it as a command error.
func flagError(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), cmd.UsageString())
	return WrapExitError(ExitCommandError, "invalid flag", err)
}

// argsError turns positional argument failures into command errors.
func argsError(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return WrapExitError(ExitCommandError, "invalid arguments", err)
		}
		return nil
	}
}

func runShell(cmd *cobra.Command, opts *RootOptions) error {
	a, err := openArchive(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // logged by Close

	shell := NewShell(a.store, a.logger, opts.Build, cmd.InOrStdin(), cmd.OutOrStdout())
	return shell.Run(cmd.Context())
}
