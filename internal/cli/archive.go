package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/bookarchive/internal/config"
	"github.com/roach88/bookarchive/internal/logging"
	"github.com/roach88/bookarchive/internal/store"
)

// archive bundles what every book command needs: an open store and the
// logger it writes to. Exactly one owner closes it.
type archive struct {
	store  *store.Store
	logger *logging.Logger
}

// openArchive loads configuration, applies flag overrides, and opens the
// logger and the store in that order.
func openArchive(ctx context.Context, opts *RootOptions) (*archive, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging, opts.Build.Version)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid logging configuration", err)
	}

	st, err := store.Open(ctx, cfg.StoreConfig(), logger.With("component", "store").Logger)
	if err != nil {
		logger.Error("cannot open book archive", "path", cfg.Database.Path, "error", err)
		logger.Close() //nolint:errcheck // already failing
		return nil, WrapExitError(ExitFailure, "failed to open database", err)
	}

	return &archive{store: st, logger: logger}, nil
}

// loadConfig reads the config file (if any) and layers the --db and
// --log-level flags on top.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	if opts.Database == "" && opts.LogLevel == "" {
		return cfg, nil
	}
	if opts.Database != "" {
		cfg.Database.Path = opts.Database
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid flag value", err)
	}
	return cfg, nil
}

// Close shuts the store down, then closes the log file.
func (a *archive) Close() error {
	err := a.store.Shutdown()
	if err != nil {
		a.logger.Error("error closing database", "error", err)
	}
	return errors.Join(err, a.logger.Close())
}

// failureMessage is the line shown to the user when a store call fails.
// The details stay in the log.
func failureMessage(action string, id int64, err error) string {
	switch {
	case errors.Is(err, store.ErrDuplicateID):
		return fmt.Sprintf("a book with ID %d already exists", id)
	case errors.Is(err, store.ErrInvalidBook):
		return "title and author cannot be empty"
	case errors.Is(err, store.ErrClosed):
		return "the archive is closed"
	default:
		return fmt.Sprintf("failed to %s, check logs for details", action)
	}
}

// errorCode picks the code reported in JSON error responses.
func errorCode(err error) string {
	var se *store.Error
	if errors.As(err, &se) {
		return string(se.Code)
	}
	if GetExitCode(err) == ExitCommandError {
		return "USAGE"
	}
	return "ERROR"
}

// failure converts a store error into an ExitError. Invalid input is a
// command error; everything else is an operation failure.
func failure(f *OutputFormatter, action string, id int64, err error) error {
	msg := failureMessage(action, id, err)
	code := ExitFailure
	if errors.Is(err, store.ErrInvalidBook) {
		code = ExitCommandError
	}

	// Text mode leaves reporting to the caller of Execute.
	if f.Format == "json" {
		f.Error(errorCode(err), msg, nil) //nolint:errcheck // exit code carries the failure
	}
	return WrapExitError(code, msg, err)
}
