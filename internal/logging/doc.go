// Package logging provides structured logging for Book Archive.
//
// This package wraps Go's standard log/slog package so the store, the
// command loop and the one-shot commands all log the same way.
//
// # Features
//
//   - Text output by default, JSON for machine consumption
//   - Default fields (service, version, session) on all log entries
//   - Level-based filtering (debug, info, warn, error), adjustable at runtime
//   - Append-only log file, created with 0600 permissions
//   - Thread-safe for concurrent use
//
// # Configuration
//
// Logging is configured via the logging section of the config file:
//
//	logging:
//	  level: "ERROR"             # DEBUG, INFO, WARN, ERROR
//	  format: "text"             # text, json
//	  output: "file"             # file, stderr, stdout, discard
//	  path: "book_archive.log"
//
// # Usage
//
//	logger, err := logging.New(cfg.Logging, "1.0.0")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//	logger.Info("book added", "id", 42)
//
// A log file that cannot be opened is not fatal: a warning goes to stderr
// and log output is discarded.
package logging
