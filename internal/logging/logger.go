package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/bookarchive/internal/config"
)

// warnOutput receives the warning printed when the log file cannot be opened.
var warnOutput io.Writer = os.Stderr

// Logger wraps slog.Logger with Book Archive-specific functionality.
//
// It provides structured logging with default fields and a level that can
// be changed while the program runs.
//
// Thread Safety:
//   - All methods except Close are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger

	level   *slog.LevelVar
	session string
	closer  io.Closer
}

// New creates a new Logger with the specified configuration.
//
// It configures:
//   - Output format (text or JSON)
//   - Log level filtering
//   - Default fields (service name, version, session id)
//   - Output destination
//
// Parameters:
//   - cfg: Logging configuration
//   - version: Application version for default field
//
// Returns:
//   - *Logger: Configured logger ready for use
//   - error: If the level, format or output is not recognised
func New(cfg config.LoggingConfig, version string) (*Logger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	output, closer, err := openOutput(cfg)
	if err != nil {
		return nil, err
	}

	level := new(slog.LevelVar)
	level.Set(lvl)
	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		handler = slog.NewTextHandler(output, opts)
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		if closer != nil {
			closer.Close() //nolint:errcheck // nothing was written yet
		}
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	session := newSessionID()
	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "bookarchive"),
		slog.String("version", version),
		slog.String("session", session),
	})

	return &Logger{
		Logger:  slog.New(handler),
		level:   level,
		session: session,
		closer:  closer,
	}, nil
}

// openOutput resolves the configured destination. A log file that cannot be
// opened degrades to io.Discard after a warning on stderr.
func openOutput(cfg config.LoggingConfig) (io.Writer, io.Closer, error) {
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		return os.Stderr, nil, nil
	case "stdout":
		return os.Stdout, nil, nil
	case "discard":
		return io.Discard, nil, nil
	case "file":
		f, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			fmt.Fprintf(warnOutput, "Warning: Could not open log file %q (%v). Logging disabled.\n", cfg.Path, err)
			return io.Discard, nil, nil
		}
		return f, f, nil
	default:
		return nil, nil, fmt.Errorf("unknown log output %q", cfg.Output)
	}
}

// newSessionID returns a time-ordered id shared by every entry of one run.
func newSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// ParseLevel converts a string log level to slog.Level.
//
// Supported levels: debug, info, warn (or warning), error, in any case.
// An empty string means info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// SetLevel changes the minimum level for this logger and every logger
// derived from it with With.
func (l *Logger) SetLevel(level slog.Level) {
	l.level.Set(level)
}

// Level returns the current minimum level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// Session returns the id attached to every entry as "session".
func (l *Logger) Session() string {
	return l.session
}

// With returns a new Logger with additional default attributes.
// The new logger shares the level of its parent.
//
// Example:
//
//	storeLogger := logger.With("component", "store")
//	storeLogger.Info("opened") // Includes component=store
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:  l.Logger.With(args...),
		level:   l.level,
		session: l.session,
	}
}

// Close closes the log file, if any. Loggers derived with With do not own
// the file and their Close is a no-op.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	return err
}

// Default creates a logger for use before configuration is loaded.
//
// This logger writes text to stderr at info level.
func Default() *Logger {
	logger, _ := New(config.LoggingConfig{
		Level:  "info",
		Format: "text",
		Output: "stderr",
	}, "dev")
	return logger
}

// Discard returns a logger that drops every entry.
func Discard() *Logger {
	logger, _ := New(config.LoggingConfig{Output: "discard"}, "dev")
	return logger
}
