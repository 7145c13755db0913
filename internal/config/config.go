package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"

	"github.com/roach88/bookarchive/internal/store"
)

//go:embed schema.cue
var schemaSource string

// ErrConfigExists is returned by WriteDefault when the target file is present.
var ErrConfigExists = errors.New("config file already exists")

// Config is the root configuration structure for Book Archive.
// All configuration is loaded from a file and can be overridden by environment variables.
type Config struct {
	Database DatabaseConfig `yaml:"database" json:"database"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path             string   `yaml:"path" json:"path"`
	Pragmas          []string `yaml:"pragmas" json:"pragmas"`
	BusyTimeoutMS    int      `yaml:"busy_timeout_ms" json:"busy_timeout_ms"`
	MaxRetries       int      `yaml:"max_retries" json:"max_retries"`
	RetryBaseDelayMS int      `yaml:"retry_base_delay_ms" json:"retry_base_delay_ms"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // DEBUG, INFO, WARN, ERROR
	Format string `yaml:"format" json:"format"` // text, json
	Output string `yaml:"output" json:"output"` // file, stderr, stdout, discard
	Path   string `yaml:"path" json:"path"`     // used when Output is "file"
}

// Load reads configuration from a file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. File values (override defaults); skipped when path is empty
//  3. Environment variables (override file values)
//
// Files ending in .json, .jsonc or .hujson may contain comments and trailing
// commas. Anything else is read as YAML. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// decode fills cfg from data. JSON is a subset of YAML, so standardized
// hujson goes through the same decoder and the same struct tags.
func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc", ".hujson":
		std, err := hujson.Standardize(data)
		if err != nil {
			return err
		}
		data = std
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// defaultConfig returns a Config with the stock settings.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:             "book_archive.db",
			Pragmas:          store.DefaultPragmas(),
			BusyTimeoutMS:    0,
			MaxRetries:       store.DefaultRetryPolicy().MaxRetries,
			RetryBaseDelayMS: int(store.DefaultRetryPolicy().BaseDelay / time.Millisecond),
		},
		Logging: LoggingConfig{
			Level:  "ERROR",
			Format: "text",
			Output: "file",
			Path:   "book_archive.log",
		},
	}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return defaultConfig()
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: BOOKARCHIVE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BOOKARCHIVE_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("BOOKARCHIVE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BOOKARCHIVE_LOG_PATH"); v != "" {
		cfg.Logging.Path = v
	}
}

// Validate checks the configuration against the embedded CUE schema and
// reports every violation, not just the first.
func (c *Config) Validate() error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	v := def.Unify(ctx.Encode(c))

	if err := v.Validate(cue.Concrete(true)); err != nil {
		errs := cueerrors.Errors(err)
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, cueerrors.String(e))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// BusyTimeout returns the SQLite busy handler timeout.
func (d DatabaseConfig) BusyTimeout() time.Duration {
	return time.Duration(d.BusyTimeoutMS) * time.Millisecond
}

// RetryBaseDelay returns the delay before the first busy retry.
func (d DatabaseConfig) RetryBaseDelay() time.Duration {
	return time.Duration(d.RetryBaseDelayMS) * time.Millisecond
}

// StoreConfig maps the database section onto store.Config.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Path:        c.Database.Path,
		Pragmas:     c.Database.Pragmas,
		BusyTimeout: c.Database.BusyTimeout(),
		Retry: store.RetryPolicy{
			MaxRetries: c.Database.MaxRetries,
			BaseDelay:  c.Database.RetryBaseDelay(),
		},
	}
}

// WriteDefault writes a commented default YAML configuration to path.
// The file is written atomically and an existing file is never replaced.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config file: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	if err := atomic.WriteFile(path, strings.NewReader(defaultYAML)); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

const defaultYAML = `# Book Archive configuration.
# Environment overrides: BOOKARCHIVE_DB_PATH, BOOKARCHIVE_LOG_LEVEL, BOOKARCHIVE_LOG_PATH.

database:
  # SQLite database file. ":memory:" keeps everything in memory.
  path: book_archive.db

  # Run in order on every new connection. A failing pragma is logged and skipped.
  pragmas:
    - PRAGMA foreign_keys = ON
    - PRAGMA journal_mode = WAL
    - PRAGMA synchronous = NORMAL
    - PRAGMA cache_size = 1000
    - PRAGMA temp_store = MEMORY

  # SQLite's own busy wait. 0 leaves lock contention to the retry policy below.
  busy_timeout_ms: 0

  # Retries after a busy/locked status; the delay doubles each time.
  max_retries: 5
  retry_base_delay_ms: 10

logging:
  level: ERROR    # DEBUG, INFO, WARN, ERROR
  format: text    # text, json
  output: file    # file, stderr, stdout, discard
  path: book_archive.log
`
