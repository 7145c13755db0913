package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bookarchive/internal/config"
)

func fileConfig(t *testing.T, level, format string) (config.LoggingConfig, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book_archive.log")
	return config.LoggingConfig{Level: level, Format: format, Output: "file", Path: path}, path
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestNew_JSONFormatCarriesDefaultFields(t *testing.T) {
	cfg, path := fileConfig(t, "info", "json")

	logger, err := New(cfg, "1.0.0")
	require.NoError(t, err)
	logger.Info("book added", "id", 42)
	require.NoError(t, logger.Close())

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(readLog(t, path)), &entry))

	assert.Equal(t, "book added", entry["msg"])
	assert.Equal(t, "bookarchive", entry["service"])
	assert.Equal(t, "1.0.0", entry["version"])
	assert.Equal(t, logger.Session(), entry["session"])
	assert.EqualValues(t, 42, entry["id"])

	id, err := uuid.Parse(logger.Session())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestNew_FileIsAppendedWithRestrictedPermissions(t *testing.T) {
	cfg, path := fileConfig(t, "info", "text")

	for _, msg := range []string{"first run", "second run"} {
		logger, err := New(cfg, "1.0.0")
		require.NoError(t, err)
		logger.Info(msg)
		require.NoError(t, logger.Close())
	}

	out := readLog(t, path)
	assert.Contains(t, out, "first run")
	assert.Contains(t, out, "second run")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestNew_LevelFiltering(t *testing.T) {
	cfg, path := fileConfig(t, "ERROR", "text")

	logger, err := New(cfg, "1.0.0")
	require.NoError(t, err)
	logger.Debug("debug entry")
	logger.Info("info entry")
	logger.Error("error entry")
	require.NoError(t, logger.Close())

	out := readLog(t, path)
	assert.NotContains(t, out, "debug entry")
	assert.NotContains(t, out, "info entry")
	assert.Contains(t, out, "error entry")
}

func TestSetLevel_AppliesToDerivedLoggers(t *testing.T) {
	cfg, path := fileConfig(t, "INFO", "text")

	logger, err := New(cfg, "1.0.0")
	require.NoError(t, err)
	child := logger.With("component", "store")

	child.Debug("hidden")
	logger.SetLevel(slog.LevelDebug)
	assert.Equal(t, slog.LevelDebug, child.Level())
	child.Debug("visible")
	require.NoError(t, logger.Close())

	out := readLog(t, path)
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "component=store")
}

func TestNew_UnopenableFileWarnsAndDiscards(t *testing.T) {
	var warn bytes.Buffer
	old := warnOutput
	warnOutput = &warn
	t.Cleanup(func() { warnOutput = old })

	cfg := config.LoggingConfig{
		Level:  "info",
		Output: "file",
		Path:   filepath.Join(t.TempDir(), "missing-dir", "book_archive.log"),
	}

	logger, err := New(cfg, "1.0.0")
	require.NoError(t, err)
	logger.Info("goes nowhere")
	require.NoError(t, logger.Close())

	assert.True(t, strings.HasPrefix(warn.String(), "Warning: Could not open log file"))
	assert.NoFileExists(t, cfg.Path)
}

func TestNew_RejectsUnknownSettings(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.LoggingConfig
	}{
		{"level", config.LoggingConfig{Level: "TRACE"}},
		{"format", config.LoggingConfig{Format: "xml"}},
		{"output", config.LoggingConfig{Output: "syslog"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, "1.0.0")
			assert.Error(t, err)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
		wantErr  bool
	}{
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"ERROR", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDefaultAndDiscard(t *testing.T) {
	require.NotNil(t, Default())

	d := Discard()
	require.NotNil(t, d)
	assert.NoError(t, d.Close())

	var nilLogger *Logger
	assert.NoError(t, nilLogger.Close())
}
