package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "isotask.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Worker.RegistrySize)
	assert.Equal(t, 0, cfg.Worker.CallStackSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
worker:
  registry_size: 4096
  call_stack_size: 128
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4096, cfg.Worker.RegistrySize)
	assert.Equal(t, 128, cfg.Worker.CallStackSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
log:
  level: warn
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 0, cfg.Worker.RegistrySize)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
worker:
  registry_size: 1024
`)
	t.Setenv("ISOTASK_WORKER_REGISTRY_SIZE", "8192")
	t.Setenv("ISOTASK_LOG_LEVEL", "error")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8192, cfg.Worker.RegistrySize)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read config")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeConfig(t, "worker: [not a map")
		_, err := Load(path)
		require.Error(t, err)
	})

	t.Run("invalid log level", func(t *testing.T) {
		path := writeConfig(t, "log:\n  level: verbose\n")
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validate config")
	})

	t.Run("negative registry size", func(t *testing.T) {
		path := writeConfig(t, "worker:\n  registry_size: -1\n")
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validate config")
	})
}

func TestLoadAndWatch(t *testing.T) {
	t.Run("requires a path", func(t *testing.T) {
		_, err := LoadAndWatch("", func(*Config) {})
		require.Error(t, err)
	})

	t.Run("loads the initial config", func(t *testing.T) {
		path := writeConfig(t, "log:\n  level: debug\n")
		cfg, err := LoadAndWatch(path, func(*Config) {})
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.Log.Level)
	})
}

func TestWorkerOptions(t *testing.T) {
	assert.Empty(t, (&WorkerConfig{}).Options())
	assert.Len(t, (&WorkerConfig{RegistrySize: 1024}).Options(), 1)
	assert.Len(t, (&WorkerConfig{RegistrySize: 1024, CallStackSize: 64}).Options(), 2)
}

func TestNewLogger(t *testing.T) {
	t.Run("level gates output", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{Level: "warn", Format: "text"}, &buf)
		logger.Info("hidden")
		logger.Warn("visible")

		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, "visible")
	})

	t.Run("json format", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{Level: "info", Format: "json"}, &buf)
		logger.Info("event", slog.String("k", "v"))

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "event", line["msg"])
		assert.Equal(t, "v", line["k"])
	})
}
