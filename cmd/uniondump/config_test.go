package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/anthropic-codec/features/stream/sse"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	require.Equal(t, defaultConfig(), cfg)
	require.Equal(t, sse.SkipInvalid, cfg.policy())
}

func TestLoadConfigFile(t *testing.T) {
	path := writeFile(t, "uniondump.yaml", `
strict: true
on_decode_error: abort
log_format: json
max_event_bytes: 1024
`)
	cfg, err := loadConfig(path)
	require.NoError(t, err)
	require.True(t, cfg.Strict)
	require.Equal(t, sse.AbortOnInvalid, cfg.policy())
	require.Equal(t, "json", cfg.LogFormat)
	require.Equal(t, 1024, cfg.MaxEventBytes)
	require.False(t, cfg.Debug)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read config")

	_, err = loadConfig(writeFile(t, "bad.yaml", "strict: [\n"))
	require.ErrorContains(t, err, "parse config")

	_, err = loadConfig(writeFile(t, "invalid.yaml", "on_decode_error: retry\nlog_format: xml\nmax_event_bytes: -1\n"))
	require.ErrorContains(t, err, `unknown policy "retry"`)
	require.ErrorContains(t, err, `unknown format "xml"`)
	require.ErrorContains(t, err, "max_event_bytes")
}
