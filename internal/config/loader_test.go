// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VIDSYNC_DATA_DIR", t.TempDir())

	cfg, err := NewLoader("", "v1.2.3").Load()
	require.NoError(t, err)

	assert.Equal(t, "v1.2.3", cfg.Version)
	assert.Equal(t, "https://api.vimeo.com", cfg.Remote.BaseURL)
	assert.Equal(t, time.Hour, cfg.Remote.CallbackTTL)
	assert.Equal(t, 24*time.Hour, cfg.Storage.URLTTL)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, filepath.Join(cfg.DataDir, "vidsync.db"), cfg.Store.Path)
	assert.False(t, cfg.Remote.Configured())
}

func TestLoadFileThenEnv(t *testing.T) {
	dataDir := t.TempDir()
	path := writeConfig(t, `
dataDir: `+dataDir+`
remote:
  clientId: id
  clientSecret: secret
  accessToken: token
  folderId: "42"
  allowedDomains: [courses.example.org]
  callbackTtl: 2h
sweep:
  interval: 1m
  maxInterval: 10m
`)
	t.Setenv("VIDSYNC_REMOTE_FOLDER_ID", "99")
	t.Setenv("VIDSYNC_REMOTE_ALLOWED_DOMAINS", "a.example.org, b.example.org,")

	l := NewLoader(path, "dev")
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.True(t, cfg.Remote.Configured())
	assert.Equal(t, "99", cfg.Remote.FolderID)
	assert.Equal(t, []string{"a.example.org", "b.example.org"}, cfg.Remote.AllowedDomains)
	assert.Equal(t, 2*time.Hour, cfg.Remote.CallbackTTL)
	assert.Equal(t, time.Minute, cfg.Sweep.Interval)
	assert.Contains(t, l.ConsumedEnvKeys, "VIDSYNC_REMOTE_FOLDER_ID")
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "dataDir: /tmp\nunknownField: true\n")
	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownConfigField)
}

func TestLoadRejectsMultipleDocuments(t *testing.T) {
	path := writeConfig(t, "logLevel: info\n---\nlogLevel: debug\n")
	_, err := NewLoader(path, "").Load()
	assert.ErrorIs(t, err, ErrMultipleDocuments)
}

func TestLoadRejectsNonYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
	_, err := NewLoader(path, "").Load()
	assert.Error(t, err)
}

func TestValidateFailures(t *testing.T) {
	cfg := Defaults()
	cfg.DataDir = t.TempDir()
	cfg.Store.Driver = "postgres"
	cfg.Sweep.MaxInterval = time.Second
	cfg.Worker.Concurrency = 0

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.dsn")
	assert.Contains(t, err.Error(), "sweep.maxInterval")
	assert.Contains(t, err.Error(), "worker.concurrency")
}

func TestRedacted(t *testing.T) {
	cfg := Defaults()
	cfg.Remote.AccessToken = "secret-token"
	cfg.Server.APIToken = ""

	r := cfg.Redacted()
	assert.Equal(t, "***", r.Remote.AccessToken)
	assert.Empty(t, r.Server.APIToken)
	assert.Equal(t, "secret-token", cfg.Remote.AccessToken)
}

func TestParseHelpers(t *testing.T) {
	t.Setenv("VIDSYNC_TEST_INT", "nope")
	assert.Equal(t, 7, ParseInt("VIDSYNC_TEST_INT", 7))

	t.Setenv("VIDSYNC_TEST_BOOL", "YES")
	assert.True(t, ParseBool("VIDSYNC_TEST_BOOL", false))

	t.Setenv("VIDSYNC_TEST_DUR", "")
	assert.Equal(t, time.Second, ParseDuration("VIDSYNC_TEST_DUR", time.Second))

	assert.True(t, isSensitiveKey("VIDSYNC_REMOTE_CLIENT_SECRET"))
	assert.False(t, isSensitiveKey("VIDSYNC_REMOTE_FOLDER_ID"))
}
