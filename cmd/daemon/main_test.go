// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/vidsync/internal/health"
	"github.com/ManuGH/vidsync/internal/reconcile"
)

func TestRunVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-version"}, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), version)
}

func TestRunUnknownFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run([]string{"-bogus"}, &stdout, &stderr))
}

func TestConfigValidate(t *testing.T) {
	dataDir := t.TempDir()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dataDir: "+dataDir+"\nlogLevel: debug\n"), 0o600))

	var stdout, stderr bytes.Buffer
	code := runConfigCLI([]string{"validate", "-f", path}, &stdout, &stderr)
	assert.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "is valid")
}

func TestConfigValidateRejectsUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dataDir: "+t.TempDir()+"\nbogus: 1\n"), 0o600))

	var stdout, stderr bytes.Buffer
	code := runConfigCLI([]string{"validate", "--file", path}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Configuration error")
}

func TestConfigDumpRedactsSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "dataDir: " + t.TempDir() + "\nremote:\n  clientSecret: hunter2\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	var stdout, stderr bytes.Buffer
	code := runConfigCLI([]string{"dump", "-f", path, "--format=json"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.NotContains(t, stdout.String(), "hunter2")
	assert.Contains(t, stdout.String(), "***")
}

func TestConfigUnknownSubcommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, runConfigCLI([]string{"explode"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Usage:")
}

func TestDuplicateRequiresContexts(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, runDuplicateCLI([]string{"-asset", "a1"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "-from and -to are required")

	stderr.Reset()
	assert.Equal(t, 2, runDuplicateCLI([]string{"-from", "c1", "-to", "c2"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "exactly one of -asset or -all")

	stderr.Reset()
	assert.Equal(t, 2, runDuplicateCLI([]string{"-all", "-asset", "a1", "-from", "c1", "-to", "c2"}, &stdout, &stderr))
}

func TestHealthcheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/healthz":
			w.WriteHeader(http.StatusOK)
		case "/readyz":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	addr := strings.TrimPrefix(srv.URL, "http://")

	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{name: "live", args: []string{"-addr", addr, "-mode", "live"}, wantCode: 0, wantStdout: "Healthcheck successful (live)"},
		{name: "not ready", args: []string{"-addr", addr}, wantCode: 1, wantStderr: "503"},
		{name: "unknown mode", args: []string{"-addr", addr, "-mode", "deep"}, wantCode: 2, wantStderr: "unknown mode"},
		{name: "bad flag", args: []string{"-bogus"}, wantCode: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(append([]string{"healthcheck"}, tt.args...), &stdout, &stderr)
			assert.Equal(t, tt.wantCode, code, stderr.String())
			assert.Contains(t, stdout.String(), tt.wantStdout)
			assert.Contains(t, stderr.String(), tt.wantStderr)
		})
	}
}

func TestHealthcheckUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, runHealthcheckCLI([]string{"-addr", addr, "-timeout", "1s"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "network")
}

type stubRunner struct {
	report reconcile.Report
	err    error
}

func (s stubRunner) Run(context.Context, string) (reconcile.Report, error) {
	return s.report, s.err
}

func TestRecordingRunner(t *testing.T) {
	tests := []struct {
		name     string
		runner   stubRunner
		wantErr  bool
		wantLast string
	}{
		{name: "success", runner: stubRunner{report: reconcile.Report{Visited: 2}}},
		{name: "skipped", runner: stubRunner{report: reconcile.Report{Skipped: true}}, wantLast: errSweepSkipped.Error()},
		{name: "failed", runner: stubRunner{err: errors.New("list: boom")}, wantErr: true, wantLast: "list: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := health.NewRunRecorder()
			r := recordingRunner{runner: tt.runner, recorder: rec}

			_, err := r.Run(context.Background(), "")
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			at, last := rec.Last()
			assert.False(t, at.IsZero())
			assert.Equal(t, tt.wantLast, last)
		})
	}
}
