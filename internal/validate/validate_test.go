// SPDX-License-Identifier: MIT
package validate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorAccumulates(t *testing.T) {
	v := New()
	v.URL("remote.baseUrl", "ftp://example.com", []string{"http", "https"})
	v.Range("worker.concurrency", 0, 1, 64)
	v.NotEmpty("storage.bucket", "  ")
	v.OneOf("store.driver", "mysql", []string{"sqlite", "postgres"})
	v.MinDuration("sweep.interval", time.Second, time.Minute)

	require.False(t, v.IsValid())
	err := v.Err()
	require.Error(t, err)

	var ve ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Errors(), 5)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestValidatorValid(t *testing.T) {
	v := New()
	v.URL("remote.baseUrl", "https://api.vimeo.com", []string{"https"})
	v.Positive("worker.concurrency", 4)
	v.OneOf("store.driver", "sqlite", []string{"sqlite", "postgres"})
	assert.True(t, v.IsValid())
	assert.NoError(t, v.Err())
}

func TestDirectory(t *testing.T) {
	root := t.TempDir()

	v := New()
	v.Directory("dataDir", filepath.Join(root, "new"), false)
	assert.True(t, v.IsValid())
	_, err := os.Stat(filepath.Join(root, "new"))
	assert.NoError(t, err)

	v = New()
	v.Directory("dataDir", filepath.Join(root, "missing"), true)
	assert.False(t, v.IsValid())

	file := filepath.Join(root, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	v = New()
	v.Directory("dataDir", file, true)
	assert.False(t, v.IsValid())

	v = New()
	v.Directory("dataDir", "../escape", false)
	assert.False(t, v.IsValid())
}
