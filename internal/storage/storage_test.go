package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/vidsync/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T, handler http.HandlerFunc) *S3 {
	t.Helper()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "none"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "none"))
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s, err := New(context.Background(), config.StorageConfig{
		Bucket:          "videos",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		Prefix:          "/uploads/",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		URLTTL:          24 * time.Hour,
	})
	require.NoError(t, err)
	return s
}

func TestStat(t *testing.T) {
	s := newTestStorage(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		if r.URL.Path != "/videos/uploads/asset-1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", "4096")
		w.Header().Set("Content-Type", "video/mp4")
		w.WriteHeader(http.StatusOK)
	})

	obj, err := s.Stat(context.Background(), "asset-1")
	require.NoError(t, err)
	assert.Equal(t, "uploads/asset-1", obj.Key)
	assert.Equal(t, int64(4096), obj.Size)

	_, err = s.Stat(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestPresignGet(t *testing.T) {
	s := newTestStorage(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("presigning must not issue requests, got %s %s", r.Method, r.URL.Path)
	})

	raw, err := s.PresignGet(context.Background(), "asset-1", 0)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/videos/uploads/asset-1", u.Path)
	assert.Equal(t, "86400", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))

	raw, err = s.PresignGet(context.Background(), "asset-1", time.Hour)
	require.NoError(t, err)
	u, _ = url.Parse(raw)
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Region: "us-east-1"})
	assert.Error(t, err)
}

func TestKeyWithoutPrefix(t *testing.T) {
	s := &S3{}
	assert.Equal(t, "asset-1", s.Key("asset-1"))
}
