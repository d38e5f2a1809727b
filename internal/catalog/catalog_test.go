package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ManuGH/vidsync/internal/log"
	"github.com/ManuGH/vidsync/internal/video"
	"github.com/go-chi/chi/v5"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	mu       sync.Mutex
	statuses map[string]string
	contexts map[string][]string
	fail     bool
}

func (f *fakeCatalog) router() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Header.Get("Authorization") != "Bearer secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.fail {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Patch("/videos/{id}", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(req.Body).Decode(&body)
		f.statuses[chi.URLParam(req, "id")] = body["status"]
		w.WriteHeader(http.StatusNoContent)
	})
	r.Post("/videos/{id}/contexts", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(req.Body).Decode(&body)
		id := chi.URLParam(req, "id")
		f.contexts[id] = append(f.contexts[id], body["context_id"])
		w.WriteHeader(http.StatusCreated)
	})
	r.Get("/videos/{id}", func(w http.ResponseWriter, req *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"contexts": f.contexts[chi.URLParam(req, "id")]})
	})
	return r
}

func newFake(t *testing.T) (*fakeCatalog, *HTTPClient) {
	t.Helper()
	f := &fakeCatalog{statuses: map[string]string{}, contexts: map[string][]string{}}
	srv := httptest.NewServer(f.router())
	t.Cleanup(srv.Close)
	return f, NewHTTPClient(srv.URL+"/", "secret", 0)
}

func TestHTTPClientRoundTrip(t *testing.T) {
	f, c := newFake(t)
	ctx := context.Background()

	require.NoError(t, c.PropagateStatus(ctx, "asset-1", video.StatusRemoteUpload))
	f.mu.Lock()
	assert.Equal(t, "remote_upload", f.statuses["asset-1"])
	f.mu.Unlock()

	require.NoError(t, c.AssociateContext(ctx, "asset-1", "course-2"))
	got, err := c.Contexts(ctx, "asset-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"course-2"}, got)
}

func TestHTTPClientFailure(t *testing.T) {
	f, c := newFake(t)
	f.mu.Lock()
	f.fail = true
	f.mu.Unlock()

	err := c.PropagateStatus(context.Background(), "asset-1", video.StatusUploadFailed)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = c.Contexts(context.Background(), "asset-1")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPClientFailureIsRecorded(t *testing.T) {
	var buf bytes.Buffer
	log.Reset()
	log.Configure(log.Config{Level: "debug", Output: &buf})
	t.Cleanup(log.Reset)

	f, c := newFake(t)
	f.mu.Lock()
	f.fail = true
	f.mu.Unlock()

	failed := requestTotal.WithLabelValues(opPropagateStatus, "5xx")
	before := promtestutil.ToFloat64(failed)

	err := c.PropagateStatus(context.Background(), "asset-9", video.StatusRemoteUpload)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, before+1, promtestutil.ToFloat64(failed))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "catalog", entry["component"])
	assert.Equal(t, "catalog.request_failed", entry["event"])
	assert.Equal(t, opPropagateStatus, entry["operation"])
	assert.Equal(t, "asset-9", entry["asset_id"])
	assert.EqualValues(t, http.StatusInternalServerError, entry["http_status"])
}

func TestHTTPClientSuccessIsCounted(t *testing.T) {
	_, c := newFake(t)
	ok := requestTotal.WithLabelValues(opAssociateContext, "2xx")
	before := promtestutil.ToFloat64(ok)

	require.NoError(t, c.AssociateContext(context.Background(), "asset-1", "course-3"))
	assert.Equal(t, before+1, promtestutil.ToFloat64(ok))
}

func TestMemoryCatalog(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.AssociateContext(ctx, "a", "c1"))
	require.NoError(t, m.AssociateContext(ctx, "a", "c1"))
	got, err := m.Contexts(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, got)

	require.NoError(t, m.PropagateStatus(ctx, "a", video.StatusUploadCompleted))
	st, ok := m.Status("a")
	assert.True(t, ok)
	assert.Equal(t, video.StatusUploadCompleted, st)
}
