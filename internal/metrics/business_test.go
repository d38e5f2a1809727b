// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(uploadEntriesTotal.WithLabelValues("upload_failed"))
	IncUploadEntry("upload_failed")
	assert.Equal(t, before+1, testutil.ToFloat64(uploadEntriesTotal.WithLabelValues("upload_failed")))

	before = testutil.ToFloat64(sweepTransitions.WithLabelValues("remote_upload", "upload_completed", "completed"))
	IncSweepTransition("remote_upload", "upload_completed", "completed")
	assert.Equal(t, before+1, testutil.ToFloat64(sweepTransitions.WithLabelValues("remote_upload", "upload_completed", "completed")))
}

func TestRecordTrackedVideosResets(t *testing.T) {
	RecordTrackedVideos(map[string]int{"remote_upload": 3, "upload_failed": 1})
	assert.Equal(t, 3.0, testutil.ToFloat64(trackedVideos.WithLabelValues("remote_upload")))

	RecordTrackedVideos(map[string]int{"upload_completed": 2})
	assert.Equal(t, 1, testutil.CollectAndCount(trackedVideos))
}

func TestPromhttpExposure(t *testing.T) {
	ObserveSweepDuration(250 * time.Millisecond)
	IncJob("vidsync:sweep", "ok")

	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "vidsync_sweep_duration_seconds"))
	assert.True(t, strings.Contains(string(body), `vidsync_jobs_total{result="ok",type="vidsync:sweep"}`))
}
