// SPDX-License-Identifier: MIT

// Package metrics exposes the service-level prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uploadEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidsync_upload_entries_total",
		Help: "Upload pipeline entries by final status",
	}, []string{"status"}) // status=remote_upload|upload_failed|passthrough

	uploadStepFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidsync_upload_step_failures_total",
		Help: "Non-fatal upload pipeline step failures",
	}, []string{"step"}) // step=restrict_domains|move_to_folder

	sweepRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidsync_sweep_runs_total",
		Help: "Reconciliation sweep runs by outcome",
	}, []string{"outcome"}) // outcome=completed|skipped|failed|locked

	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vidsync_sweep_duration_seconds",
		Help:    "Duration of reconciliation sweep runs",
		Buckets: prometheus.ExponentialBuckets(0.1, 2.0, 12),
	})

	sweepTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidsync_sweep_transitions_total",
		Help: "Status transitions computed by the reconciliation sweep",
	}, []string{"from", "to", "reason"})

	propagationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidsync_catalog_propagation_failures_total",
		Help: "Catalog status propagation failures",
	}, []string{"component"})

	duplicationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidsync_duplications_total",
		Help: "Duplication requests by outcome",
	}, []string{"outcome"})

	callbackRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidsync_callback_requests_total",
		Help: "Download callback requests by result",
	}, []string{"result"})

	pictureRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidsync_picture_refresh_total",
		Help: "Picture refresh requests by result",
	}, []string{"result"})

	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidsync_jobs_total",
		Help: "Background jobs processed by type and result",
	}, []string{"type", "result"})

	trackedVideos = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vidsync_tracked_videos",
		Help: "Tracked videos visited by the last sweep, by resulting status",
	}, []string{"status"})
)

func IncUploadEntry(status string)    { uploadEntriesTotal.WithLabelValues(status).Inc() }
func IncUploadStepFailure(step string) { uploadStepFailures.WithLabelValues(step).Inc() }
func IncSweepRun(outcome string)       { sweepRunsTotal.WithLabelValues(outcome).Inc() }
func ObserveSweepDuration(d time.Duration) {
	sweepDuration.Observe(d.Seconds())
}

// IncSweepTransition records one computed status change.
func IncSweepTransition(from, to, reason string) {
	sweepTransitions.WithLabelValues(from, to, reason).Inc()
}

func IncPropagationFailure(component string) {
	propagationFailures.WithLabelValues(component).Inc()
}
func IncDuplication(outcome string)      { duplicationsTotal.WithLabelValues(outcome).Inc() }
func IncCallbackRequest(result string)   { callbackRequestsTotal.WithLabelValues(result).Inc() }
func IncPictureRefresh(result string)    { pictureRefreshTotal.WithLabelValues(result).Inc() }
func IncJob(jobType, result string)      { jobsTotal.WithLabelValues(jobType, result).Inc() }

// RecordTrackedVideos replaces the per-status gauge with counts from a sweep.
func RecordTrackedVideos(counts map[string]int) {
	trackedVideos.Reset()
	for status, n := range counts {
		trackedVideos.WithLabelValues(status).Set(float64(n))
	}
}
