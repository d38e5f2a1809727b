// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package remote

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidsync_remote_request_total",
			Help: "Total number of hosting service HTTP requests",
		},
		[]string{"method", "operation", "status_class"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidsync_remote_request_duration_seconds",
			Help:    "Duration of hosting service HTTP requests",
			Buckets: prometheus.ExponentialBuckets(0.05, 2.0, 10),
		},
		[]string{"method", "operation", "status_class"},
	)
	requestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidsync_remote_request_errors_total",
			Help: "Number of hosting service requests that failed",
		},
		[]string{"method", "operation", "status_class"},
	)
	credentialsMissingTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidsync_remote_credentials_missing_total",
			Help: "Remote operations skipped because credentials are not configured",
		},
		[]string{"operation"},
	)
)

func statusClass(err error, status int) string {
	if err != nil {
		return "error"
	}
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	case status > 0:
		return "1xx"
	}
	return "unknown"
}

func recordRequestMetrics(method, operation string, status int, duration time.Duration, err error) {
	class := statusClass(err, status)
	requestTotal.WithLabelValues(method, operation, class).Inc()
	requestDuration.WithLabelValues(method, operation, class).Observe(duration.Seconds())
	if class != "2xx" {
		requestErrors.WithLabelValues(method, operation, class).Inc()
	}
}
