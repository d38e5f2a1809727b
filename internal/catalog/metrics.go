package catalog

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidsync_catalog_request_total",
			Help: "Total number of catalog HTTP requests",
		},
		[]string{"operation", "status_class"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidsync_catalog_request_duration_seconds",
			Help:    "Duration of catalog HTTP requests",
			Buckets: prometheus.ExponentialBuckets(0.01, 2.0, 10),
		},
		[]string{"operation", "status_class"},
	)
)

// statusClass labels answered requests by HTTP class and the rest as "error".
func statusClass(status int) string {
	if status == 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}

func recordRequest(op string, status int, d time.Duration) {
	class := statusClass(status)
	requestTotal.WithLabelValues(op, class).Inc()
	requestDuration.WithLabelValues(op, class).Observe(d.Seconds())
}
