package config

import (
	"strings"
	"time"

	"github.com/ManuGH/vidsync/internal/validate"
)

// Validate checks a resolved AppConfig.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.OneOf("logLevel", strings.ToLower(cfg.LogLevel), []string{"trace", "debug", "info", "warn", "error"})
	v.Directory("dataDir", cfg.DataDir, false)
	v.NotEmpty("server.listenAddr", cfg.Server.ListenAddr)
	v.Range("server.rateLimit", cfg.Server.RateLimit, 1, 100000)

	v.URL("remote.baseUrl", cfg.Remote.BaseURL, []string{"http", "https"})
	v.MinDuration("remote.timeout", cfg.Remote.Timeout, time.Second)
	v.MinDuration("remote.callbackTtl", cfg.Remote.CallbackTTL, time.Minute)
	if cfg.Remote.RequestsPerSecond < 0 {
		v.AddError("remote.requestsPerSecond", "must not be negative", cfg.Remote.RequestsPerSecond)
	}
	if cfg.Remote.CallbackBaseURL != "" {
		v.URL("remote.callbackBaseUrl", cfg.Remote.CallbackBaseURL, []string{"http", "https"})
	}
	if cfg.Catalog.BaseURL != "" {
		v.URL("catalog.baseUrl", cfg.Catalog.BaseURL, []string{"http", "https"})
	}
	if cfg.Storage.Endpoint != "" {
		v.URL("storage.endpoint", cfg.Storage.Endpoint, []string{"http", "https"})
	}
	v.MinDuration("storage.urlTtl", cfg.Storage.URLTTL, time.Minute)

	v.OneOf("store.driver", cfg.Store.Driver, []string{"sqlite", "postgres"})
	if cfg.Store.Driver == "postgres" {
		v.NotEmpty("store.dsn", cfg.Store.DSN)
	}

	if cfg.Sweep.Enabled {
		v.MinDuration("sweep.interval", cfg.Sweep.Interval, time.Second)
		if cfg.Sweep.MaxInterval < cfg.Sweep.Interval {
			v.AddError("sweep.maxInterval", "must be >= sweep.interval", cfg.Sweep.MaxInterval)
		}
		v.MinDuration("sweep.lockTtl", cfg.Sweep.LockTTL, time.Second)
	}
	v.Range("worker.concurrency", cfg.Worker.Concurrency, 1, 256)

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.ExporterType, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
	}

	return v.Err()
}
