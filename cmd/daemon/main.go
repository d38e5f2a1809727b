// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command vidsyncd runs the HTTP surface, the background job worker and the
// periodic reconciliation sweep.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/vidsync/internal/api"
	"github.com/ManuGH/vidsync/internal/config"
	"github.com/ManuGH/vidsync/internal/health"
	"github.com/ManuGH/vidsync/internal/jobs"
	"github.com/ManuGH/vidsync/internal/log"
	"github.com/ManuGH/vidsync/internal/reconcile"
	"github.com/ManuGH/vidsync/internal/telemetry"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	// A missing .env is the normal case outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(stderr, "Failed to read .env: %v\n", err)
		return 1
	}

	if len(args) > 0 {
		switch args[0] {
		case "config":
			return runConfigCLI(args[1:], stdout, stderr)
		case "sweep":
			return runSweepCLI(args[1:], stdout, stderr)
		case "duplicate":
			return runDuplicateCLI(args[1:], stdout, stderr)
		case "healthcheck":
			return runHealthcheckCLI(args[1:], stdout, stderr)
		}
	}

	fs := flag.NewFlagSet("vidsyncd", flag.ContinueOnError)
	fs.SetOutput(stderr)
	showVersion := fs.Bool("version", false, "print version and exit")
	configPath := fs.String("config", "", "path to config file (YAML)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintf(stdout, "%s (commit: %s, built: %s)\n", version, commit, buildDate)
		return 0
	}

	cfg, code := loadConfig(*configPath, stderr)
	if code != 0 {
		return code
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg); err != nil {
		logger := log.WithComponent("daemon")
		logger.Error().Err(err).Str(log.FieldEvent, "daemon.failed").Msg("daemon exited with error")
		return 1
	}
	return 0
}

// loadConfig resolves the configuration and configures the global logger.
func loadConfig(path string, stderr io.Writer) (config.AppConfig, int) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = resolveDefaultConfigPath()
	}

	cfg, err := config.NewLoader(path, version).Load()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", displayPath(path), err)
		return cfg, 1
	}

	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Service: "vidsync",
		Version: cfg.Version,
	})

	logger := log.WithComponent("daemon")
	logger.Info().
		Str(log.FieldEvent, "config.loaded").
		Str("source", displayPath(path)).
		Str("store_driver", cfg.Store.Driver).
		Bool("sweep_enabled", cfg.Sweep.Enabled).
		Msg("configuration loaded")
	return cfg, 0
}

func serve(ctx context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("daemon")

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "vidsync",
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Telemetry.ExporterType,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	svc, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	rdb := newRedisClient(cfg.Redis)
	defer func() { _ = rdb.Close() }()

	queue := jobs.NewQueue(redisConnOpt(cfg.Redis))
	defer func() { _ = queue.Close() }()

	recorder := health.NewRunRecorder()
	sweepRunner := recordingRunner{runner: svc.sweep, recorder: recorder}

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewPingChecker("store", 2*time.Second, svc.store.Ping))
	hm.RegisterChecker(health.NewPingChecker("redis", 2*time.Second, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}))
	hm.RegisterChecker(health.NewCredentialsChecker(svc.remote.Configured))
	hm.RegisterChecker(health.NewLastRunChecker("sweep", 3*cfg.Sweep.MaxInterval, recorder.Last))

	srv, err := api.New(api.Deps{
		Queue:      queue,
		Callback:   svc.resolver,
		Pictures:   svc.refresher,
		Duplicator: svc.duplicator,
		Videos:     svc.store,
		Health:     hm,
		Metrics:    promhttp.Handler(),
	}, api.Options{
		APIToken:       cfg.Server.APIToken,
		RateLimit:      cfg.Server.RateLimit,
		TracingService: tracingService(cfg),
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	handlers := &jobs.Handlers{
		Uploader:   svc.pipeline,
		Sweep:      sweepRunner,
		Duplicator: svc.duplicator,
	}
	worker := jobs.NewServer(redisConnOpt(cfg.Redis), cfg.Worker.Concurrency)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str(log.FieldEvent, "http.listen").Str("addr", cfg.Server.ListenAddr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		if err := worker.Start(handlers.Mux()); err != nil {
			return fmt.Errorf("job worker: %w", err)
		}
		<-gctx.Done()
		worker.Shutdown()
		return nil
	})

	if cfg.Sweep.Enabled {
		sched := reconcile.NewScheduler(sweepRunner, reconcile.NewRedisLock(rdb, "", cfg.Sweep.LockTTL))
		sched.BaseInterval = cfg.Sweep.Interval
		sched.MaxInterval = cfg.Sweep.MaxInterval
		sched.Jitter = cfg.Sweep.Jitter
		sched.StartupDelay = cfg.Sweep.StartupDelay
		g.Go(func() error {
			sched.Run(gctx)
			return nil
		})
	}

	logger.Info().
		Str(log.FieldEvent, "daemon.started").
		Str("version", version).
		Str("commit", commit).
		Msg("vidsync started")

	err = g.Wait()
	logger.Info().Str(log.FieldEvent, "daemon.stopped").Msg("vidsync stopped")
	return err
}

func tracingService(cfg config.AppConfig) string {
	if !cfg.Telemetry.Enabled {
		return ""
	}
	return "vidsync"
}
