// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/ManuGH/vidsync/internal/callback"
	"github.com/ManuGH/vidsync/internal/catalog"
	"github.com/ManuGH/vidsync/internal/config"
	"github.com/ManuGH/vidsync/internal/duplicate"
	"github.com/ManuGH/vidsync/internal/health"
	"github.com/ManuGH/vidsync/internal/log"
	"github.com/ManuGH/vidsync/internal/reconcile"
	"github.com/ManuGH/vidsync/internal/remote"
	"github.com/ManuGH/vidsync/internal/storage"
	"github.com/ManuGH/vidsync/internal/store"
	"github.com/ManuGH/vidsync/internal/thumbnail"
	"github.com/ManuGH/vidsync/internal/upload"
)

// services holds the core components built from one AppConfig.
type services struct {
	store      store.Store
	remote     *remote.Client
	catalog    catalog.Catalog
	storage    storage.Source
	pipeline   *upload.Pipeline
	sweep      *reconcile.Sweep
	duplicator *duplicate.Service
	resolver   *callback.Resolver
	refresher  *thumbnail.Refresher
}

func buildServices(ctx context.Context, cfg config.AppConfig) (*services, error) {
	logger := log.WithComponent("daemon")

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	rc := remote.NewClient(remote.Options{
		BaseURL: cfg.Remote.BaseURL,
		Credentials: remote.Credentials{
			ClientID:     cfg.Remote.ClientID,
			ClientSecret: cfg.Remote.ClientSecret,
			AccessToken:  cfg.Remote.AccessToken,
		},
		Timeout:   cfg.Remote.Timeout,
		RateLimit: rate.Limit(cfg.Remote.RequestsPerSecond),
		UserAgent: "vidsync/" + version,
	})
	if !rc.Configured() {
		logger.Warn().Str(log.FieldEvent, "remote.unconfigured").
			Msg("hosting credentials are not defined; uploads and sweeps will be skipped")
	}

	var cat catalog.Catalog
	if cfg.Catalog.BaseURL != "" {
		cat = catalog.NewHTTPClient(cfg.Catalog.BaseURL, cfg.Catalog.Token, cfg.Catalog.Timeout)
	} else {
		logger.Warn().Str(log.FieldEvent, "catalog.memory").Msg("no catalog configured, using in-memory catalog")
		cat = catalog.NewMemory()
	}

	src, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	pipeline, err := upload.New(upload.Deps{Remote: rc, Storage: src, Catalog: cat, Store: st}, upload.Options{
		FolderID:        cfg.Remote.FolderID,
		Domains:         cfg.Remote.AllowedDomains,
		CallbackBaseURL: cfg.Remote.CallbackBaseURL,
		CallbackTTL:     cfg.Remote.CallbackTTL,
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	sweep, err := reconcile.NewSweep(rc, cat, st, reconcile.DefaultPolicy())
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &services{
		store:      st,
		remote:     rc,
		catalog:    cat,
		storage:    src,
		pipeline:   pipeline,
		sweep:      sweep,
		duplicator: duplicate.NewService(st, cat),
		resolver:   callback.NewResolver(st, src, cfg.Storage.URLTTL),
		refresher:  thumbnail.NewRefresher(rc, st),
	}, nil
}

func (s *services) Close() error {
	return s.store.Close()
}

func redisConnOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
}

func newRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
}

var errSweepSkipped = errors.New("sweep skipped: credentials are not defined")

// recordingRunner feeds sweep outcomes into the readiness checker.
type recordingRunner struct {
	runner   reconcile.Runner
	recorder *health.RunRecorder
}

func (r recordingRunner) Run(ctx context.Context, contextID string) (reconcile.Report, error) {
	report, err := r.runner.Run(ctx, contextID)
	recorded := err
	if err == nil && report.Skipped {
		recorded = errSweepSkipped
	}
	r.recorder.Record(recorded)
	return report, err
}
