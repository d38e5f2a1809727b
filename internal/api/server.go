// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes the HTTP surface of vidsync: the upload callback the
// hosting service pulls from, the picture refresh hook and the operator
// endpoints that queue uploads, sweeps and duplications.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/ManuGH/vidsync/internal/duplicate"
	"github.com/ManuGH/vidsync/internal/health"
	"github.com/ManuGH/vidsync/internal/jobs"
	"github.com/ManuGH/vidsync/internal/store"
	"github.com/ManuGH/vidsync/internal/video"
)

// Enqueuer hands work to the background worker.
type Enqueuer interface {
	EnqueueUpload(ctx context.Context, p jobs.UploadPayload) (string, error)
	EnqueueSweep(ctx context.Context, p jobs.SweepPayload) (string, error)
	EnqueueDuplicate(ctx context.Context, p jobs.DuplicatePayload) (string, error)
}

// CallbackResolver turns an (asset, token) pair into a source URL.
type CallbackResolver interface {
	Resolve(ctx context.Context, assetID, token string) (string, error)
}

// PictureRefresher refreshes the stored thumbnail of a completed video.
type PictureRefresher interface {
	Refresh(ctx context.Context, key video.Key) (string, error)
}

// Duplicator copies tracking rows between contexts.
type Duplicator interface {
	Duplicate(ctx context.Context, assetID, src, dst, actor string) (duplicate.Outcome, error)
	DuplicateAll(ctx context.Context, src, dst, actor string) ([]duplicate.Result, error)
}

// VideoLister reads tracked rows.
type VideoLister interface {
	List(ctx context.Context, f store.Filter) ([]video.TrackedVideo, error)
}

// Deps are the collaborators of the HTTP server.
type Deps struct {
	Queue      Enqueuer
	Callback   CallbackResolver
	Pictures   PictureRefresher
	Duplicator Duplicator
	Videos     VideoLister
	Health     *health.Manager
	Metrics    http.Handler // nil disables /metrics
}

// Options tune the HTTP surface.
type Options struct {
	APIToken         string
	RateLimit        int // requests per minute per client IP
	TracingService   string
	DisableAccessLog bool
}

// Server routes HTTP requests to the core services.
type Server struct {
	deps Deps
	opts Options
}

// New validates deps and returns a server.
func New(deps Deps, opts Options) (*Server, error) {
	switch {
	case deps.Queue == nil:
		return nil, errors.New("api: queue is required")
	case deps.Callback == nil:
		return nil, errors.New("api: callback resolver is required")
	case deps.Pictures == nil:
		return nil, errors.New("api: picture refresher is required")
	case deps.Duplicator == nil:
		return nil, errors.New("api: duplicator is required")
	case deps.Videos == nil:
		return nil, errors.New("api: video lister is required")
	}
	if deps.Health == nil {
		deps.Health = health.NewManager("")
	}
	return &Server{deps: deps, opts: opts}, nil
}
