// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package upload pushes catalog entries to the hosting service and places
// them there.
package upload

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ManuGH/vidsync/internal/catalog"
	"github.com/ManuGH/vidsync/internal/log"
	"github.com/ManuGH/vidsync/internal/metrics"
	"github.com/ManuGH/vidsync/internal/remote"
	"github.com/ManuGH/vidsync/internal/storage"
	"github.com/ManuGH/vidsync/internal/store"
	"github.com/ManuGH/vidsync/internal/telemetry"
	"github.com/ManuGH/vidsync/internal/video"
)

// Messages appended to an entry result, one per failed step.
const (
	MsgUploadFailed  = "could not upload the video. "
	MsgDomainsFailed = "could not add the allowed domains. "
	MsgFolderFailed  = "could not move the video to the main folder. "
	MsgNotConfirmed  = "video did not upload correctly to the remote service."
)

const (
	defaultCallbackTTL  = time.Hour
	callbackPath        = "/vimeo/callback"
	resultPassthrough   = "passthrough"
	stepRestrictDomains = "restrict_domains"
	stepMoveToFolder    = "move_to_folder"
)

// ErrMissingContext is returned when a batch has ready entries but no context.
var ErrMissingContext = errors.New("upload: context id is required")

// Deps are the collaborators of the pipeline.
type Deps struct {
	Remote  remote.Service
	Storage storage.Source
	Catalog catalog.Catalog
	Store   store.Store
}

// Options carry the defaults applied when a batch leaves a field empty.
type Options struct {
	FolderID        string
	Domains         []string
	CallbackBaseURL string
	CallbackTTL     time.Duration

	Now      func() time.Time
	NewToken func() string
}

// Batch is one pipeline invocation.
type Batch struct {
	ContextID       string        `json:"context_id"`
	Owner           string        `json:"owner,omitempty"`
	FolderID        string        `json:"folder_id,omitempty"`
	Domains         []string      `json:"domains,omitempty"`
	CallbackBaseURL string        `json:"callback_base_url,omitempty"`
	Entries         []video.Entry `json:"entries"`
}

// Pipeline drives ready entries through create, restrict, move and confirm.
type Pipeline struct {
	deps Deps
	opts Options
}

// New validates deps and applies option defaults.
func New(deps Deps, opts Options) (*Pipeline, error) {
	if deps.Remote == nil || deps.Storage == nil || deps.Catalog == nil || deps.Store == nil {
		return nil, errors.New("upload: remote, storage, catalog and store are required")
	}
	if opts.CallbackTTL <= 0 {
		opts.CallbackTTL = defaultCallbackTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewToken == nil {
		opts.NewToken = uuid.NewString
	}
	return &Pipeline{deps: deps, opts: opts}, nil
}

// Run processes the batch sequentially and returns one result per entry in
// input order. Remote failures end up in the per-entry result; only an
// invalid batch returns an error.
func (p *Pipeline) Run(ctx context.Context, b Batch) ([]video.Entry, error) {
	ctx, span := telemetry.Tracer("vidsync.upload").Start(ctx, "upload.run")
	defer span.End()
	span.SetAttributes(
		attribute.String(telemetry.VideoContextIDKey, b.ContextID),
		attribute.Int("upload.entries", len(b.Entries)),
	)

	b = p.withDefaults(b)
	out := make([]video.Entry, len(b.Entries))
	for i, e := range b.Entries {
		if !e.Ready() {
			out[i] = e
			metrics.IncUploadEntry(resultPassthrough)
			continue
		}
		if strings.TrimSpace(b.ContextID) == "" {
			span.SetStatus(codes.Error, ErrMissingContext.Error())
			return nil, ErrMissingContext
		}
		out[i] = p.process(ctx, b, e)
		metrics.IncUploadEntry(out[i].Status)
	}
	return out, nil
}

func (p *Pipeline) withDefaults(b Batch) Batch {
	if b.FolderID == "" {
		b.FolderID = p.opts.FolderID
	}
	if len(b.Domains) == 0 {
		b.Domains = p.opts.Domains
	}
	if b.CallbackBaseURL == "" {
		b.CallbackBaseURL = p.opts.CallbackBaseURL
	}
	return b
}

func (p *Pipeline) process(ctx context.Context, b Batch, e video.Entry) video.Entry {
	logger := log.WithComponentFromContext(ctx, "upload").With().
		Str(log.FieldAssetID, e.AssetID).
		Str(log.FieldContextID, b.ContextID).
		Logger()

	now := p.opts.Now()
	rec := video.TrackedVideo{
		AssetID:   e.AssetID,
		ContextID: b.ContextID,
		Owner:     b.Owner,
	}

	res, err := p.create(ctx, b, e.AssetID, &rec, now)
	if err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "upload.create_failed").Msg("remote upload creation failed")
		rec.Status = video.StatusUploadFailed
		rec.RemoteID = ""
		rec.AccessToken = ""
		rec.ErrorDetail = strings.TrimSpace(MsgUploadFailed)
		p.persist(ctx, rec, &logger)
		p.propagate(ctx, rec, &logger)
		return video.Entry{AssetID: e.AssetID, Status: string(video.StatusUploadFailed), Message: MsgUploadFailed}
	}

	rec.RemoteID = res.RemoteID
	rec.Status = video.StatusRemoteUpload
	p.persist(ctx, rec, &logger)
	logger = logger.With().Str(log.FieldRemoteID, rec.RemoteID).Logger()

	var msg strings.Builder
	if err := p.deps.Remote.RestrictDomains(ctx, rec.RemoteID, b.Domains); err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "upload.domains_failed").Msg("could not restrict embed domains")
		metrics.IncUploadStepFailure(stepRestrictDomains)
		msg.WriteString(MsgDomainsFailed)
	}
	if err := p.deps.Remote.MoveToFolder(ctx, rec.RemoteID, b.FolderID); err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "upload.folder_failed").Msg("could not move video to folder")
		metrics.IncUploadStepFailure(stepMoveToFolder)
		msg.WriteString(MsgFolderFailed)
	}

	if !p.confirmed(ctx, rec.RemoteID, &logger) {
		rec.Status = video.StatusUploadFailed
		msg.WriteString(MsgNotConfirmed)
	}

	rec.ErrorDetail = strings.TrimSpace(msg.String())
	p.persist(ctx, rec, &logger)
	p.propagate(ctx, rec, &logger)

	logger.Info().
		Str(log.FieldEvent, "upload.entry_done").
		Str(log.FieldStatus, string(rec.Status)).
		Str(log.FieldDetail, rec.ErrorDetail).
		Msg("upload entry processed")

	return video.Entry{
		AssetID:  e.AssetID,
		Status:   string(rec.Status),
		Message:  msg.String(),
		RemoteID: rec.RemoteID,
	}
}

// create resolves the source object, mints the callback token and asks the
// service to pull the file.
func (p *Pipeline) create(ctx context.Context, b Batch, assetID string, rec *video.TrackedVideo, now time.Time) (remote.UploadResult, error) {
	if !p.deps.Remote.Configured() {
		return remote.UploadResult{}, remote.ErrCredentialsMissing
	}
	obj, err := p.deps.Storage.Stat(ctx, assetID)
	if err != nil {
		return remote.UploadResult{}, fmt.Errorf("resolve source: %w", err)
	}

	token := p.opts.NewToken()
	link, err := CallbackURL(b.CallbackBaseURL, assetID, token)
	if err != nil {
		return remote.UploadResult{}, err
	}

	res, err := p.deps.Remote.CreateUpload(ctx, remote.Source{Name: assetID, Size: obj.Size, Link: link})
	if err != nil {
		return remote.UploadResult{}, err
	}
	if res.RemoteID == "" {
		res.RemoteID = remote.RemoteIDFromURI(res.URI)
	}
	if res.RemoteID == "" {
		return remote.UploadResult{}, fmt.Errorf("create upload: no remote id in %q", res.URI)
	}
	if res.Failed() {
		return remote.UploadResult{}, fmt.Errorf("create upload: service reported %s", res.UploadStatus)
	}

	rec.AccessToken = token
	rec.ExpiresAt = now.Add(p.opts.CallbackTTL)
	return res, nil
}

func (p *Pipeline) confirmed(ctx context.Context, remoteID string, logger *zerolog.Logger) bool {
	st, err := p.deps.Remote.GetStatus(ctx, remoteID)
	switch {
	case err != nil:
		logger.Warn().Err(err).Str(log.FieldEvent, "upload.confirm_failed").Msg("status fetch failed")
		return false
	case st == nil || st.Upload == nil:
		logger.Warn().Str(log.FieldEvent, "upload.confirm_failed").Msg("status response has no upload section")
		return false
	case st.UploadStatus() == remote.StateError:
		logger.Warn().Str(log.FieldEvent, "upload.confirm_failed").Msg("service reported upload error")
		return false
	}
	return true
}

func (p *Pipeline) persist(ctx context.Context, rec video.TrackedVideo, logger *zerolog.Logger) {
	if err := p.deps.Store.Upsert(ctx, rec); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "upload.persist_failed").Msg("could not persist tracked video")
	}
}

func (p *Pipeline) propagate(ctx context.Context, rec video.TrackedVideo, logger *zerolog.Logger) {
	if err := p.deps.Catalog.PropagateStatus(ctx, rec.AssetID, rec.Status); err != nil {
		metrics.IncPropagationFailure("upload")
		logger.Error().Err(err).Str(log.FieldEvent, "upload.propagate_failed").Msg("catalog status propagation failed")
	}
}

// CallbackURL builds the one-time pull URL handed to the hosting service.
func CallbackURL(base, assetID, token string) (string, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return "", errors.New("upload: callback base url is not configured")
	}
	u, err := url.Parse(base + callbackPath)
	if err != nil {
		return "", fmt.Errorf("upload: invalid callback base url: %w", err)
	}
	q := u.Query()
	q.Set("videoid", assetID)
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
