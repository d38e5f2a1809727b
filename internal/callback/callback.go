// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package callback resolves the one-time download link the hosting service
// pulls the source file from.
package callback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/vidsync/internal/log"
	"github.com/ManuGH/vidsync/internal/metrics"
	"github.com/ManuGH/vidsync/internal/storage"
	"github.com/ManuGH/vidsync/internal/store"
)

var (
	ErrInvalidToken = errors.New("callback: unknown asset or token")
	ErrNotEligible  = errors.New("callback: video is not awaiting a pull")
	ErrTokenExpired = errors.New("callback: token expired")
)

// DefaultURLTTL is the validity of the presigned object URL.
const DefaultURLTTL = 24 * time.Hour

// Resolver checks the token contract and signs the object URL.
type Resolver struct {
	store   store.Store
	storage storage.Source
	urlTTL  time.Duration
	now     func() time.Time
}

// NewResolver returns a resolver signing URLs valid for urlTTL.
func NewResolver(st store.Store, src storage.Source, urlTTL time.Duration) *Resolver {
	if urlTTL <= 0 {
		urlTTL = DefaultURLTTL
	}
	return &Resolver{store: st, storage: src, urlTTL: urlTTL, now: time.Now}
}

// Resolve returns the presigned URL for assetID when token is valid.
func (r *Resolver) Resolve(ctx context.Context, assetID, token string) (string, error) {
	logger := log.WithComponentFromContext(ctx, "callback").With().Str(log.FieldAssetID, assetID).Logger()

	if assetID == "" || token == "" {
		return r.reject(ErrInvalidToken)
	}
	row, err := r.store.GetByToken(ctx, assetID, token)
	if errors.Is(err, store.ErrNotFound) {
		logger.Warn().Str(log.FieldEvent, "callback.invalid_token").Msg("no tracked video matches token")
		return r.reject(ErrInvalidToken)
	}
	if err != nil {
		return "", fmt.Errorf("callback: lookup: %w", err)
	}
	if !row.Status.InProgress() {
		logger.Warn().Str(log.FieldEvent, "callback.not_eligible").Str(log.FieldStatus, string(row.Status)).
			Msg("video is not in an in-progress state")
		return r.reject(ErrNotEligible)
	}
	if now := r.now(); !now.Before(row.ExpiresAt) {
		logger.Warn().Str(log.FieldEvent, "callback.expired").
			Time("expires_at", row.ExpiresAt).
			Time("now", now).
			Msg("callback token expired")
		return r.reject(ErrTokenExpired)
	}

	link, err := r.storage.PresignGet(ctx, assetID, r.urlTTL)
	if err != nil {
		metrics.IncCallbackRequest("storage_error")
		return "", fmt.Errorf("callback: presign: %w", err)
	}
	metrics.IncCallbackRequest("redirected")
	return link, nil
}

func (r *Resolver) reject(err error) (string, error) {
	metrics.IncCallbackRequest("rejected")
	return "", err
}
