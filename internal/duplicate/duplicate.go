// Package duplicate propagates tracked videos to new contexts.
package duplicate

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/ManuGH/vidsync/internal/catalog"
	"github.com/ManuGH/vidsync/internal/log"
	"github.com/ManuGH/vidsync/internal/metrics"
	"github.com/ManuGH/vidsync/internal/store"
	"github.com/ManuGH/vidsync/internal/video"
)

// Outcome describes what a duplicate call did.
type Outcome string

const (
	OutcomeNoSource                Outcome = "no_source"
	OutcomeCatalogHasContext       Outcome = "catalog_has_context"
	OutcomeAlreadyTracked          Outcome = "already_tracked"
	OutcomeDuplicated              Outcome = "duplicated"
	OutcomeDuplicatedCatalogFailed Outcome = "duplicated_catalog_failed"
)

// Result is the per-asset outcome.
type Result struct {
	AssetID string  `json:"asset_id"`
	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`
}

// Service copies tracking rows between contexts.
type Service struct {
	store   store.Store
	catalog catalog.Catalog
}

// NewService returns a duplication service.
func NewService(st store.Store, cat catalog.Catalog) *Service {
	return &Service{store: st, catalog: cat}
}

// Duplicate copies the (asset, src) row to dst. Guarded no-ops return a
// nil error; only store failures are returned. actor may be empty.
func (s *Service) Duplicate(ctx context.Context, assetID, src, dst, actor string) (Outcome, error) {
	logger := log.WithComponentFromContext(ctx, "duplicate").With().
		Str(log.FieldAssetID, assetID).
		Str("source_context", src).
		Str("target_context", dst).
		Logger()

	if src == dst {
		return "", fmt.Errorf("duplicate: source and target context are both %q", src)
	}

	source, err := s.store.Get(ctx, video.Key{AssetID: assetID, ContextID: src})
	if errors.Is(err, store.ErrNotFound) {
		logger.Info().Str(log.FieldEvent, "duplicate.no_source").Msg("nothing tracked in source context")
		return s.done(OutcomeNoSource), nil
	}
	if err != nil {
		return "", fmt.Errorf("duplicate: load source: %w", err)
	}

	contexts, err := s.catalog.Contexts(ctx, assetID)
	if err != nil {
		return "", fmt.Errorf("duplicate: catalog contexts: %w", err)
	}
	if slices.Contains(contexts, dst) {
		logger.Info().Str(log.FieldEvent, "duplicate.catalog_has_context").Msg("catalog already lists target context")
		return s.done(OutcomeCatalogHasContext), nil
	}

	owner := actor
	if owner == "" {
		owner = source.Owner
	}
	clone := video.TrackedVideo{
		AssetID:     assetID,
		ContextID:   dst,
		RemoteID:    source.RemoteID,
		Status:      source.Status,
		RemoteURL:   source.RemoteURL,
		PictureURL:  source.PictureURL,
		ErrorDetail: source.ErrorDetail,
		ExpiresAt:   source.ExpiresAt,
		Owner:       owner,
	}
	switch err := s.store.Create(ctx, clone); {
	case errors.Is(err, store.ErrConflict):
		logger.Info().Str(log.FieldEvent, "duplicate.already_tracked").Msg("target context already tracked")
		return s.done(OutcomeAlreadyTracked), nil
	case err != nil:
		return "", fmt.Errorf("duplicate: create: %w", err)
	}

	if err := s.catalog.AssociateContext(ctx, assetID, dst); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "duplicate.catalog_failed").
			Msg("row created but catalog association failed")
		return s.done(OutcomeDuplicatedCatalogFailed), nil
	}

	logger.Info().Str(log.FieldEvent, "duplicate.done").Str(log.FieldStatus, string(clone.Status)).Msg("video duplicated")
	return s.done(OutcomeDuplicated), nil
}

// DuplicateAll duplicates every row of src independently.
func (s *Service) DuplicateAll(ctx context.Context, src, dst, actor string) ([]Result, error) {
	rows, err := s.store.List(ctx, store.Filter{ContextID: src})
	if err != nil {
		return nil, fmt.Errorf("duplicate: list source context: %w", err)
	}
	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		outcome, err := s.Duplicate(ctx, row.AssetID, src, dst, actor)
		r := Result{AssetID: row.AssetID, Outcome: outcome}
		if err != nil {
			r.Error = err.Error()
		}
		results = append(results, r)
	}
	return results, nil
}

func (s *Service) done(o Outcome) Outcome {
	metrics.IncDuplication(string(o))
	return o
}
