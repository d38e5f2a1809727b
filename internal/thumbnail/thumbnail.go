// Package thumbnail refreshes the picture of completed videos on demand.
package thumbnail

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/vidsync/internal/log"
	"github.com/ManuGH/vidsync/internal/metrics"
	"github.com/ManuGH/vidsync/internal/remote"
	"github.com/ManuGH/vidsync/internal/store"
	"github.com/ManuGH/vidsync/internal/video"
)

var (
	ErrNotCompleted       = errors.New("the video does not exist")
	ErrRemote             = errors.New("error updating video picture")
	ErrCredentialsMissing = errors.New("credentials are not defined")
)

// Refresher pulls the largest thumbnail from the hosting service.
type Refresher struct {
	remote remote.Service
	store  store.Store
}

func NewRefresher(rs remote.Service, st store.Store) *Refresher {
	return &Refresher{remote: rs, store: st}
}

// Refresh stores and returns the new picture URL of an upload_completed row.
func (r *Refresher) Refresh(ctx context.Context, key video.Key) (string, error) {
	logger := log.WithComponentFromContext(ctx, "thumbnail").With().
		Str(log.FieldAssetID, key.AssetID).
		Str(log.FieldContextID, key.ContextID).
		Logger()

	row, err := r.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) || (err == nil && row.Status != video.StatusUploadCompleted) {
		metrics.IncPictureRefresh("not_completed")
		return "", ErrNotCompleted
	}
	if err != nil {
		return "", fmt.Errorf("thumbnail: load: %w", err)
	}
	if !r.remote.Configured() {
		metrics.IncPictureRefresh("credentials_missing")
		return "", ErrCredentialsMissing
	}

	st, err := r.remote.GetStatus(ctx, row.RemoteID)
	if err != nil {
		logger.Warn().Err(err).Str(log.FieldRemoteID, row.RemoteID).Msg("picture refresh failed")
		metrics.IncPictureRefresh("remote_error")
		return "", fmt.Errorf("%w: %w", ErrRemote, err)
	}
	link, ok := st.LargestPicture()
	if !ok {
		metrics.IncPictureRefresh("remote_error")
		return "", ErrRemote
	}

	row.PictureURL = link
	if err := r.store.Update(ctx, *row); err != nil {
		return "", fmt.Errorf("thumbnail: update: %w", err)
	}
	metrics.IncPictureRefresh("updated")
	logger.Info().Str(log.FieldURL, link).Msg("picture refreshed")
	return link, nil
}
