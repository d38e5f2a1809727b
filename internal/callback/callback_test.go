package callback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/vidsync/internal/testutil"
	"github.com/ManuGH/vidsync/internal/video"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newResolver(t *testing.T, rows ...video.TrackedVideo) (*Resolver, *testutil.FakeSource) {
	t.Helper()
	st := testutil.NewStore(t)
	testutil.Seed(t, st, rows...)
	src := testutil.NewFakeSource(map[string]int64{"a1": 10})
	r := NewResolver(st, src, 0)
	r.now = func() time.Time { return now }
	return r, src
}

func row(status video.Status, expires time.Time) video.TrackedVideo {
	return video.TrackedVideo{
		AssetID:     "a1",
		ContextID:   "c1",
		RemoteID:    "1",
		Status:      status,
		AccessToken: "tok",
		ExpiresAt:   expires,
	}
}

func TestResolveRedirectsWhileValid(t *testing.T) {
	r, _ := newResolver(t, row(video.StatusRemoteUpload, now.Add(time.Minute)))

	link, err := r.Resolve(context.Background(), "a1", "tok")
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.test/a1?ttl=24h0m0s", link)
}

func TestResolveRejects(t *testing.T) {
	tests := []struct {
		name  string
		row   video.TrackedVideo
		asset string
		token string
		want  error
	}{
		{name: "wrong token", row: row(video.StatusRemoteUpload, now.Add(time.Hour)), asset: "a1", token: "nope", want: ErrInvalidToken},
		{name: "empty token", row: row(video.StatusRemoteUpload, now.Add(time.Hour)), asset: "a1", token: "", want: ErrInvalidToken},
		{name: "other asset", row: row(video.StatusRemoteUpload, now.Add(time.Hour)), asset: "a2", token: "tok", want: ErrInvalidToken},
		{name: "expired", row: row(video.StatusRemoteEncoding, now.Add(-time.Second)), asset: "a1", token: "tok", want: ErrTokenExpired},
		{name: "expires exactly now", row: row(video.StatusRemoteEncoding, now), asset: "a1", token: "tok", want: ErrTokenExpired},
		{name: "terminal status", row: row(video.StatusUploadCompleted, now.Add(time.Hour)), asset: "a1", token: "tok", want: ErrNotEligible},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newResolver(t, tt.row)
			link, err := r.Resolve(context.Background(), tt.asset, tt.token)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, link)
		})
	}
}

func TestResolveStorageFailure(t *testing.T) {
	r, src := newResolver(t, row(video.StatusUploadCompletedEncoding, now.Add(time.Hour)))
	src.Err = errors.New("s3 down")

	_, err := r.Resolve(context.Background(), "a1", "tok")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}
