package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/vidsync/internal/persistence/sqlite"
	"github.com/ManuGH/vidsync/internal/storage"
	"github.com/ManuGH/vidsync/internal/store"
	"github.com/ManuGH/vidsync/internal/video"
)

// NewStore opens a migrated SQLite store in a temp dir and closes it on cleanup.
func NewStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "vidsync.db"), sqlite.DefaultConfig())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// Seed writes records or fails the test.
func Seed(t *testing.T, s store.Store, videos ...video.TrackedVideo) {
	t.Helper()
	for _, v := range videos {
		if err := s.Upsert(context.Background(), v); err != nil {
			t.Fatalf("seed %s: %v", v.Key(), err)
		}
	}
}

// MustGet loads a record or fails the test.
func MustGet(t *testing.T, s store.Store, assetID, contextID string) *video.TrackedVideo {
	t.Helper()
	v, err := s.Get(context.Background(), video.Key{AssetID: assetID, ContextID: contextID})
	if err != nil {
		t.Fatalf("get %s/%s: %v", contextID, assetID, err)
	}
	return v
}

// FakeSource is an in-memory storage.Source.
type FakeSource struct {
	mu      sync.Mutex
	Objects map[string]int64
	BaseURL string
	Err     error
}

// NewFakeSource returns a source holding the given asset sizes.
func NewFakeSource(objects map[string]int64) *FakeSource {
	if objects == nil {
		objects = map[string]int64{}
	}
	return &FakeSource{Objects: objects, BaseURL: "https://bucket.test"}
}

func (f *FakeSource) Stat(_ context.Context, assetID string) (storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return storage.Object{}, f.Err
	}
	size, ok := f.Objects[assetID]
	if !ok {
		return storage.Object{}, storage.ErrObjectNotFound
	}
	return storage.Object{Key: assetID, Size: size}, nil
}

func (f *FakeSource) PresignGet(_ context.Context, assetID string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	if _, ok := f.Objects[assetID]; !ok {
		return "", storage.ErrObjectNotFound
	}
	return f.BaseURL + "/" + assetID + "?ttl=" + ttl.String(), nil
}
