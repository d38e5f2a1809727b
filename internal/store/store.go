// Package store persists tracked-video records keyed by (asset, context).
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/vidsync/internal/config"
	"github.com/ManuGH/vidsync/internal/persistence/sqlite"
	"github.com/ManuGH/vidsync/internal/video"
)

var (
	// ErrNotFound is returned when no record matches.
	ErrNotFound = errors.New("store: record not found")
	// ErrConflict is returned by Create when the (asset, context) pair exists.
	ErrConflict = errors.New("store: record already exists")
)

// Filter selects records for List. Empty fields match everything.
type Filter struct {
	ContextID string
	AssetID   string
	Statuses  []video.Status
}

// Store is the persistence abstraction used by the core components.
// Writes are last-writer-wins.
type Store interface {
	Get(ctx context.Context, key video.Key) (*video.TrackedVideo, error)
	GetByToken(ctx context.Context, assetID, token string) (*video.TrackedVideo, error)
	List(ctx context.Context, f Filter) ([]video.TrackedVideo, error)
	Create(ctx context.Context, v video.TrackedVideo) error
	Update(ctx context.Context, v video.TrackedVideo) error
	Upsert(ctx context.Context, v video.TrackedVideo) error
	Ping(ctx context.Context) error
	Close() error
}

// Open selects the backend configured in cfg.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return OpenSQLite(ctx, cfg.Path, sqlite.DefaultConfig())
	case "postgres":
		return OpenPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", cfg.Driver)
	}
}

func statusStrings(in []video.Status) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
