package testutil

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/ManuGH/vidsync/internal/catalog"
	"github.com/ManuGH/vidsync/internal/video"
)

// ErrCatalog is returned by a Catalog switched to failing mode.
var ErrCatalog = errors.New("catalog down")

// Catalog wraps the in-memory catalog with switchable failures.
type Catalog struct {
	*catalog.Memory
	FailPropagate atomic.Bool
	FailAssociate atomic.Bool
}

// NewCatalog returns a healthy catalog.
func NewCatalog() *Catalog {
	return &Catalog{Memory: catalog.NewMemory()}
}

func (c *Catalog) PropagateStatus(ctx context.Context, assetID string, status video.Status) error {
	if c.FailPropagate.Load() {
		return ErrCatalog
	}
	return c.Memory.PropagateStatus(ctx, assetID, status)
}

func (c *Catalog) AssociateContext(ctx context.Context, assetID, contextID string) error {
	if c.FailAssociate.Load() {
		return ErrCatalog
	}
	return c.Memory.AssociateContext(ctx, assetID, contextID)
}
