package catalog

import (
	"context"
	"slices"
	"sync"

	"github.com/ManuGH/vidsync/internal/video"
)

// Memory is an in-process Catalog used when no catalog endpoint is configured
// and in tests.
type Memory struct {
	mu       sync.Mutex
	statuses map[string]video.Status
	contexts map[string][]string
}

// NewMemory returns an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{
		statuses: make(map[string]video.Status),
		contexts: make(map[string][]string),
	}
}

func (m *Memory) PropagateStatus(_ context.Context, assetID string, status video.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[assetID] = status
	return nil
}

func (m *Memory) AssociateContext(_ context.Context, assetID, contextID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.Contains(m.contexts[assetID], contextID) {
		m.contexts[assetID] = append(m.contexts[assetID], contextID)
	}
	return nil
}

func (m *Memory) Contexts(_ context.Context, assetID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.contexts[assetID]), nil
}

// Status returns the last propagated status for assetID.
func (m *Memory) Status(assetID string) (video.Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.statuses[assetID]
	return st, ok
}
