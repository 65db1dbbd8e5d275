package memory

import (
	"context"
	"sync"

	"github.com/utafrali/GameStoreGo/internal/domain"
	apperrors "github.com/utafrali/GameStoreGo/pkg/errors"
)

// SnapshotStore keeps snapshots in process memory. Nothing survives a
// restart; it backs SNAPSHOT_DRIVER=memory and tests.
type SnapshotStore struct {
	mu    sync.RWMutex
	items map[domain.Kind][]domain.Item
}

// NewSnapshotStore creates an empty in-memory store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{items: make(map[domain.Kind][]domain.Item)}
}

// Load returns a copy of the stored items for kind.
func (s *SnapshotStore) Load(_ context.Context, kind domain.Kind) ([]domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, ok := s.items[kind]
	if !ok {
		return nil, apperrors.NotFound("snapshot", string(kind))
	}
	return append([]domain.Item(nil), items...), nil
}

// Save stores a copy of items for kind.
func (s *SnapshotStore) Save(_ context.Context, kind domain.Kind, items []domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[kind] = append(make([]domain.Item, 0, len(items)), items...)
	return nil
}

// Delete drops the snapshot for kind.
func (s *SnapshotStore) Delete(_ context.Context, kind domain.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, kind)
	return nil
}
