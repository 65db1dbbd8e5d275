package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/GameStoreGo/internal/domain"
	apperrors "github.com/utafrali/GameStoreGo/pkg/errors"
)

// DefaultKeyPrefix namespaces mirror snapshots.
const DefaultKeyPrefix = "storefront:mirror:"

type snapshot struct {
	Kind    domain.Kind   `json:"kind"`
	Items   []domain.Item `json:"items"`
	SavedAt time.Time     `json:"saved_at"`
}

// SnapshotStore implements repository.SnapshotStore using Redis. Each kind is
// one JSON value that expires after ttl; a zero ttl never expires.
type SnapshotStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewSnapshotStore creates a Redis-backed snapshot store. An empty prefix
// uses DefaultKeyPrefix.
func NewSnapshotStore(client redis.UniversalClient, prefix string, ttl time.Duration) *SnapshotStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &SnapshotStore{client: client, prefix: prefix, ttl: ttl, now: time.Now}
}

func (s *SnapshotStore) key(kind domain.Kind) string {
	return s.prefix + string(kind)
}

// Load retrieves the snapshot for kind.
func (s *SnapshotStore) Load(ctx context.Context, kind domain.Kind) ([]domain.Item, error) {
	data, err := s.client.Get(ctx, s.key(kind)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("snapshot", string(kind))
		}
		return nil, fmt.Errorf("redis get snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap.Items, nil
}

// Save writes the snapshot for kind with the configured TTL.
func (s *SnapshotStore) Save(ctx context.Context, kind domain.Kind, items []domain.Item) error {
	if items == nil {
		items = []domain.Item{}
	}
	data, err := json.Marshal(snapshot{Kind: kind, Items: items, SavedAt: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := s.client.Set(ctx, s.key(kind), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set snapshot: %w", err)
	}
	return nil
}

// Delete removes the snapshot for kind.
func (s *SnapshotStore) Delete(ctx context.Context, kind domain.Kind) error {
	if err := s.client.Del(ctx, s.key(kind)).Err(); err != nil {
		return fmt.Errorf("redis del snapshot: %w", err)
	}
	return nil
}
