package repository

import (
	"context"

	"github.com/utafrali/GameStoreGo/internal/domain"
)

// SnapshotStore persists the last-known mirror of each collection so a
// restart can show it before the authoritative refetch completes.
type SnapshotStore interface {
	// Load returns the stored items for kind, or an ErrNotFound AppError
	// when nothing has been saved.
	Load(ctx context.Context, kind domain.Kind) ([]domain.Item, error)
	// Save replaces the stored items for kind.
	Save(ctx context.Context, kind domain.Kind, items []domain.Item) error
	// Delete drops the stored items for kind. Deleting a missing snapshot is
	// not an error.
	Delete(ctx context.Context, kind domain.Kind) error
}
