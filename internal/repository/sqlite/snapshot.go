package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/utafrali/GameStoreGo/internal/domain"
	apperrors "github.com/utafrali/GameStoreGo/pkg/errors"
	"github.com/utafrali/GameStoreGo/pkg/database"
)

const schema = `CREATE TABLE IF NOT EXISTS mirror_snapshots (
	kind       TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SnapshotStore implements repository.SnapshotStore on a local SQLite file.
type SnapshotStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens the database at path and ensures the schema exists.
func Open(ctx context.Context, path string) (*SnapshotStore, error) {
	db, err := database.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	store, err := New(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an already opened database and ensures the schema exists.
func New(ctx context.Context, db *sql.DB) (*SnapshotStore, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create mirror_snapshots: %w", err)
	}
	return &SnapshotStore{db: db, now: time.Now}, nil
}

// DB exposes the handle for readiness checks.
func (s *SnapshotStore) DB() *sql.DB { return s.db }

// Close releases the underlying database.
func (s *SnapshotStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load returns the stored items for kind.
func (s *SnapshotStore) Load(ctx context.Context, kind domain.Kind) ([]domain.Item, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM mirror_snapshots WHERE kind = ?`, string(kind),
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("snapshot", string(kind))
		}
		return nil, fmt.Errorf("select snapshot: %w", err)
	}

	var items []domain.Item
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return items, nil
}

// Save upserts the snapshot for kind.
func (s *SnapshotStore) Save(ctx context.Context, kind domain.Kind, items []domain.Item) error {
	if items == nil {
		items = []domain.Item{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO mirror_snapshots (kind, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(kind) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		string(kind), string(payload), s.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// Delete removes the snapshot for kind.
func (s *SnapshotStore) Delete(ctx context.Context, kind domain.Kind) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM mirror_snapshots WHERE kind = ?`, string(kind)); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// UpdatedAt reports when kind was last saved.
func (s *SnapshotStore) UpdatedAt(ctx context.Context, kind domain.Kind) (time.Time, error) {
	var ms int64
	err := s.db.QueryRowContext(ctx,
		`SELECT updated_at FROM mirror_snapshots WHERE kind = ?`, string(kind),
	).Scan(&ms)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, apperrors.NotFound("snapshot", string(kind))
		}
		return time.Time{}, fmt.Errorf("select snapshot time: %w", err)
	}
	return time.UnixMilli(ms).UTC(), nil
}
