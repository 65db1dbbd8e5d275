package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/GameStoreGo/internal/domain"
	apperrors "github.com/utafrali/GameStoreGo/pkg/errors"
)

func TestSnapshotStore_RoundTripIsolatesCopies(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshotStore()

	items := []domain.Item{{GameID: 1, Title: "Hades"}, {GameID: 2, Title: "Celeste"}}
	require.NoError(t, s.Save(ctx, domain.KindCart, items))
	items[0].Title = "mutated"

	got, err := s.Load(ctx, domain.KindCart)
	require.NoError(t, err)
	assert.Equal(t, "Hades", got[0].Title)

	got[1].Title = "also mutated"
	again, _ := s.Load(ctx, domain.KindCart)
	assert.Equal(t, "Celeste", again[1].Title)
}

func TestSnapshotStore_MissingAndDelete(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshotStore()

	_, err := s.Load(ctx, domain.KindWishlist)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	require.NoError(t, s.Save(ctx, domain.KindWishlist, nil))
	got, err := s.Load(ctx, domain.KindWishlist)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.Delete(ctx, domain.KindWishlist))
	require.NoError(t, s.Delete(ctx, domain.KindWishlist))
	_, err = s.Load(ctx, domain.KindWishlist)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
