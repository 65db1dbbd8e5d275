package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/utafrali/GameStoreGo/internal/domain"
	apperrors "github.com/utafrali/GameStoreGo/pkg/errors"
)

// Cart is the backend cart of the signed-in user.
type Cart struct{ c *Client }

func (r *Cart) List(ctx context.Context) ([]domain.Item, error) {
	var entries []cartEntry
	if err := r.c.call(ctx, "cart.list", http.MethodGet, "/cart", nil, &entries); err != nil {
		return nil, err
	}
	return mapItems(entries), nil
}

func (r *Cart) Add(ctx context.Context, g *domain.Game) error {
	if err := g.Validate(); err != nil {
		return err
	}
	err := r.c.call(ctx, "cart.add", http.MethodPost, "/cart/add/"+id(g.ID), payloadFor(g), nil)
	return asConflict(err)
}

func (r *Cart) Remove(ctx context.Context, gameID int64) error {
	return r.c.call(ctx, "cart.remove", http.MethodDelete, "/cart/remove/"+id(gameID), nil, nil)
}

func (r *Cart) Clear(ctx context.Context) error {
	return r.c.call(ctx, "cart.clear", http.MethodDelete, "/cart/clear", nil, nil)
}

// Wishlist is the backend wishlist of the signed-in user. The backend has no
// bulk clear, so Clear removes entries one by one.
type Wishlist struct{ c *Client }

func (r *Wishlist) List(ctx context.Context) ([]domain.Item, error) {
	var entries []wishlistEntry
	if err := r.c.call(ctx, "wishlist.list", http.MethodGet, "/wishlist", nil, &entries); err != nil {
		return nil, err
	}
	return mapItems(entries), nil
}

func (r *Wishlist) Add(ctx context.Context, g *domain.Game) error {
	if err := g.Validate(); err != nil {
		return err
	}
	err := r.c.call(ctx, "wishlist.add", http.MethodPost, "/wishlist/add/"+id(g.ID), payloadFor(g), nil)
	return asConflict(err)
}

func (r *Wishlist) Remove(ctx context.Context, gameID int64) error {
	return r.c.call(ctx, "wishlist.remove", http.MethodDelete, "/wishlist/remove/"+id(gameID), nil, nil)
}

func (r *Wishlist) Clear(ctx context.Context) error {
	items, err := r.List(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, it := range items {
		if err := r.Remove(ctx, it.GameID); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			errs = append(errs, fmt.Errorf("remove game %d: %w", it.GameID, err))
		}
	}
	if len(errs) > 0 {
		r.c.logger.WarnContext(ctx, "wishlist clear incomplete",
			slog.Int("count", len(items)), slog.Int("failed", len(errs)))
	}
	return errors.Join(errs...)
}

// Library is the set of games the signed-in user owns. Owned games cannot be
// removed.
type Library struct{ c *Client }

func (r *Library) List(ctx context.Context) ([]domain.Item, error) {
	var entries []libraryEntry
	if err := r.c.call(ctx, "library.list", http.MethodGet, "/library/my-games", nil, &entries); err != nil {
		return nil, err
	}
	return mapItems(entries), nil
}

func (r *Library) Add(ctx context.Context, g *domain.Game) error {
	if err := g.Validate(); err != nil {
		return err
	}
	err := r.c.call(ctx, "library.add", http.MethodPost, "/library/add/"+id(g.ID), nil, nil)
	return asConflict(err)
}

// Owns reports whether the signed-in user owns game gameID.
func (r *Library) Owns(ctx context.Context, gameID int64) (bool, error) {
	var owned bool
	if err := r.c.call(ctx, "library.check", http.MethodGet, "/library/check/"+id(gameID), nil, &owned); err != nil {
		return false, err
	}
	return owned, nil
}

// Remove reports NotFound for games the user does not own and Forbidden for
// owned ones, which stay in the library.
func (r *Library) Remove(ctx context.Context, gameID int64) error {
	owned, err := r.Owns(ctx, gameID)
	if err != nil {
		return err
	}
	if !owned {
		return apperrors.NotFound("library game", id(gameID))
	}
	return apperrors.Forbidden("games cannot be removed from the library")
}

// Clear succeeds on an empty library and is Forbidden otherwise.
func (r *Library) Clear(ctx context.Context) error {
	items, err := r.List(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return apperrors.Forbidden("the library cannot be cleared")
}

func id(v int64) string { return strconv.FormatInt(v, 10) }
