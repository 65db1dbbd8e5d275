package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/utafrali/GameStoreGo/internal/collection"
	"github.com/utafrali/GameStoreGo/internal/domain"
	"github.com/utafrali/GameStoreGo/internal/identity"
	apperrors "github.com/utafrali/GameStoreGo/pkg/errors"
)

// Identity is the session the storefront signs in and out of.
type Identity interface {
	IsAuthenticated() bool
	SignIn(token string) (identity.User, error)
	SignOut() error
	User() (identity.User, bool)
}

// OrderPlacer places and lists orders on the backend.
type OrderPlacer interface {
	Checkout(ctx context.Context) (*domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
}

// Options tunes the storefront service.
type Options struct {
	// MigrateGuestOnSignIn re-adds guest cart and wishlist items to the
	// account on sign-in instead of letting the server's lists win.
	MigrateGuestOnSignIn bool
}

// SessionState summarises who is signed in.
type SessionState struct {
	Authenticated bool           `json:"authenticated"`
	User          *identity.User `json:"user,omitempty"`
}

// StorefrontService coordinates the mirrors with the session and the
// order endpoints.
type StorefrontService struct {
	caches   *collection.Set
	identity Identity
	orders   OrderPlacer
	logger   *slog.Logger
	opts     Options
}

// NewStorefrontService creates a new storefront service.
func NewStorefrontService(caches *collection.Set, id Identity, orders OrderPlacer, logger *slog.Logger, opts Options) *StorefrontService {
	return &StorefrontService{
		caches:   caches,
		identity: id,
		orders:   orders,
		logger:   logger,
		opts:     opts,
	}
}

// Collection returns the mirror named by kind.
func (s *StorefrontService) Collection(kind string) (*collection.Cache, error) {
	k, err := domain.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	return s.caches.Get(k), nil
}

// Restore loads every persisted mirror. Failures are logged and leave the
// affected mirror empty.
func (s *StorefrontService) Restore(ctx context.Context) {
	for _, c := range s.caches.All() {
		if err := c.Restore(ctx); err != nil {
			s.logger.WarnContext(ctx, "snapshot restore failed",
				slog.String("kind", c.Kind().String()),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Session reports the current sign-in.
func (s *StorefrontService) Session() SessionState {
	u, ok := s.identity.User()
	if !ok {
		return SessionState{}
	}
	return SessionState{Authenticated: true, User: &u}
}

// SignIn adopts token and resynchronises every mirror from the server. Guest
// items are discarded unless guest migration is enabled. Refresh failures are
// logged; the sign-in itself still succeeds.
func (s *StorefrontService) SignIn(ctx context.Context, token string) (*identity.User, error) {
	var guestCart, guestWishlist []domain.Item
	if s.opts.MigrateGuestOnSignIn && !s.identity.IsAuthenticated() {
		guestCart = s.caches.Cart.Items()
		guestWishlist = s.caches.Wishlist.Items()
	}

	user, err := s.identity.SignIn(token)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "signed in",
		slog.String("user_id", user.ID),
		slog.Int("guest_cart_items", len(guestCart)),
		slog.Int("guest_wishlist_items", len(guestWishlist)),
	)

	if len(guestCart) > 0 || len(guestWishlist) > 0 {
		s.migrate(ctx, s.caches.Cart, guestCart)
		s.migrate(ctx, s.caches.Wishlist, guestWishlist)
		s.logRefresh(ctx, s.caches.Library.Refresh(ctx))
		s.logRefresh(ctx, s.caches.Achievements.Refresh(ctx))
		return &user, nil
	}

	s.logRefresh(ctx, s.RefreshAll(ctx))
	return &user, nil
}

func (s *StorefrontService) migrate(ctx context.Context, c *collection.Cache, items []domain.Item) {
	if len(items) == 0 {
		s.logRefresh(ctx, c.Refresh(ctx))
		return
	}
	if err := c.Migrate(ctx, items); err != nil {
		s.logger.WarnContext(ctx, "guest items not fully migrated",
			slog.String("kind", c.Kind().String()),
			slog.String("error", err.Error()),
		)
	}
}

// SignOut drops the session and wipes every mirror locally.
func (s *StorefrontService) SignOut(ctx context.Context) error {
	errs := []error{s.identity.SignOut()}
	for _, c := range s.caches.All() {
		errs = append(errs, c.Reset(ctx))
	}
	s.caches.Achievements.Reset()
	if err := errors.Join(errs...); err != nil {
		s.logger.WarnContext(ctx, "sign-out incomplete", slog.String("error", err.Error()))
		return fmt.Errorf("sign out: %w", err)
	}
	s.logger.InfoContext(ctx, "signed out")
	return nil
}

// RefreshAll refreshes every mirror concurrently and joins their errors.
func (s *StorefrontService) RefreshAll(ctx context.Context) error {
	caches := s.caches.All()
	errs := make([]error, len(caches)+1)

	var g errgroup.Group
	for i, c := range caches {
		g.Go(func() error {
			errs[i] = c.Refresh(ctx)
			return nil
		})
	}
	g.Go(func() error {
		errs[len(caches)] = s.caches.Achievements.Refresh(ctx)
		return nil
	})
	_ = g.Wait()
	return errors.Join(errs...)
}

// Checkout turns the cart into an order. The cart mirror is cleared and the
// library and achievements refreshed so newly owned games and any badges the
// purchase earned show up.
func (s *StorefrontService) Checkout(ctx context.Context) (*domain.Order, error) {
	if !s.identity.IsAuthenticated() {
		return nil, apperrors.Unauthorized("sign in to check out")
	}
	if s.caches.Cart.Count() == 0 {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	order, err := s.orders.Checkout(ctx)
	if err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}

	if err := s.caches.Cart.Clear(ctx); err != nil {
		s.logger.WarnContext(ctx, "cart clear after checkout failed", slog.String("error", err.Error()))
	}
	s.logRefresh(ctx, s.caches.Cart.Refresh(ctx))
	s.logRefresh(ctx, s.caches.Library.Refresh(ctx))
	s.logRefresh(ctx, s.caches.Achievements.Refresh(ctx))

	s.logger.InfoContext(ctx, "checkout completed",
		slog.String("order_id", order.ID),
		slog.Int("item_count", len(order.Items)),
	)
	return order, nil
}

// Achievements returns the achievements mirror.
func (s *StorefrontService) Achievements() *collection.Achievements {
	return s.caches.Achievements
}

// CheckAchievements asks the server to award newly earned achievements and
// returns them. The mirror is refetched either way.
func (s *StorefrontService) CheckAchievements(ctx context.Context) ([]domain.Achievement, error) {
	unlocked, err := s.caches.Achievements.Check(ctx)
	if err != nil {
		return nil, err
	}
	if len(unlocked) > 0 {
		s.logger.InfoContext(ctx, "new achievements unlocked", slog.Int("count", len(unlocked)))
	}
	return unlocked, nil
}

// Orders returns the signed-in user's order history.
func (s *StorefrontService) Orders(ctx context.Context) ([]domain.Order, error) {
	if !s.identity.IsAuthenticated() {
		return nil, apperrors.Unauthorized("sign in to view orders")
	}
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// Affordances reports what the UI may offer for game id. Owned games cannot
// be added to the cart.
func (s *StorefrontService) Affordances(id int64) (*domain.Affordances, error) {
	if id <= 0 {
		return nil, apperrors.InvalidInput("game id must be a positive integer")
	}
	a := &domain.Affordances{
		GameID:     id,
		InCart:     s.caches.Cart.IsMember(id),
		InWishlist: s.caches.Wishlist.IsMember(id),
		Owned:      s.caches.Library.IsMember(id),
	}
	a.CanAddToCart = !a.Owned && !a.InCart
	return a, nil
}

func (s *StorefrontService) logRefresh(ctx context.Context, err error) {
	if err != nil {
		s.logger.WarnContext(ctx, "background refresh failed", slog.String("error", err.Error()))
	}
}
