package collection

import "github.com/utafrali/GameStoreGo/internal/domain"

// NewCart builds the cart mirror. Total and TotalCents are meaningful here.
func NewCart(deps Deps, cfg Config) *Cache {
	return New(domain.KindCart, deps, cfg)
}

// NewWishlist builds the wishlist mirror.
func NewWishlist(deps Deps, cfg Config) *Cache {
	return New(domain.KindWishlist, deps, cfg)
}

// NewLibrary builds the library mirror. The server refuses to clear a
// library, so clearing is always strict regardless of cfg.
func NewLibrary(deps Deps, cfg Config) *Cache {
	cfg.ClearPolicy = ClearStrict
	return New(domain.KindLibrary, deps, cfg)
}

// Set groups the mirrors of one storefront session. Achievements is
// read-only and is not part of All.
type Set struct {
	Cart         *Cache
	Wishlist     *Cache
	Library      *Cache
	Achievements *Achievements
}

// Get returns the cache for kind, or nil for an unknown kind.
func (s *Set) Get(kind domain.Kind) *Cache {
	switch kind {
	case domain.KindCart:
		return s.Cart
	case domain.KindWishlist:
		return s.Wishlist
	case domain.KindLibrary:
		return s.Library
	default:
		return nil
	}
}

// All returns the caches in domain.Kinds order.
func (s *Set) All() []*Cache {
	return []*Cache{s.Cart, s.Wishlist, s.Library}
}
