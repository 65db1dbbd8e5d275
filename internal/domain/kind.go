package domain

import (
	"fmt"

	apperrors "github.com/utafrali/GameStoreGo/pkg/errors"
)

// Kind names one of the server-owned collections mirrored by the storefront.
type Kind string

const (
	KindCart     Kind = "cart"
	KindWishlist Kind = "wishlist"
	KindLibrary  Kind = "library"
)

// Kinds returns every collection kind in display order.
func Kinds() []Kind {
	return []Kind{KindCart, KindWishlist, KindLibrary}
}

// ParseKind validates a kind name taken from user input.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindCart, KindWishlist, KindLibrary:
		return k, nil
	default:
		return "", apperrors.InvalidInput(fmt.Sprintf("unknown collection %q", s))
	}
}

func (k Kind) String() string { return string(k) }
