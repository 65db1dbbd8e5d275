package domain

import "time"

// Order is a completed checkout as reported by the backend.
type Order struct {
	ID          string      `json:"id"`
	Status      string      `json:"status"`
	TotalAmount float64     `json:"total_amount"`
	Items       []OrderLine `json:"items"`
	CreatedAt   time.Time   `json:"created_at"`
}

// OrderLine is one purchased game within an order.
type OrderLine struct {
	GameID int64   `json:"game_id"`
	Title  string  `json:"title"`
	Price  float64 `json:"price"`
}

// Affordances describes which actions the UI may offer for a catalog game.
// Owning a game suppresses add-to-cart.
type Affordances struct {
	GameID       int64 `json:"game_id"`
	InCart       bool  `json:"in_cart"`
	InWishlist   bool  `json:"in_wishlist"`
	Owned        bool  `json:"owned"`
	CanAddToCart bool  `json:"can_add_to_cart"`
}
