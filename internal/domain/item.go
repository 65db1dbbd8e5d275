package domain

import "time"

// Item is one entry of a mirror. Every kind shares the display fields; Price
// is the list price for cart entries and the price paid for library entries.
// AddedAt is set by the server, or by the local clock in guest mode; for
// library entries it is the purchase time.
type Item struct {
	GameID   int64     `json:"game_id"`
	Title    string    `json:"title"`
	ImageURL string    `json:"image_url,omitempty"`
	Price    *float64  `json:"price,omitempty"`
	AddedAt  time.Time `json:"added_at"`
}

// ItemFromGame builds the guest-mode entry for g.
func ItemFromGame(g *Game, now time.Time) Item {
	return Item{
		GameID:   g.ID,
		Title:    g.Title,
		ImageURL: g.ImageURL,
		Price:    g.Price,
		AddedAt:  now,
	}
}

// Game rebuilds the minimal descriptor needed to re-add a guest item to an
// account.
func (it Item) Game() *Game {
	return &Game{ID: it.GameID, Title: it.Title, ImageURL: it.ImageURL, Price: it.Price}
}

// IndexOf returns the position of id in items, or -1.
func IndexOf(items []Item, id int64) int {
	for i := range items {
		if items[i].GameID == id {
			return i
		}
	}
	return -1
}

// Dedupe drops later entries whose GameID was already seen, keeping order.
func Dedupe(items []Item) []Item {
	seen := make(map[int64]struct{}, len(items))
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.GameID]; ok {
			continue
		}
		seen[it.GameID] = struct{}{}
		out = append(out, it)
	}
	return out
}

// PriceOf is a convenience for building items with a known price.
func PriceOf(v float64) *float64 { return &v }
