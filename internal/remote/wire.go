package remote

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/utafrali/GameStoreGo/internal/domain"
)

// wireTime accepts RFC 3339 timestamps and the backend's zone-less local
// date-times, which are read as UTC.
type wireTime time.Time

var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (t *wireTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*t = wireTime{}
		return nil
	}
	if v, err := time.Parse(time.RFC3339Nano, s); err == nil {
		*t = wireTime(v)
		return nil
	}
	for _, layout := range localLayouts {
		if v, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			*t = wireTime(v)
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}

func (t wireTime) Time() time.Time { return time.Time(t) }

// wireID accepts numeric ids sent either as numbers or as strings.
type wireID int64

func (id *wireID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid game id %q", s)
	}
	*id = wireID(v)
	return nil
}

// wireString accepts identifiers sent either as strings or as numbers.
type wireString string

func (w *wireString) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		*w = ""
		return nil
	}
	*w = wireString(strings.Trim(s, `"`))
	return nil
}

// cartEntry covers both cart shapes the backend has produced: a nested game
// object, or denormalised gameId/gameTitle fields.
type cartEntry struct {
	Game *struct {
		GameID   wireID   `json:"gameId"`
		ID       wireID   `json:"id"`
		Title    string   `json:"title"`
		ImageURL string   `json:"imageUrl"`
		Price    *float64 `json:"price"`
	} `json:"game"`
	GameID       wireID   `json:"gameId"`
	GameTitle    string   `json:"gameTitle"`
	GameImageURL string   `json:"gameImageUrl"`
	Price        *float64 `json:"price"`
	AddedAt      wireTime `json:"addedAt"`
}

func (e cartEntry) item() domain.Item {
	it := domain.Item{
		GameID:   int64(e.GameID),
		Title:    e.GameTitle,
		ImageURL: e.GameImageURL,
		Price:    e.Price,
		AddedAt:  e.AddedAt.Time(),
	}
	if g := e.Game; g != nil {
		if it.GameID == 0 {
			it.GameID = int64(g.GameID)
		}
		if it.GameID == 0 {
			it.GameID = int64(g.ID)
		}
		if it.Title == "" {
			it.Title = g.Title
		}
		if it.ImageURL == "" {
			it.ImageURL = g.ImageURL
		}
		if it.Price == nil {
			it.Price = g.Price
		}
	}
	return it
}

type wishlistEntry struct {
	GameID       wireID   `json:"gameId"`
	GameTitle    string   `json:"gameTitle"`
	GameImageURL string   `json:"gameImageUrl"`
	AddedAt      wireTime `json:"addedAt"`
}

func (e wishlistEntry) item() domain.Item {
	return domain.Item{
		GameID:   int64(e.GameID),
		Title:    e.GameTitle,
		ImageURL: e.GameImageURL,
		AddedAt:  e.AddedAt.Time(),
	}
}

type libraryEntry struct {
	GameID       wireID   `json:"gameId"`
	GameTitle    string   `json:"gameTitle"`
	GameImageURL string   `json:"gameImageUrl"`
	PricePaid    *float64 `json:"pricePaid"`
	PurchasedAt  wireTime `json:"purchasedAt"`
}

func (e libraryEntry) item() domain.Item {
	return domain.Item{
		GameID:   int64(e.GameID),
		Title:    e.GameTitle,
		ImageURL: e.GameImageURL,
		Price:    e.PricePaid,
		AddedAt:  e.PurchasedAt.Time(),
	}
}

// addPayload is the denormalised game snapshot sent with cart and wishlist
// adds so the backend can store display fields without a catalog lookup.
type addPayload struct {
	Title       string   `json:"title"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Description string   `json:"description,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	Genre       string   `json:"genre,omitempty"`
	Developer   string   `json:"developer,omitempty"`
	Platform    string   `json:"platform,omitempty"`
	ReleaseDate string   `json:"releaseDate,omitempty"`
}

func payloadFor(g *domain.Game) addPayload {
	return addPayload{
		Title:       g.Title,
		ImageURL:    g.ImageURL,
		Price:       g.Price,
		Description: g.Description,
		Rating:      g.Rating,
		Genre:       g.Genre,
		Developer:   g.Developer,
		Platform:    g.Platform,
		ReleaseDate: g.ReleaseDate,
	}
}

type orderWire struct {
	ID          wireString `json:"id"`
	Status      string     `json:"status"`
	TotalAmount float64    `json:"totalAmount"`
	CreatedAt   wireTime   `json:"createdAt"`
	OrderItems  []struct {
		GameID    wireID  `json:"gameId"`
		GameTitle string  `json:"gameTitle"`
		Price     float64 `json:"price"`
	} `json:"orderItems"`
}

func (o orderWire) order() domain.Order {
	out := domain.Order{
		ID:          string(o.ID),
		Status:      o.Status,
		TotalAmount: o.TotalAmount,
		CreatedAt:   o.CreatedAt.Time(),
		Items:       make([]domain.OrderLine, 0, len(o.OrderItems)),
	}
	for _, li := range o.OrderItems {
		out.Items = append(out.Items, domain.OrderLine{
			GameID: int64(li.GameID),
			Title:  li.GameTitle,
			Price:  li.Price,
		})
	}
	return out
}

func mapItems[T interface{ item() domain.Item }](entries []T) []domain.Item {
	out := make([]domain.Item, 0, len(entries))
	for _, e := range entries {
		it := e.item()
		if it.GameID <= 0 {
			continue
		}
		out = append(out, it)
	}
	return out
}
