package domain

import (
	"encoding/json"
	"strconv"
	"strings"

	apperrors "github.com/utafrali/GameStoreGo/pkg/errors"
)

// Game is the catalog descriptor the UI shell hands to a mutation. Only ID is
// required; the display fields are carried when known. Catalog
// payloads name fields inconsistently; UnmarshalJSON maps the known aliases
// (name, background_image, released) onto the canonical fields.
type Game struct {
	ID          int64    `json:"id" validate:"gt=0"`
	Title       string   `json:"title" validate:"omitempty,max=255"`
	ImageURL    string   `json:"image_url,omitempty" validate:"omitempty,url"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	Description string   `json:"description,omitempty"`
	Rating      float64  `json:"rating,omitempty" validate:"gte=0,lte=5"`
	Genre       string   `json:"genre,omitempty"`
	Developer   string   `json:"developer,omitempty"`
	Platform    string   `json:"platform,omitempty"`
	ReleaseDate string   `json:"release_date,omitempty"`
}

// Validate reports InvalidInput for a nil descriptor or a missing id.
func (g *Game) Validate() error {
	if g == nil {
		return apperrors.InvalidInput("game is required")
	}
	if g.ID <= 0 {
		return apperrors.InvalidInput("game id must be a positive integer")
	}
	return nil
}

// UnmarshalJSON accepts the canonical shape plus catalog aliases. A numeric
// string id is accepted too.
func (g *Game) UnmarshalJSON(data []byte) error {
	type canonical Game
	var raw struct {
		canonical
		ID              json.RawMessage `json:"id"`
		Name            string          `json:"name"`
		ImageURLCamel   string          `json:"imageUrl"`
		BackgroundImage string          `json:"background_image"`
		Released        string          `json:"released"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*g = Game(raw.canonical)
	id, err := parseID(raw.ID)
	if err != nil {
		return apperrors.InvalidInput("game id must be an integer")
	}
	g.ID = id

	if g.Title == "" {
		g.Title = raw.Name
	}
	if g.ImageURL == "" {
		g.ImageURL = firstNonEmpty(raw.ImageURLCamel, raw.BackgroundImage)
	}
	if g.ReleaseDate == "" {
		g.ReleaseDate = raw.Released
	}
	return nil
}

func parseID(raw json.RawMessage) (int64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, nil
	}
	s = strings.Trim(s, `"`)
	return strconv.ParseInt(s, 10, 64)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
