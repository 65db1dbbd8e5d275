package domain

import "time"

// Achievement is a badge the server has awarded to the signed-in user. Type
// is the stable identifier (FIRST_PURCHASE, COLLECTOR_5, ...).
type Achievement struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	UnlockedAt  time.Time `json:"unlocked_at,omitzero"`
}
