package session

import "time"

// Session is the persisted history of one collaborative document. Versions is
// append-only; insertion order is chronological order.
type Session struct {
	ID        string    `json:"id"`
	Owner     *string   `json:"owner,omitempty"`
	Versions  []string  `json:"versions"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
