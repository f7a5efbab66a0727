package models

import "time"

// Book change actions pushed to feed subscribers.
const (
	EventBookCreated = "book.created"
	EventBookUpdated = "book.updated"
	EventBookDeleted = "book.deleted"
)

// Event describes a change to a book, as broadcast on the live feed.
type Event struct {
	Type      string    `json:"type"`
	BookID    string    `json:"bookId"`
	Fields    Document  `json:"fields,omitempty"` // created document or the applied field set
	Actor     string    `json:"actor,omitempty"`  // email of the authenticated caller
	CreatedAt time.Time `json:"createdAt"`
}
