package models

import "time"

// Event is an entry in the authentication audit log.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`  // e.g., "auth.login", "message.read"
	Level     string    `json:"level"` // e.g., "info", "warn"
	Username  *string   `json:"username,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
