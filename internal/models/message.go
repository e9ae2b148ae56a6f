package models

import "time"

// Message is a short note from one user to another. ReadAt stays nil until the
// recipient marks it read and is never changed afterwards.
type Message struct {
	ID           string     `json:"id"`
	FromUsername string     `json:"from_username"`
	ToUsername   string     `json:"to_username"`
	Body         string     `json:"body"`
	SentAt       time.Time  `json:"sent_at"`
	ReadAt       *time.Time `json:"read_at,omitempty"`
}

func (m Message) Sender() string    { return m.FromUsername }
func (m Message) Recipient() string { return m.ToUsername }

// IsRead reports whether the message reached its terminal state.
func (m Message) IsRead() bool { return m.ReadAt != nil }

// MessageDetail is a message joined with the directory entries of its parties.
// Listing endpoints fill only the counterpart of the listed user.
type MessageDetail struct {
	ID       string       `json:"id"`
	Body     string       `json:"body"`
	SentAt   time.Time    `json:"sent_at"`
	ReadAt   *time.Time   `json:"read_at"`
	FromUser *UserSummary `json:"from_user,omitempty"`
	ToUser   *UserSummary `json:"to_user,omitempty"`
}

func (m MessageDetail) Sender() string {
	if m.FromUser == nil {
		return ""
	}
	return m.FromUser.Username
}

func (m MessageDetail) Recipient() string {
	if m.ToUser == nil {
		return ""
	}
	return m.ToUser.Username
}
