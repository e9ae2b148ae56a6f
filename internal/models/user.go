package models

import "time"

// User represents a registered principal. Username is the immutable identity.
type User struct {
	Username            string     `json:"username"`
	PasswordHash        string     `json:"-"` // Never expose this to the client
	FirstName           string     `json:"first_name"`
	LastName            string     `json:"last_name"`
	Phone               string     `json:"phone"`
	JoinedAt            time.Time  `json:"join_at"`
	LastAuthenticatedAt *time.Time `json:"last_login_at"`
}

// UserSummary is the public directory view of a user.
type UserSummary struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// Summary strips the user down to its directory fields.
func (u User) Summary() UserSummary {
	return UserSummary{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
	}
}
