package models

import "time"

// User captures application-facing fields for an authenticated identity.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Role         Role       `json:"role"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
}

// LastActivity is the most recent login, falling back to account creation.
func (u User) LastActivity() time.Time {
	if u.LastLogin != nil {
		return *u.LastLogin
	}
	return u.CreatedAt
}
