package models

import "time"

// ActivityEntry represents a single user mutation recorded for the activity feed
type ActivityEntry struct {
	ID        string    `json:"id" db:"id"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	Action    string    `json:"action" db:"action"`
	Method    string    `json:"method" db:"method"`
	Path      string    `json:"path" db:"path"`
	Details   string    `json:"details" db:"details"`
	IPAddress string    `json:"ip_address" db:"ip_address"`
	UserAgent string    `json:"user_agent" db:"user_agent"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// User is an account owner; every tenant record hangs off a user ID
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
