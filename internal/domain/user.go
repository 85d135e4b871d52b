package domain

import "time"

// User represents a registered account together with its saved-book list.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	SavedBooks   []SavedBook
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the subject carried inside a session token.
type Identity struct {
	ID       string
	Username string
	Email    string
}
