package domain

// SavedBook is a denormalized snapshot of a catalog entry kept by a user.
// Entries are immutable once saved and deduplicated per user by BookID.
type SavedBook struct {
	BookID      string
	Title       string
	Authors     []string
	Description string
	Image       string
	Link        string
}
