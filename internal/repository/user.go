package repository

import (
	"context"
	"errors"

	"book-keeper/internal/domain"
)

var (
	// ErrNotFound is returned when the referenced user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate is returned when a username or email is already taken.
	ErrDuplicate = errors.New("user already exists")
)

// UserRepository defines persistence operations for User documents.
// AddSavedBook and RemoveSavedBook are atomic with respect to
// concurrent mutations of the same user's saved-book list.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// AddSavedBook inserts the book unless an entry with the same
	// BookID already exists, and returns the resulting user state.
	AddSavedBook(ctx context.Context, userID string, book domain.SavedBook) (*domain.User, error)
	// RemoveSavedBook deletes the entry with the given BookID; removing
	// an absent book is a no-op, not an error.
	RemoveSavedBook(ctx context.Context, userID, bookID string) (*domain.User, error)
}
