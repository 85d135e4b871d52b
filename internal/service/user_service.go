package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"book-keeper/internal/auth"
	"book-keeper/internal/domain"
	"book-keeper/internal/repository"
)

var (
	// ErrInvalidCredentials indicates a failed login. Unknown email and
	// wrong password intentionally produce the same error.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserAlreadyExists is returned when registering with a taken username or email.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrValidation wraps all malformed-input failures.
	ErrValidation = errors.New("validation error")
)

var emailPattern = regexp.MustCompile(`^.+@.+\..+$`)

// AuthResult pairs a freshly minted session token with its user.
type AuthResult struct {
	Token string
	User  *domain.User
}

// UserService describes account lifecycle and saved-book operations.
type UserService interface {
	Register(ctx context.Context, username, email, password string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	SaveBook(ctx context.Context, userID string, book domain.SavedBook) (*domain.User, error)
	RemoveBook(ctx context.Context, userID, bookID string) (*domain.User, error)
}

type userService struct {
	users  repository.UserRepository
	tokens *auth.TokenIssuer
}

func NewUserService(users repository.UserRepository, tokens *auth.TokenIssuer) UserService {
	return &userService{
		users:  users,
		tokens: tokens,
	}
}

func (s *userService) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)

	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	}
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !emailPattern.MatchString(email) {
		return nil, fmt.Errorf("%w: email address is malformed", ErrValidation)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrValidation)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		SavedBooks:   []domain.SavedBook{},
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %v", ErrUserAlreadyExists, err)
		}
		return nil, err
	}

	return s.authResult(user)
}

func (s *userService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: empty email or password", ErrInvalidCredentials)
	}

	// The cause stays inside the wrapped error for local logging; the
	// caller only ever sees the bare ErrInvalidCredentials signal.
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: no account for email", ErrInvalidCredentials)
		}
		return nil, err
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, fmt.Errorf("%w: password mismatch", ErrInvalidCredentials)
	}

	return s.authResult(user)
}

func (s *userService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) SaveBook(ctx context.Context, userID string, book domain.SavedBook) (*domain.User, error) {
	book.BookID = strings.TrimSpace(book.BookID)
	book.Title = strings.TrimSpace(book.Title)
	if book.BookID == "" {
		return nil, fmt.Errorf("%w: book id is required", ErrValidation)
	}
	if book.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if book.Authors == nil {
		book.Authors = []string{}
	}

	user, err := s.users.AddSavedBook(ctx, userID, book)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) RemoveBook(ctx context.Context, userID, bookID string) (*domain.User, error) {
	user, err := s.users.RemoveSavedBook(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) authResult(user *domain.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(domain.Identity{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{Token: token, User: sanitizeUser(user)}, nil
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	clean := *user
	clean.PasswordHash = ""
	return &clean
}
