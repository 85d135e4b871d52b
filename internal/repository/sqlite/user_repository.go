package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"book-keeper/internal/domain"
	"book-keeper/internal/repository"
)

const createUsersSchema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS saved_books (
	position INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	book_id TEXT NOT NULL,
	title TEXT NOT NULL,
	authors TEXT NOT NULL DEFAULT '[]',
	description TEXT NOT NULL DEFAULT '',
	image TEXT NOT NULL DEFAULT '',
	link TEXT NOT NULL DEFAULT '',
	UNIQUE (user_id, book_id)
);
`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersSchema); err != nil {
		return fmt.Errorf("create users schema: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return fmt.Errorf("%w: %s", repository.ErrDuplicate, user.Username)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, username, email, password_hash, created_at, updated_at
FROM users
WHERE id = ?`,
		id,
	)
	return r.scanUser(ctx, row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, username, email, password_hash, created_at, updated_at
FROM users
WHERE email = ?`,
		email,
	)
	return r.scanUser(ctx, row)
}

// AddSavedBook is a single-statement insert-if-absent keyed by
// (user_id, book_id); a concurrent duplicate save hits the conflict
// clause instead of producing a second row.
func (r *UserRepository) AddSavedBook(ctx context.Context, userID string, book domain.SavedBook) (*domain.User, error) {
	authors, err := json.Marshal(book.Authors)
	if err != nil {
		return nil, fmt.Errorf("encode authors: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO saved_books (user_id, book_id, title, authors, description, image, link)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, book_id) DO NOTHING`,
		userID,
		book.BookID,
		book.Title,
		string(authors),
		book.Description,
		book.Image,
		book.Link,
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "foreign key") {
			return nil, fmt.Errorf("%w: %s", repository.ErrNotFound, userID)
		}
		return nil, fmt.Errorf("insert saved book: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		if err := r.touchUser(ctx, userID); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, userID)
}

func (r *UserRepository) RemoveSavedBook(ctx context.Context, userID, bookID string) (*domain.User, error) {
	res, err := r.db.ExecContext(ctx, `
DELETE FROM saved_books
WHERE user_id = ? AND book_id = ?`,
		userID,
		bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("delete saved book: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		if err := r.touchUser(ctx, userID); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, userID)
}

func (r *UserRepository) touchUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `
UPDATE users SET updated_at = ? WHERE id = ?`,
		time.Now().UTC(),
		userID,
	); err != nil {
		return fmt.Errorf("touch user: %w", err)
	}
	return nil
}

func (r *UserRepository) scanUser(ctx context.Context, row *sql.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	books, err := r.savedBooks(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.SavedBooks = books
	return &user, nil
}

func (r *UserRepository) savedBooks(ctx context.Context, userID string) ([]domain.SavedBook, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT book_id, title, authors, description, image, link
FROM saved_books
WHERE user_id = ?
ORDER BY position`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query saved books: %w", err)
	}
	defer rows.Close()

	books := make([]domain.SavedBook, 0)
	for rows.Next() {
		var book domain.SavedBook
		var authors string
		if err := rows.Scan(
			&book.BookID,
			&book.Title,
			&authors,
			&book.Description,
			&book.Image,
			&book.Link,
		); err != nil {
			return nil, fmt.Errorf("scan saved book: %w", err)
		}
		if err := json.Unmarshal([]byte(authors), &book.Authors); err != nil {
			return nil, fmt.Errorf("decode authors: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saved books: %w", err)
	}
	return books, nil
}
