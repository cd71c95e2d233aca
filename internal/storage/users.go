package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bilancio/internal/core"
)

var (
	// ErrNotFound is returned when a row does not exist or does not
	// belong to the requesting user.
	ErrNotFound = errors.New("not found")

	// ErrEmailTaken is returned when a signup collides with an existing
	// account.
	ErrEmailTaken = errors.New("email already registered")
)

// isUniqueViolation detects SQLite unique constraint failures. The modernc
// driver exposes them only through the error text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *Repository) CreateUser(ctx context.Context, email, hashedPassword string) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, hashed_password) VALUES (?, ?)`,
		email, hashedPassword)
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, ErrEmailTaken
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("user id: %w", err)
	}

	slog.InfoContext(ctx, "User created", "user_id", id)

	return core.User{
		ID:             id,
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	var u core.User
	var createdAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, hashed_password, created_at FROM users WHERE email = ?`,
		email).Scan(&u.ID, &u.Email, &u.HashedPassword, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}
	u.CreatedAt = parseDBTime(createdAt)
	return u, nil
}

func (r *Repository) GetUser(ctx context.Context, id int64) (core.User, error) {
	var u core.User
	var createdAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, hashed_password, created_at FROM users WHERE id = ?`,
		id).Scan(&u.ID, &u.Email, &u.HashedPassword, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = parseDBTime(createdAt)
	return u, nil
}

// parseDBTime handles both the CURRENT_TIMESTAMP format SQLite writes and
// the RFC3339 strings we write ourselves.
func parseDBTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05Z07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
