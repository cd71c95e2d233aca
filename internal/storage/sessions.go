package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Session is one signed-in browser session. The CSRF token lives with the
// session so forms can embed it and mutating handlers can check it.
type Session struct {
	Token     string
	UserID    int64
	CSRFToken string
	ExpiresAt time.Time
}

// Flash is a one-time notice queued on a session and drained on the next
// page render.
type Flash struct {
	Kind    string `json:"kind"` // success | error | info | warning
	Message string `json:"message"`
}

func (r *Repository) CreateSession(ctx context.Context, s Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, csrf_token, flashes, expires_at)
		 VALUES (?, ?, ?, '[]', ?)`,
		s.Token, s.UserID, s.CSRFToken, s.ExpiresAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession returns the session for a cookie token. Expired sessions are
// treated as missing; the purge loop removes them later.
func (r *Repository) GetSession(ctx context.Context, token string) (Session, error) {
	var s Session
	var expires string
	err := r.db.QueryRowContext(ctx,
		`SELECT token, user_id, csrf_token, expires_at FROM sessions WHERE token = ?`,
		token).Scan(&s.Token, &s.UserID, &s.CSRFToken, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	s.ExpiresAt, err = time.Parse(time.RFC3339, expires)
	if err != nil {
		return Session{}, fmt.Errorf("parse session expiry %q: %w", expires, err)
	}
	if time.Now().After(s.ExpiresAt) {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (r *Repository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpiredSessions removes sessions past their expiry and returns how
// many were dropped.
func (r *Repository) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge sessions result: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Expired sessions purged", "count", n)
	}
	return n, nil
}

// AppendFlash queues a one-time notice on the session.
func (r *Repository) AppendFlash(ctx context.Context, token string, flash Flash) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT flashes FROM sessions WHERE token = ?`, token).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read flashes: %w", err)
	}

	var flashes []Flash
	if err := json.Unmarshal([]byte(raw), &flashes); err != nil {
		flashes = nil // a corrupt queue is dropped, not fatal
	}
	flashes = append(flashes, flash)
	buf, err := json.Marshal(flashes)
	if err != nil {
		return fmt.Errorf("marshal flashes: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE sessions SET flashes = ? WHERE token = ?`, string(buf), token); err != nil {
		return fmt.Errorf("write flashes: %w", err)
	}
	return tx.Commit()
}

// PopFlashes drains the session's queued notices so each is shown once.
func (r *Repository) PopFlashes(ctx context.Context, token string) ([]Flash, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT flashes FROM sessions WHERE token = ?`, token).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read flashes: %w", err)
	}

	var flashes []Flash
	if err := json.Unmarshal([]byte(raw), &flashes); err != nil {
		flashes = nil
	}
	if len(flashes) == 0 {
		return nil, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `UPDATE sessions SET flashes = '[]' WHERE token = ?`, token); err != nil {
		return nil, fmt.Errorf("clear flashes: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return flashes, nil
}
