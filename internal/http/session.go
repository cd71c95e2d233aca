package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

type contextKey string

const (
	sessionKey contextKey = "session"
	userKey    contextKey = "user"
)

const sessionCookieName = "bilancio_session"

// startSession creates a server-side session for the user and sets the
// cookie. Token and CSRF token are independent so the CSRF token can be
// embedded in forms without exposing the session token.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, userID int64) error {
	sess := storage.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		CSRFToken: uuid.NewString(),
		ExpiresAt: time.Now().Add(s.sessionTTL),
	}
	if err := s.repo.CreateSession(r.Context(), sess); err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if err := s.repo.DeleteSession(r.Context(), cookie.Value); err != nil {
			slog.WarnContext(r.Context(), "Failed to delete session", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// currentUser resolves the session cookie to a session and user.
func (s *Server) currentUser(r *http.Request) (storage.Session, core.User, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return storage.Session{}, core.User{}, err
	}
	sess, err := s.repo.GetSession(r.Context(), cookie.Value)
	if err != nil {
		return storage.Session{}, core.User{}, err
	}
	user, err := s.repo.GetUser(r.Context(), sess.UserID)
	if err != nil {
		return storage.Session{}, core.User{}, err
	}
	return sess, user, nil
}

// requireUser redirects anonymous requests to the sign-in page and, for
// POST requests, rejects missing or stale CSRF tokens.
func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, user, err := s.currentUser(r)
		if err != nil {
			if !errors.Is(err, http.ErrNoCookie) && !errors.Is(err, storage.ErrNotFound) {
				slog.ErrorContext(r.Context(), "Session lookup failed", "error", err)
			}
			http.Redirect(w, r, "/signin", http.StatusSeeOther)
			return
		}

		// Surface the user on the completion log record.
		if rw, ok := w.(*responseWriter); ok {
			rw.userID = user.ID
		}

		if r.Method == http.MethodPost {
			if err := r.ParseMultipartForm(10 << 20); err != nil {
				if err := r.ParseForm(); err != nil {
					http.Error(w, "invalid form", http.StatusBadRequest)
					return
				}
			}
			if r.FormValue("csrf_token") != sess.CSRFToken {
				slog.WarnContext(r.Context(), "CSRF token mismatch", "user_id", user.ID, "url", r.URL.Path)
				http.Error(w, "invalid CSRF token", http.StatusForbidden)
				return
			}
		}

		ctx := context.WithValue(r.Context(), sessionKey, sess)
		ctx = context.WithValue(ctx, userKey, user)
		next(w, r.WithContext(ctx))
	}
}

func sessionFrom(ctx context.Context) storage.Session {
	sess, _ := ctx.Value(sessionKey).(storage.Session)
	return sess
}

func userFrom(ctx context.Context) core.User {
	user, _ := ctx.Value(userKey).(core.User)
	return user
}

// flash queues a one-shot message shown on the next rendered page.
func (s *Server) flash(r *http.Request, kind, message string) {
	sess := sessionFrom(r.Context())
	if sess.Token == "" {
		return
	}
	if err := s.repo.AppendFlash(r.Context(), sess.Token, storage.Flash{Kind: kind, Message: message}); err != nil {
		slog.WarnContext(r.Context(), "Failed to queue flash", "error", err)
	}
}
