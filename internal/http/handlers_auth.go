package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"bilancio/internal/storage"
)

type authForm struct {
	Email string
}

func (s *Server) handleSignupForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "signup.html", "Sign up", nil, authForm{})
}

func (s *Server) handleSigninForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "signin.html", "Sign in", nil, authForm{})
}

// handleSignup creates an account and signs the user in. An email that is
// already registered is not an error here: if the password matches we sign
// the existing user in, so the form doubles as a sign-in.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	email := strings.ToLower(sanitizeInput(r.Form.Get("email")))
	password := r.Form.Get("password")

	var errs []string
	if email == "" || !strings.Contains(email, "@") {
		errs = append(errs, "A valid email address is required.")
	}
	if len(password) < 8 {
		errs = append(errs, "Password must be at least 8 characters.")
	}
	if len(errs) > 0 {
		w.WriteHeader(http.StatusUnprocessableEntity)
		s.render(w, r, "signup.html", "Sign up", errs, authForm{Email: email})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		slog.ErrorContext(r.Context(), "Password hashing failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	user, err := s.repo.CreateUser(r.Context(), email, string(hash))
	if errors.Is(err, storage.ErrEmailTaken) {
		existing, lookupErr := s.repo.GetUserByEmail(r.Context(), email)
		if lookupErr == nil && bcrypt.CompareHashAndPassword([]byte(existing.HashedPassword), []byte(password)) == nil {
			user = existing
		} else {
			w.WriteHeader(http.StatusUnprocessableEntity)
			s.render(w, r, "signup.html", "Sign up", []string{"This email is already registered."}, authForm{Email: email})
			return
		}
	} else if err != nil {
		slog.ErrorContext(r.Context(), "User creation failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := s.startSession(w, r, user.ID); err != nil {
		slog.ErrorContext(r.Context(), "Session creation failed", "error", err, "user_id", user.ID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	slog.InfoContext(r.Context(), "User signed up", "user_id", user.ID)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleSignin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	email := strings.ToLower(sanitizeInput(r.Form.Get("email")))
	password := r.Form.Get("password")

	user, err := s.repo.GetUserByEmail(r.Context(), email)
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)) != nil {
		// Same message for unknown email and wrong password.
		w.WriteHeader(http.StatusUnprocessableEntity)
		s.render(w, r, "signin.html", "Sign in", []string{"Invalid email or password."}, authForm{Email: email})
		return
	}

	if err := s.startSession(w, r, user.ID); err != nil {
		slog.ErrorContext(r.Context(), "Session creation failed", "error", err, "user_id", user.ID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	slog.InfoContext(r.Context(), "User signed in", "user_id", user.ID)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleSignout(w http.ResponseWriter, r *http.Request) {
	s.endSession(w, r)
	http.Redirect(w, r, "/signin", http.StatusSeeOther)
}
