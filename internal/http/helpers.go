package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// pageData is the envelope every template receives. Data carries the page
// specific payload.
type pageData struct {
	Title     string
	UserEmail string
	CSRFToken string
	Flashes   []storage.Flash
	Errors    []string
	Data      any
}

// render executes a template with the common envelope filled in. Queued
// flashes are consumed here so they show exactly once.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name, title string, errs []string, data any) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	pd := pageData{
		Title:  title,
		Errors: errs,
		Data:   data,
	}
	if sess := sessionFrom(r.Context()); sess.Token != "" {
		pd.CSRFToken = sess.CSRFToken
		flashes, err := s.repo.PopFlashes(r.Context(), sess.Token)
		if err != nil {
			slog.WarnContext(r.Context(), "Failed to pop flashes", "error", err)
		}
		pd.Flashes = flashes
	}
	if user := userFrom(r.Context()); user.ID != 0 {
		pd.UserEmail = user.Email
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, pd); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed", "error", err, "template", name)
	}
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// parseOptionalMonth parses an MM/YY form field, treating blank as unset.
func parseOptionalMonth(value string) (core.YM, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	return core.ParseMonthYear(value)
}

// activeBudget fetches (creating on first use) the user's active budget.
func (s *Server) activeBudget(r *http.Request) (core.Budget, error) {
	user := userFrom(r.Context())
	return s.repo.GetOrCreateActiveBudget(r.Context(), user.ID, s.baseCurrency)
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// monthParam reads ?month=MM/YY, defaulting to the current month.
func monthParam(r *http.Request) (core.YM, error) {
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	if v == "" {
		return core.YMFromDate(time.Now()), nil
	}
	return core.ParseMonthYear(v)
}
