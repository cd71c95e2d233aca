package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	applog "bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/storage"
	appweb "bilancio/web"
)

// Options carries the server knobs taken from configuration.
type Options struct {
	Addr          string
	SessionTTL    time.Duration
	SecureCookies bool
	BcryptCost    int
	BaseCurrency  string
}

type Server struct {
	http.Server
	templates *template.Template

	svc  *services.BudgetService
	repo *storage.Repository

	logger  *applog.Logger
	httpLog *applog.HTTPLogger

	sessionTTL    time.Duration
	secureCookies bool
	bcryptCost    int
	baseCurrency  string

	rateLimiter  *rateLimiter
	metrics      *securityMetrics
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(opts Options, svc *services.BudgetService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    opts.Addr,
			Handler: mux,
		},
		svc:           svc,
		repo:          svc.Storage(),
		sessionTTL:    opts.SessionTTL,
		secureCookies: opts.SecureCookies,
		bcryptCost:    opts.BcryptCost,
		baseCurrency:  opts.BaseCurrency,
		rateLimiter:   newRateLimiter(),
		metrics:       &securityMetrics{},
	}
	s.logger = applog.New(applog.Config{
		Component: applog.ComponentHTTP,
		Handler:   slog.Default().Handler(),
	})
	s.httpLog = applog.NewHTTPLogger(s.logger)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("GET /{$}", s.guard(s.handleIndex))
	mux.HandleFunc("GET /signup", s.guard(s.handleSignupForm))
	mux.HandleFunc("POST /signup", s.guard(s.handleSignup))
	mux.HandleFunc("GET /signin", s.guard(s.handleSigninForm))
	mux.HandleFunc("POST /signin", s.guard(s.handleSignin))
	mux.HandleFunc("POST /signout", s.guard(s.requireUser(s.handleSignout)))

	mux.HandleFunc("GET /dashboard", s.guard(s.requireUser(s.handleDashboard)))

	mux.HandleFunc("GET /lines", s.guard(s.requireUser(s.handleLineList)))
	mux.HandleFunc("GET /lines/new", s.guard(s.requireUser(s.handleLineNew)))
	mux.HandleFunc("POST /lines", s.guard(s.requireUser(s.handleLineCreate)))
	mux.HandleFunc("GET /lines/{id}/edit", s.guard(s.requireUser(s.handleLineEdit)))
	mux.HandleFunc("POST /lines/{id}", s.guard(s.requireUser(s.handleLineUpdate)))
	mux.HandleFunc("POST /lines/{id}/delete", s.guard(s.requireUser(s.handleLineDelete)))

	mux.HandleFunc("GET /transactions", s.guard(s.requireUser(s.handleTxnList)))
	mux.HandleFunc("GET /transactions/new", s.guard(s.requireUser(s.handleTxnNew)))
	mux.HandleFunc("POST /transactions", s.guard(s.requireUser(s.handleTxnCreate)))
	mux.HandleFunc("GET /transactions/{id}/edit", s.guard(s.requireUser(s.handleTxnEdit)))
	mux.HandleFunc("POST /transactions/{id}", s.guard(s.requireUser(s.handleTxnUpdate)))
	mux.HandleFunc("POST /transactions/{id}/delete", s.guard(s.requireUser(s.handleTxnDelete)))

	mux.HandleFunc("GET /imports", s.guard(s.requireUser(s.handleImportPage)))
	mux.HandleFunc("POST /imports/lines", s.guard(s.requireUser(s.handleImportLines)))
	mux.HandleFunc("POST /imports/transactions", s.guard(s.requireUser(s.handleImportTxns)))
	mux.HandleFunc("GET /imports/templates/lines.csv", s.guard(s.requireUser(s.handleLineTemplate)))
	mux.HandleFunc("GET /imports/templates/transactions.csv", s.guard(s.requireUser(s.handleTxnTemplate)))

	return s
}

// guard adds request-scoped logging, security headers, and rate limiting.
// Each request gets its own logger with a request id; completion is logged
// with the response status (4xx at warn, 5xx at error) and the signed-in
// user when one resolved.
func (s *Server) guard(next http.HandlerFunc) http.HandlerFunc {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		clientIP := extractClientIP(r)

		s.httpLog.LogStart(ctx, r, clientIP)

		if detectSuspiciousRequest(r, s.metrics) {
			applog.FromContext(ctx).WarnContext(ctx, "Suspicious request detected",
				applog.FieldClientIP, clientIP,
				applog.FieldPath, r.URL.Path)
		}

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, s.metrics) {
			applog.FromContext(ctx).WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.httpLog.LogEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP, rw.userID)
	})

	chain := applog.Middleware(s.logger)(applog.RequestIDMiddleware(requestID)(inner))
	return chain.ServeHTTP
}

// requestID honors an upstream X-Request-ID header, otherwise mints one.
func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}

// responseWriter wraps http.ResponseWriter to capture the status code and,
// once requireUser resolves the session, the signed-in user id.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	userID     int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Ping(r.Context()); err != nil {
		http.Error(w, "database not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleIndex sends signed-in users to the dashboard and everyone else to
// the sign-in page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if _, _, err := s.currentUser(r); err == nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/signin", http.StatusSeeOther)
}
