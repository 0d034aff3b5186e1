package http

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"spendwise/internal/auth"
	"spendwise/internal/log"
	"spendwise/internal/middleware/ratelimit"
	"spendwise/internal/middleware/security"
	"spendwise/internal/report"
	"spendwise/internal/services"
	appweb "spendwise/web"
)

const staticMaxAge = 24 * 60 * 60

// OAuthProvider is the Google sign-in flow. *auth.GoogleProvider implements it.
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (auth.GoogleUser, error)
}

// Deps are the collaborators the handlers need.
type Deps struct {
	Expenses *services.ExpenseService
	Reports  *report.Service
	Auth     *auth.Service
	Sessions *auth.SessionStore
	// Google is nil when Google sign-in is not configured.
	Google OAuthProvider
	// Ready reports backend health for /readyz. Nil means always ready.
	Ready  func(ctx context.Context) error
	Logger *log.Logger

	LoginRateLimit int
	DemoMode       bool
	// Assets overrides the embedded templates and static files.
	Assets fs.FS
}

type Server struct {
	http.Server

	expenses *services.ExpenseService
	reports  *report.Service
	auth     *auth.Service
	sessions *auth.SessionStore
	google   OAuthProvider
	ready    func(ctx context.Context) error
	demoMode bool

	views    *renderer
	limiter  *ratelimit.Limiter
	clientIP *security.ClientIPResolver
	logger   *log.Logger

	shutdownOnce sync.Once
}

// NewServer parses the templates and configures routes, returning a
// ready-to-run server.
func NewServer(addr string, deps Deps) (*Server, error) {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	assets := deps.Assets
	if assets == nil {
		assets = appweb.FS
	}

	views, err := newRenderer(assets)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	clientIP, err := security.NewClientIPResolver()
	if err != nil {
		return nil, err
	}

	limit := deps.LoginRateLimit
	if limit < 1 {
		limit = 10
	}

	s := &Server{
		expenses: deps.Expenses,
		reports:  deps.Reports,
		auth:     deps.Auth,
		sessions: deps.Sessions,
		google:   deps.Google,
		ready:    deps.Ready,
		demoMode: deps.DemoMode,
		views:    views,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			Limit:  limit,
			Period: time.Minute,
		}),
		clientIP: clientIP,
		logger:   logger.WithComponent(log.ComponentHTTP),
	}

	handler, err := s.routes(assets)
	if err != nil {
		s.limiter.Stop()
		return nil, err
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(assets fs.FS) (http.Handler, error) {
	static, err := fs.Sub(assets, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(log.Middleware(s.logger))
	r.Use(log.AccessLog(log.NewStructuredLogger(s.logger)))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.With(security.StaticAssetMiddleware(staticMaxAge)).
		Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/", s.handleIndex)
	r.With(s.limiter.Middleware(s.clientIP.ClientIP, s.onLoginLimit)).Post("/login", s.handleLogin)
	r.Post("/reset-password", s.handleResetPassword)
	r.Get("/google-login", s.handleGoogleLogin)
	r.Get("/google-login/callback", s.handleGoogleCallback)
	r.Get("/demo-login", s.handleDemoLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Use(security.NoStore)

		r.Get("/logout", s.handleLogout)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/add-expense", s.handleAddExpenseForm)
		r.Post("/add-expense", s.handleAddExpense)
		r.Get("/edit-expense/{id}", s.handleEditExpenseForm)
		r.Post("/edit-expense/{id}", s.handleEditExpense)
		r.Post("/delete-expense/{id}", s.handleDeleteExpense)
		r.Get("/reports", s.handleReports)
		r.Get("/export-expenses", s.handleExport)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})
	return r, nil
}

// Shutdown stops the rate limiter and gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) onLoginLimit(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Login rate limit exceeded",
		log.FieldClientIP, s.clientIP.ClientIP(r))
	TooManyRequestsError("Too many login attempts. Please try again later.").Write(w)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ready"))
}
