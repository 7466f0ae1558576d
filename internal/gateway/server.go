// Package gateway is the console's HTTP server.
//
// The browser never sees the bearer token: it is kept in an HttpOnly cookie and attached to each forwarded
// /ui-api request as an explicit token. Every /ui-api response is the RequestClient result envelope.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jub0bs/cors"

	"github.com/conveydesk/conveydesk/internal/client"
	"github.com/conveydesk/conveydesk/internal/config"
	"github.com/conveydesk/conveydesk/internal/logger"
)

const (
	// ServerShutdownTimeout is the timeout for graceful server shutdown
	ServerShutdownTimeout = 10 * time.Second

	// requests still running after this are cancelled (the upstream call included)
	requestTimeout = 60 * time.Second

	uiAPIPrefix = "/ui-api"
)

type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	client *client.Client
	cors   *cors.Middleware

	// now is replaced in tests
	now func() time.Time
}

// NewServer creates the gateway. apiClient is used for every upstream call and should not carry a session store:
// the token always comes from the request cookie.
func NewServer(cfg *config.Config, logger *slog.Logger, apiClient *client.Client) (*Server, error) {
	corsMiddleware, err := config.NewCORSMiddleware(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		client: apiClient,
		cors:   corsMiddleware,
		now:    time.Now,
	}

	s.setupMiddleware()
	s.registerRoutes()
	return s, nil
}

// Handler returns the router (used by tests and when embedding the gateway in another server)
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(logger.RequestLogging(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(chimiddleware.Timeout(requestTimeout))
	s.router.Use(SecurityHeaders(s.config.Environment))
	s.router.Use(RequestSizeLimit(s.config.MaxRequestSize))
	s.router.Use(RateLimit(s.config.RateLimitRPS, s.config.RateLimitBurst))
	s.router.Use(CORS(s.cors))
}

func (s *Server) registerRoutes() {
	s.router.Route("/health", func(r chi.Router) {
		r.Get("/live", s.handleLive)
	})
	s.router.Get("/version", s.handleVersion)

	// public: logout must work with an expired session
	s.router.Post("/login", s.handleLogin)
	s.router.Post("/logout", s.handleLogout)

	s.router.Group(func(r chi.Router) {
		r.Use(s.RequireAuth)

		r.Handle(uiAPIPrefix+"/*", http.HandlerFunc(s.handleForward))
	})
}

// Start runs the server until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("console gateway listening",
			slog.String("address", addr),
			slog.String("environment", s.config.Environment),
			slog.String("api_base_url", s.client.BaseURL()),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutting down console gateway")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ServerShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("server forced to shutdown", slog.String("error", err.Error()))
			return err
		}
	}

	return nil
}
