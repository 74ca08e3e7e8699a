package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hongminglow/syncink-attendance/internal/attendance"
	"github.com/hongminglow/syncink-attendance/internal/auth"
	"github.com/hongminglow/syncink-attendance/internal/config"
	"github.com/hongminglow/syncink-attendance/internal/http/handlers"
	"github.com/hongminglow/syncink-attendance/internal/middleware"
	"github.com/hongminglow/syncink-attendance/internal/storage"
)

// Services are the domain components the HTTP layer delegates to.
type Services struct {
	Users     storage.UserStore
	Settings  *attendance.SettingsService
	Engine    *attendance.Engine
	Workflow  *attendance.Workflow
	Directory *attendance.Directory
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, svc Services, logger *slog.Logger) *Server {
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	handler := middleware.CORS(cfg.CORSOrigins, middleware.Logging(logger, Routes(svc, tokenManager, logger)))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	return &Server{inner: httpServer}
}

// Routes registers every endpoint on a fresh mux.
func Routes(svc Services, tokens *auth.TokenManager, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	protect := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireAuth(tokens, svc.Users, logger, h)
	}

	handlers.NewHealthHandler(time.Now()).Register(mux)
	handlers.NewAuthHandler(svc.Directory, svc.Engine, tokens, logger).Register(mux, protect)
	handlers.NewEntryHandler(svc.Engine, logger).Register(mux, protect)
	handlers.NewRequestHandler(svc.Workflow, logger).Register(mux, protect)
	handlers.NewSettingsHandler(svc.Settings, logger).Register(mux, protect)
	handlers.NewUserHandler(svc.Directory, logger).Register(mux, protect)
	handlers.NewExportHandler(svc.Engine, svc.Directory, logger).Register(mux, protect)
	return mux
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
