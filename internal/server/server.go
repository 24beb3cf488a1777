// Package server собирает HTTP сервер аутентификации:
// маршруты, middleware, таймауты и graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/authkeeper/authkeeper/internal/server/handlers"
	"github.com/authkeeper/authkeeper/internal/server/middleware"
	"github.com/authkeeper/authkeeper/internal/server/session"
	"github.com/authkeeper/authkeeper/internal/server/storage"
	"github.com/authkeeper/authkeeper/internal/server/token"
)

// Options содержит зависимости и настройки HTTP сервера
type Options struct {
	Logger    *slog.Logger
	Users     storage.UserStorage
	Sessions  *session.Manager
	TokenCfg  token.Config
	CookieCfg handlers.CookieConfig
	Address   string
	Version   string
}

// Server представляет HTTP сервер сервиса аутентификации
type Server struct {
	logger *slog.Logger
	http   *http.Server
}

// New создает сервер с настроенными маршрутами и middleware
func New(opts Options) *Server {
	authHandler := handlers.NewAuthHandler(opts.Logger, opts.Users, opts.Sessions, opts.CookieCfg)
	userHandler := handlers.NewUserHandler(opts.Logger, opts.Users, opts.Sessions)
	healthHandler := handlers.NewHealthHandler(opts.Logger, opts.Version)

	requireAuth := middleware.AuthMiddleware(opts.Logger, opts.TokenCfg)

	mux := http.NewServeMux()

	// Публичные маршруты
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)

	// Маршруты, требующие access token
	mux.Handle("POST /api/v1/auth/logout", requireAuth(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /api/v1/users/me", requireAuth(http.HandlerFunc(userHandler.Me)))
	mux.Handle("PATCH /api/v1/users/me", requireAuth(http.HandlerFunc(userHandler.UpdateProfile)))
	mux.Handle("POST /api/v1/users/me/password", requireAuth(http.HandlerFunc(userHandler.ChangePassword)))

	// Внешняя цепочка: recovery перехватывает паники в том числе в логировании
	var handler http.Handler = mux
	handler = middleware.LoggingWithSkip(opts.Logger, []string{"/api/v1/health"})(handler)
	handler = middleware.RecoveryMiddleware(opts.Logger)(handler)

	return &Server{
		logger: opts.Logger,
		http: &http.Server{
			Addr:              opts.Address,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Run запускает сервер и блокируется до отмены контекста
// После отмены выполняется graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("shutting down HTTP server")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	return nil
}

// Handler возвращает корневой handler сервера (для httptest)
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}
