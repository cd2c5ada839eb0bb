// Package server provides the HTTP server implementation.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/stockmatch/internal/auth"
	"github.com/vyrodovalexey/stockmatch/internal/config"
	"github.com/vyrodovalexey/stockmatch/internal/handler"
	"github.com/vyrodovalexey/stockmatch/internal/middleware"
	"github.com/vyrodovalexey/stockmatch/internal/session"
	"github.com/vyrodovalexey/stockmatch/internal/store"
)

// Server represents the HTTP server.
type Server struct {
	httpServer    *http.Server
	router        *mux.Router
	config        *config.Config
	logger        *zap.Logger
	authenticator auth.Authenticator
	wsHandler     *handler.WebSocketHandler
}

// New creates a new Server instance. A nil authenticator disables
// authentication.
func New(
	cfg *config.Config,
	logger *zap.Logger,
	catalog store.CatalogStore,
	blacklist store.BlacklistStore,
	sup *session.Supervisor,
	authenticator auth.Authenticator,
) *Server {
	s := &Server{
		router:        mux.NewRouter(),
		config:        cfg,
		logger:        logger,
		authenticator: authenticator,
	}

	s.setupMiddleware()
	s.setupRoutes(catalog, blacklist, sup)
	s.setupHTTPServer()

	return s
}

// setupMiddleware configures the middleware chain.
func (s *Server) setupMiddleware() {
	allowedOrigins := []string{"*"}
	allowedMethods := []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodDelete,
		http.MethodOptions,
	}
	allowedHeaders := []string{
		"Content-Type",
		"Authorization",
		auth.APIKeyHeader,
		middleware.RequestIDHeader,
	}

	// First applied is outermost.
	s.router.Use(mux.MiddlewareFunc(middleware.Recovery(s.logger)))
	s.router.Use(mux.MiddlewareFunc(middleware.RequestID()))

	if s.config.MetricsEnabled {
		s.router.Use(mux.MiddlewareFunc(middleware.Metrics()))
	}

	s.router.Use(mux.MiddlewareFunc(middleware.Logging(s.logger)))
	s.router.Use(mux.MiddlewareFunc(middleware.CORS(allowedOrigins, allowedMethods, allowedHeaders)))

	// WebSocket upgrades go through here too.
	if s.authenticator != nil {
		s.router.Use(mux.MiddlewareFunc(middleware.Auth(s.authenticator, s.logger)))
	}
}

// setupRoutes registers the REST, WebSocket and metrics routes.
func (s *Server) setupRoutes(catalog store.CatalogStore, blacklist store.BlacklistStore, sup *session.Supervisor) {
	restHandler := handler.NewRESTHandler(catalog, blacklist, sup, s.config.RequestTimeout, s.logger)
	restHandler.RegisterRoutes(s.router)

	s.wsHandler = handler.NewWebSocketHandler(catalog, blacklist, sup, s.logger)
	s.wsHandler.RegisterRoutes(s.router)

	if s.config.MetricsEnabled {
		s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
}

// setupHTTPServer configures the HTTP server. The write timeout leaves
// room for a synchronous search that runs up to the request timeout.
func (s *Server) setupHTTPServer() {
	writeTimeout := 15 * time.Second
	if s.config.RequestTimeout+5*time.Second > writeTimeout {
		writeTimeout = s.config.RequestTimeout + 5*time.Second
	}

	s.httpServer = &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server",
		zap.String("address", s.config.Address()),
		zap.Bool("metrics_enabled", s.config.MetricsEnabled),
		zap.Bool("auth_enabled", s.authenticator != nil),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server listen and serve: %w", err)
	}

	return nil
}

// Shutdown closes the search connections and sessions, then drains the
// HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	if s.wsHandler != nil {
		s.wsHandler.CloseAllConnections()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Router returns the server's router for testing purposes.
func (s *Server) Router() *mux.Router {
	return s.router
}
