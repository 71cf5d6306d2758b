// Package api serves collected price data over HTTP: raw price rows,
// product aggregates, and per-site daily price history.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/luciusandi/bumbootools/internal/config"
	"github.com/luciusandi/bumbootools/internal/storage"
)

// Server wraps the gin engine and the backing store.
type Server struct {
	cfg    *config.Config
	store  storage.Store
	logger *slog.Logger
	httpd  *http.Server
}

func NewServer(cfg *config.Config, store storage.Store, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		store:  store,
		logger: logger.With("component", "api_server"),
	}
	s.httpd = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           s.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(s.logger))
	engine.Use(corsMiddleware(s.cfg.API.AllowedOrigins))

	auth := basicAuth(s.cfg.API.User, s.cfg.API.Pass)

	api := engine.Group("/api", auth)
	{
		api.GET("/health", s.handleHealth)
		api.GET("/prices", s.handlePrices)
		api.GET("/products", s.handleProducts)
		api.GET("/price-history", s.handlePriceHistory)
	}
	return engine
}

// Run serves until the context is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", "addr", s.httpd.Addr)
		if err := s.httpd.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("api server shutting down")
	return s.httpd.Shutdown(shutdownCtx)
}

// Handler exposes the route tree, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpd.Handler
}
