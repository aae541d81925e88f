package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/smartreview/internal/cache"
	"github.com/smartreview/internal/engine"
	"github.com/smartreview/internal/logging"
	"github.com/smartreview/pkg/models"
)

// FeedbackReader serves stored feedback to the store owner.
type FeedbackReader interface {
	Get(ctx context.Context, id string) (*models.FeedbackRecord, error)
	List(ctx context.Context, storeID string, page, limit int) ([]*models.FeedbackRecord, error)
}

// Deps are the collaborators the API exposes.
type Deps struct {
	Engine         *engine.Engine
	Feedback       FeedbackReader
	CacheStats     func() cache.Stats
	Logger         zerolog.Logger
	RequestTimeout time.Duration
}

// Server represents the API server
type Server struct {
	echo *echo.Echo
	port int
	deps Deps
}

// NewServer creates a new API server
func NewServer(port int, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())

	server := &Server{echo: e, port: port, deps: deps}
	e.Use(server.requestContext)

	server.setupRoutes()
	return server
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.health)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/submissions", s.submit)
	v1.POST("/reviews/generate", s.generateReview)
	v1.POST("/feedback", s.captureFeedback)
	v1.GET("/feedback/:id", s.getFeedback)
	v1.GET("/stores/:id/feedback", s.listFeedback)
	v1.GET("/platforms", s.listPlatforms)
}

// ServeHTTP lets the server be mounted or exercised without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.Info().Int("port", s.port).Msg("API server listening")
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	s.deps.Logger.Info().Msg("Shutting down API server")
	return s.echo.Shutdown(shutdownCtx)
}

// requestContext attaches a request-scoped logger and the request timeout.
func (s *Server) requestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		id := c.Response().Header().Get(echo.HeaderXRequestID)
		ctx := logging.WithRequest(req.Context(), s.deps.Logger, "http", id)
		if s.deps.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.deps.RequestTimeout)
			defer cancel()
		}
		c.SetRequest(req.WithContext(ctx))

		start := time.Now()
		err := next(c)
		zerolog.Ctx(ctx).Debug().
			Str("method", req.Method).
			Str("path", c.Path()).
			Int("status", c.Response().Status).
			Dur("latency", time.Since(start)).
			Msg("Request served")
		return err
	}
}
