// Package httpapi exposes feature naming, categorisation and analysis runs
// over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"pdlens/app"
	"pdlens/domain/interpret"
	"pdlens/internal"

	"github.com/gin-gonic/gin"
)

// DefaultMaxBodyBytes bounds analyze request bodies.
const DefaultMaxBodyBytes = 64 << 20

// Server wires the gin router to the interpretation service.
type Server struct {
	router      *gin.Engine
	service     *app.InterpretationService
	settings    app.Settings
	interpreter *interpret.Interpreter
	maxBody     int64
	logger      *internal.Logger
}

// NewServer creates the router with recovery and request logging.
func NewServer(service *app.InterpretationService, settings app.Settings, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Server{
		router:      gin.New(),
		service:     service,
		settings:    settings,
		interpreter: interpret.Default,
		maxBody:     DefaultMaxBodyBytes,
		logger:      logger.WithComponent("http"),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler returns the router for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestLogger())
}

// requestLogger logs one line per request through the application logger.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("%s %s %d %v", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	v1.GET("/features/names", s.handleFeatureNames)
	v1.GET("/features/categorize", s.handleCategorize)
	v1.POST("/analyze", s.handleAnalyze)
	v1.GET("/runs", s.handleListRuns)
	v1.GET("/runs/:id", s.handleGetRun)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
