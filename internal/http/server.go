// Package http exposes the experimentation engine over an HTTP API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/splitsignal/splitsignal/internal/experiment/service"
	apperrors "github.com/splitsignal/splitsignal/internal/platform/errors"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Server is the HTTP front of the engine.
type Server struct {
	echo    *echo.Echo
	service *service.Service
	logger  *zap.Logger
}

// NewServer builds the HTTP server around a service.
func NewServer(svc *service.Service, logger *zap.Logger) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &Server{echo: e, service: svc, logger: logger}
	e.Use(s.requestLogger)
	e.HTTPErrorHandler = s.handleError
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	api := s.echo.Group("/api/v1")
	api.POST("/experiments", s.handleCreateExperiment)
	api.GET("/experiments", s.handleListExperiments)
	api.GET("/experiments/:id", s.handleGetExperiment)
	api.POST("/experiments/:id/start", s.handleStartExperiment)
	api.POST("/experiments/:id/conclude", s.handleConcludeExperiment)
	api.POST("/experiments/:id/assignments", s.handleAssignVariant)
	api.GET("/experiments/:id/stats", s.handleGetStats)
	api.POST("/observations", s.handleRecordObservation)
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	}
}

// Echo returns the router, primarily for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "splitsignal",
	})
}

// requestLogger logs one structured line per request.
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		s.logger.Info("request",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", time.Since(start)))
		return nil
	}
}

// errorResponse is the JSON error body.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleError maps engine errors onto HTTP statuses using the error code
// taxonomy; everything unrecognized is a 500.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		_ = c.JSON(httpErr.Code, errorResponse{
			Code:    string(apperrors.CodeUnknown),
			Message: fmt.Sprintf("%v", httpErr.Message),
		})
		return
	}

	code := apperrors.CodeOf(err)
	status := code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", c.Request().URL.Path),
			zap.Error(err))
	}
	_ = c.JSON(status, errorResponse{
		Code:    string(code),
		Message: err.Error(),
	})
}
