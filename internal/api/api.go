// Package api provides the read-only HTTP surface: current headcount,
// active sessions, daily summaries, health and metrics. All writes happen
// through the event pipeline; nothing here mutates state.
package api

import (
	"crypto/rand"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/gatewatch/gatewatch-go/internal/attendance"
	"github.com/gatewatch/gatewatch-go/internal/conf"
	"github.com/gatewatch/gatewatch-go/internal/datastore"
	"github.com/gatewatch/gatewatch-go/internal/logging"
	"github.com/gatewatch/gatewatch-go/internal/observability"
)

// Controller registers and serves the API routes.
type Controller struct {
	Echo       *echo.Echo
	DS         datastore.Interface
	Settings   *conf.Settings
	attendance *attendance.Service
	metrics    *observability.Metrics

	apiLogger      *slog.Logger
	apiLoggerClose func() error
}

// New creates the API controller and registers its routes on e.
func New(e *echo.Echo, ds datastore.Interface, settings *conf.Settings,
	svc *attendance.Service, metrics *observability.Metrics) (*Controller, error) {

	c := &Controller{
		Echo:       e,
		DS:         ds,
		Settings:   settings,
		attendance: svc,
		metrics:    metrics,
	}

	apiLogger, closeFunc, err := logging.NewFileLogger("logs/web.log", "api", slog.LevelInfo)
	if err != nil {
		// Fall back to a disabled logger rather than failing the server.
		handler := slog.NewJSONHandler(io.Discard, nil)
		c.apiLogger = slog.New(handler).With("service", "api")
		c.apiLoggerClose = func() error { return nil }
	} else {
		c.apiLogger = apiLogger
		c.apiLoggerClose = closeFunc
	}

	c.initRoutes()
	return c, nil
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	c.Echo.Use(middleware.Recover())

	c.Echo.GET("/healthz", c.Health)
	if c.metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}

	v1 := c.Echo.Group("/api/v1/attendance")
	v1.GET("/current", c.CurrentOnsite)
	v1.GET("/sessions/active", c.ActiveSessions)
	v1.GET("/summary/today", c.TodaySummary)
	v1.GET("/summary/history", c.SummaryHistory)
}

// Shutdown releases controller resources. The echo server itself is owned
// and stopped by the caller.
func (c *Controller) Shutdown() {
	if c.apiLoggerClose != nil {
		_ = c.apiLoggerClose()
	}
}

// Health reports liveness.
func (c *Controller) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Error response structure
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // Unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

// generateCorrelationID creates a unique identifier for error tracking.
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError constructs and returns an appropriate error response
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	errorResp := NewErrorResponse(err, message, code)

	c.apiLogger.Error("API Error",
		"correlation_id", errorResp.CorrelationID,
		"message", message,
		"error", errorResp.Error,
		"code", code,
		"path", ctx.Request().URL.Path,
		"method", ctx.Request().Method,
		"ip", ctx.RealIP())

	return ctx.JSON(code, errorResp)
}
