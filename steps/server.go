package steps

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/go-given/given"
	"github.com/jsamuelsen/go-given/internal/platform/logging"
)

// Server is a running gin engine on a local test listener.
type Server struct {
	URL    string
	Client *http.Client
	Engine *gin.Engine

	srv *httptest.Server
}

// Close shuts the listener down and waits for open requests.
func (s *Server) Close() {
	s.srv.Close()
}

// GinServer starts a gin engine with the routes registered by routes and
// stores the *Server under name. Requests are traced with otelgin and
// logged through the run logger. The server is closed at teardown.
func GinServer(name string, routes func(e *gin.Engine)) given.Step {
	return given.NewStep(name, func(c *given.Context) (given.Scoped, error) {
		var s *Server
		return given.NewResource(
			func() error {
				s = newServer(name, c.Logger(), routes)
				c.Set(name, s)
				return nil
			},
			func() error {
				s.Close()
				return nil
			},
		), nil
	})
}

func newServer(name string, logger *slog.Logger, routes func(e *gin.Engine)) *Server {
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(
		recovery(logger),
		otelgin.Middleware(name),
		requestLog(logger),
	)
	if routes != nil {
		routes(engine)
	}

	srv := httptest.NewServer(engine)
	return &Server{
		URL:    srv.URL,
		Client: srv.Client(),
		Engine: engine,
		srv:    srv,
	}
}

// recovery answers 500 for a panicking handler.
func recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				var traceID string
				if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().HasTraceID() {
					traceID = span.SpanContext().TraceID().String()
				}

				logger.Error(given.Tag+" handler panic recovered",
					slog.Any("error", r),
					slog.String("stack", string(debug.Stack())),
					slog.String("path", c.Request.URL.Path),
					slog.String("method", c.Request.Method),
					slog.String("trace_id", traceID),
				)

				if !c.Writer.Written() {
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
				} else {
					c.Abort()
				}
			}
		}()

		c.Next()
	}
}

// requestLog logs each request at trace level, warn or error for failures.
func requestLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), logger))

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		level := logging.LevelTrace
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		} else if status >= http.StatusBadRequest {
			level = slog.LevelWarn
		}

		logger.Log(c.Request.Context(), level, given.Tag+" request completed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("latency", latency),
		)
	}
}
