package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dmitrijs2005/cottonadvisor/internal/logging"
)

// requireLogin redirects anonymous visitors to the login page.
func (s *Server) requireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.currentUserID(c) == "" {
			if isXHR(c) {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "login required"})
			}
			return s.redirectWith(c, "/login", FlashWarning, "Please log in to access this page.")
		}
		return next(c)
	}
}

// logContext attaches the request id and signed-in user to every log line
// written while handling the request.
func (s *Server) logContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		args := []any{"request_id", c.Response().Header().Get(echo.HeaderXRequestID)}
		if id := s.currentUserID(c); id != "" {
			args = append(args, "user_id", id)
		}
		req := c.Request()
		c.SetRequest(req.WithContext(logging.ContextWith(req.Context(), args...)))
		return next(c)
	}
}

func (s *Server) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		status := c.Response().Status
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
		} else if err != nil {
			status = http.StatusInternalServerError
		}
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveHTTP(c.Request().Method, route, status, time.Since(start))
		return err
	}
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			args := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				args = append(args, "error", v.Error)
			}
			s.log.Info(c.Request().Context(), "http request", args...)
			return nil
		},
	})
}

func isXHR(c echo.Context) bool {
	return c.Request().Header.Get("X-Requested-With") == "XMLHttpRequest" ||
		strings.HasPrefix(c.Path(), "/api/")
}

type errorView struct {
	Code    int
	Message string
}

// handleError renders unhandled errors. Server-side failures are logged and
// reported to Sentry when enabled.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := "An unexpected error occurred. Please try again."
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}

	if code >= http.StatusInternalServerError {
		s.log.Error(c.Request().Context(), "request failed", "path", c.Path(), "error", err)
		if s.sentry {
			hub := sentry.CurrentHub().Clone()
			hub.Scope().SetTag("route", c.Path())
			hub.Scope().SetTag("request_id", c.Response().Header().Get(echo.HeaderXRequestID))
			hub.Scope().SetRequest(c.Request())
			hub.CaptureException(err)
		}
	}

	var rerr error
	switch {
	case c.Request().Method == http.MethodHead:
		rerr = c.NoContent(code)
	case isXHR(c):
		rerr = c.JSON(code, map[string]string{"error": msg})
	default:
		rerr = c.Render(code, "error", s.page(c, fmt.Sprintf("Error %d", code), errorView{Code: code, Message: msg}))
	}
	if rerr != nil {
		s.log.Error(c.Request().Context(), "error page failed", "error", rerr)
	}
}
