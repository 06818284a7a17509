package loggingmw

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/device_store/pkg/logging"
	authmw "github.com/Skotchmaster/device_store/pkg/middleware/auth"
)

// requestID prefers the id echo's RequestID middleware put on the response,
// then a client supplied one.
func requestID(c echo.Context) string {
	if rid := c.Response().Header().Get(echo.HeaderXRequestID); rid != "" {
		return rid
	}
	rid := c.Request().Header.Get(echo.HeaderXRequestID)
	if rid != "" {
		c.Response().Header().Set(echo.HeaderXRequestID, rid)
	}
	return rid
}

// RequestLogger puts a per-request logger into the request context and writes
// one line per request once the response, including any error body, is out.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			l := base.With("method", req.Method, "route", c.Path(), "path", req.URL.Path)
			if rid := requestID(c); rid != "" {
				l = l.With("request_id", rid)
			}
			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), l)))

			start := time.Now()
			err := next(c)
			if err != nil && !c.Response().Committed {
				c.Echo().HTTPErrorHandler(err, c)
			}

			attrs := []any{
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"bytes_out", c.Response().Size,
				"remote_ip", c.RealIP(),
			}
			if user, ok := authmw.UserFromContext(c); ok {
				attrs = append(attrs, "user_id", user.ID)
			}
			if err != nil {
				attrs = append(attrs, "error", err.Error())
			}

			level := slog.LevelInfo
			switch status := c.Response().Status; {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}
			l.Log(req.Context(), level, "request_completed", attrs...)
			return nil
		}
	}
}
