package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

const msgTimeout = "Request processing exceeded the allowed time limit."

// RequestTimeout puts a deadline on the request context. The handler runs on
// the request goroutine; when it fails with context.DeadlineExceeded the
// client gets 504 with {"detail": ...}. A non-positive timeout disables the
// middleware.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	if timeout <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return echomw.ContextTimeoutWithConfig(echomw.ContextTimeoutConfig{
		Timeout: timeout,
		ErrorHandler: func(err error, c echo.Context) error {
			if errors.Is(err, context.DeadlineExceeded) {
				return echo.NewHTTPError(http.StatusGatewayTimeout, msgTimeout).SetInternal(err)
			}
			return err
		},
	})
}
