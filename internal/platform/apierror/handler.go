package apierror

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// HTTPErrorHandler renders *Error values with their field maps, echo HTTP
// errors as {"detail": ...}, and anything else as an opaque 500.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		var body interface{} = map[string]string{"detail": "internal server error"}

		if apiErr, ok := As(err); ok {
			status = apiErr.Status()
			body = apiErr.Body()
		} else if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
			msg := he.Message
			if msg == nil {
				msg = http.StatusText(he.Code)
			}
			body = map[string]interface{}{"detail": msg}
		}

		if status >= http.StatusInternalServerError {
			logger.Error().
				Err(err).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			logger.Error().Err(writeErr).Msg("write error response")
		}
	}
}
