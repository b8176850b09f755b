package apperrors

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Handler returns an echo error handler that renders HTTPErrors with their
// own status, reports deadline expiry as 504 and logs every 5xx response.
func Handler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		cause := err

		var he HTTPError
		switch {
		case errors.As(err, &he):
			err = echo.NewHTTPError(he.Code, he.Error())
		case errors.Is(err, context.DeadlineExceeded):
			err = echo.NewHTTPError(http.StatusGatewayTimeout, "request timed out")
		}

		code := http.StatusInternalServerError
		var ee *echo.HTTPError
		if errors.As(err, &ee) {
			code = ee.Code
		}

		if code >= http.StatusInternalServerError {
			logger.Error().
				Err(cause).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Int("status", code).
				Msg("request failed")
		}

		c.Echo().DefaultHTTPErrorHandler(err, c)
	}
}
