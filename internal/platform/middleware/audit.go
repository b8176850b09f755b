package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/minlab/hospital/internal/platform/apperrors"
	"github.com/minlab/hospital/internal/platform/auth"
)

// Audit writes one "record_access" event per request that touches patient or
// visit records: who acted, on which hospital, patient and visit, with what
// outcome. Mount it on the hospital-scoped group so path parameters are
// resolved.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = errorStatus(err)
			}

			ctx := c.Request().Context()
			rid, _ := c.Get("request_id").(string)
			evt := logger.Info().
				Str("type", "audit").
				Str("request_id", rid).
				Str("user_id", auth.UserIDFromContext(ctx)).
				Strs("user_roles", auth.RolesFromContext(ctx)).
				Str("action", httpMethodToAction(c.Request().Method)).
				Str("route", c.Path()).
				Str("hospital_id", c.Param("hospital_id")).
				Int("status", status)
			if pid := c.Param("patient_id"); pid != "" {
				evt = evt.Str("patient_id", pid)
			}
			if vid := c.Param("visit_id"); vid != "" {
				evt = evt.Str("visit_id", vid)
			}
			evt.Msg("record_access")

			return err
		}
	}
}

// errorStatus predicts the status the error handler will write for err.
func errorStatus(err error) int {
	var ae apperrors.HTTPError
	if errors.As(err, &ae) {
		return ae.Code
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func httpMethodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}
