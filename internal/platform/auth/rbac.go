package auth

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole returns middleware that checks if the user has at least one of the specified roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRoles := RolesFromContext(c.Request().Context())
			for _, required := range roles {
				for _, has := range userRoles {
					if has == required || has == RoleAdmin {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// RequireHospitalAccess rejects requests whose :hospital_id is not among the
// caller's hospital ids. Admins pass unconditionally.
func RequireHospitalAccess() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Param("hospital_id")
			if raw == "" {
				return next(c)
			}
			hospitalID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid hospital id")
			}
			if !CanAccessHospital(c.Request().Context(), hospitalID) {
				return echo.NewHTTPError(http.StatusForbidden, "no access to this hospital")
			}
			return next(c)
		}
	}
}

// CanAccessHospital reports whether the identity on ctx may act on hospitalID.
func CanAccessHospital(ctx context.Context, hospitalID int64) bool {
	for _, r := range RolesFromContext(ctx) {
		if r == RoleAdmin {
			return true
		}
	}
	for _, id := range HospitalIDsFromContext(ctx) {
		if id == hospitalID {
			return true
		}
	}
	return false
}
