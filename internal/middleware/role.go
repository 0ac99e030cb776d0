package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/simplestock/backend/internal/apperror"
)

// RequireRole enforces that the authenticated identity's role is one of the
// given roles. It composes after Session, which stores the role claim in
// context; a missing or unknown role is rejected the same as a wrong one.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxRole).(string)
			if !ok || !allowed[role] {
				return apperror.ErrForbidden
			}
			return next(c)
		}
	}
}
