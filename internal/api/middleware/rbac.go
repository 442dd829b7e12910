package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/bottlerun/exchange-api/internal/core/domain"
)

// RBAC enforces role-based access control. It must run after Auth.
func RBAC(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(KeyRole).(domain.Role)
			if _, ok := allowed[role]; !ok {
				return fmt.Errorf("role %q: %w", role, domain.ErrNotAuthorized)
			}
			return next(c)
		}
	}
}
