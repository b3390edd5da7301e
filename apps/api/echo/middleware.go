package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// adminMiddleware rejects anyone who is not an admin with at least one
// of the given roles. An empty roles list admits any admin.
func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if !claims.IsAdmin || !contextHasAnyRole(ctx, roles) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}
