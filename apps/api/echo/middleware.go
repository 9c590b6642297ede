package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/page"
	"github.com/trezcool/academia/core/session"
)

// sessionMiddleware resolves the session named by the token. Tokens of closed or expired sessions are rejected
// and the pages they left mounted are unmounted.
func sessionMiddleware(mgr *session.Manager, pages *page.Registry) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.Id == "" {
				return errUnauthorized
			}

			sess, err := mgr.Resolve(ctx.Request().Context(), claims.Id)
			if err != nil {
				if err == session.ErrNotFound {
					pages.RemoveOwner(claims.Id)
					return errUnauthorized
				}
				return errors.Wrap(err, "resolving session")
			}
			ctx.Set(contextSessionKey, sess)
			return next(ctx)
		}
	}
}

func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
