package auth

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// RequireRole allows callers holding any of roles. Admin passes every check.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if hasAnyRole(RolesFromContext(c.Request().Context()), roles) {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

func hasAnyRole(have, want []string) bool {
	if slices.Contains(have, RoleAdmin) {
		return true
	}
	for _, r := range want {
		if slices.Contains(have, r) {
			return true
		}
	}
	return false
}

// RequireOwner allows the request only when the :hdid path parameter is the
// caller's own hdid.
func RequireOwner() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller := HdidFromContext(c.Request().Context())
			if caller == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}
			if c.Param("hdid") != caller {
				return echo.NewHTTPError(http.StatusForbidden, "access to another user's data is not permitted")
			}
			return next(c)
		}
	}
}

// DelegateChecker reports whether delegateHdid may currently view ownerHdid's
// records.
type DelegateChecker interface {
	IsDelegateOf(ctx context.Context, ownerHdid, delegateHdid string, now time.Time) (bool, error)
}

// RequireOwnerOrDelegate extends RequireOwner to guardians and accepted
// delegates of :hdid.
func RequireOwnerOrDelegate(checker DelegateChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			caller := HdidFromContext(ctx)
			if caller == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}
			owner := c.Param("hdid")
			if owner == caller {
				return next(c)
			}
			ok, err := checker.IsDelegateOf(ctx, owner, caller, time.Now())
			if err != nil {
				return err
			}
			if !ok {
				return echo.NewHTTPError(http.StatusForbidden, "caller is not a delegate of the requested user")
			}
			return next(c)
		}
	}
}
