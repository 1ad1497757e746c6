// Package auth validates bearer tokens and guards hdid-scoped routes.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	HdidKey  contextKey = "hdid"
	EmailKey contextKey = "email"
	RolesKey contextKey = "roles"
)

const (
	RoleAdmin   = "admin"
	RoleSupport = "support"

	DevHdidHeader  = "X-Dev-Hdid"
	DefaultDevHdid = "dev-hdid"
)

type Claims struct {
	jwt.RegisteredClaims
	Hdid  string   `json:"hdid"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// SigningKey enables HS256 validation; otherwise keys come from JWKSURL.
	SigningKey []byte
}

// JWTMiddleware authenticates the caller and stores hdid, email and roles on
// the request context. The hdid claim falls back to sub.
func JWTMiddleware(cfg JWTConfig, logger zerolog.Logger) echo.MiddlewareFunc {
	var jwks *JWKSCache
	if len(cfg.SigningKey) == 0 {
		url := cfg.JWKSURL
		if url == "" && cfg.Issuer != "" {
			discovered, err := DiscoverJWKSURL(context.Background(), cfg.Issuer)
			if err != nil {
				logger.Error().Err(err).Str("issuer", cfg.Issuer).Msg("jwks discovery failed")
			}
			url = discovered
		}
		jwks = NewJWKSCache(url, defaultJWKSCacheTTL)
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256", "HS256"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			scheme, tokenStr, ok := strings.Cut(c.Request().Header.Get(echo.HeaderAuthorization), " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(tokenStr) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed bearer token")
			}

			claims := &Claims{}
			var keyFunc jwt.Keyfunc
			if jwks != nil {
				keyFunc = jwks.keyFunc(c.Request().Context())
			} else {
				keyFunc = func(*jwt.Token) (interface{}, error) { return cfg.SigningKey, nil }
			}

			token, err := jwt.ParseWithClaims(strings.TrimSpace(tokenStr), claims, keyFunc, opts...)
			if err != nil || !token.Valid {
				logger.Debug().Err(err).Msg("token rejected")
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			hdid := claims.Hdid
			if hdid == "" {
				hdid = claims.Subject
			}
			if hdid == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token has no hdid")
			}
			setIdentity(c, hdid, claims.Email, claims.Roles)
			return next(c)
		}
	}
}

// DevAuthMiddleware trusts X-Dev-Hdid and grants the admin role. A request
// that carries a bearer token is passed to verify instead, when set.
func DevAuthMiddleware(verify echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		verified := next
		if verify != nil {
			verified = verify(next)
		}
		return func(c echo.Context) error {
			if c.Request().Header.Get(echo.HeaderAuthorization) != "" {
				return verified(c)
			}
			hdid := c.Request().Header.Get(DevHdidHeader)
			if hdid == "" {
				hdid = DefaultDevHdid
			}
			setIdentity(c, hdid, "", []string{RoleAdmin})
			return next(c)
		}
	}
}

func setIdentity(c echo.Context, hdid, email string, roles []string) {
	c.Set(string(HdidKey), hdid)
	ctx := WithIdentity(c.Request().Context(), hdid, email, roles)
	c.SetRequest(c.Request().WithContext(ctx))
}

// WithIdentity stores an authenticated identity on ctx.
func WithIdentity(ctx context.Context, hdid, email string, roles []string) context.Context {
	ctx = context.WithValue(ctx, HdidKey, hdid)
	ctx = context.WithValue(ctx, EmailKey, email)
	return context.WithValue(ctx, RolesKey, roles)
}

func HdidFromContext(ctx context.Context) string {
	hdid, _ := ctx.Value(HdidKey).(string)
	return hdid
}

func EmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(EmailKey).(string)
	return email
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(RolesKey).([]string)
	return roles
}
