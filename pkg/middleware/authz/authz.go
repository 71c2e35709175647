// Package authz provides bearer token authentication and write guards.
package authz

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ponzu-dev/ponzu-back/pkg/auth"
	"github.com/ponzu-dev/ponzu-back/pkg/middleware/requestid"
	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
)

// ClaimsKey is the router context key for storing JWT claims.
const ClaimsKey = "claims"

// Authenticate requires a valid Bearer access token. Claims are stored in the router context
// under ClaimsKey and in the request context via auth.WithClaims.
func Authenticate(validator auth.JWTValidator) router.MiddlewareFunc {
	return authenticate(validator, true)
}

// OptionalAuthenticate validates a Bearer token when one is sent and lets anonymous requests
// through. A token that is present but invalid is still rejected.
func OptionalAuthenticate(validator auth.JWTValidator) router.MiddlewareFunc {
	return authenticate(validator, false)
}

func authenticate(validator auth.JWTValidator, required bool) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				if required {
					return unauthorized(c, "missing authorization header")
				}
				return next(c)
			}

			scheme, token, ok := strings.Cut(header, " ")
			token = strings.TrimSpace(token)
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				return unauthorized(c, "invalid authorization header format")
			}

			claims, err := validator.Validate(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, auth.ErrExpiredToken) {
					return unauthorized(c, "token expired")
				}
				return unauthorized(c, "invalid token")
			}

			c.Set(ClaimsKey, claims)
			c.SetRequest(c.Request().WithContext(auth.WithClaims(c.Request().Context(), claims)))
			return next(c)
		}
	}
}

// RequireAuthenticatedWrites lets safe methods through and requires claims for everything else.
// It must run after Authenticate or OptionalAuthenticate.
func RequireAuthenticatedWrites() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}
			if auth.GetClaims(c.Request().Context()) == nil {
				return unauthorized(c, "authentication required")
			}
			return next(c)
		}
	}
}

// RequireRole answers 403 unless the authenticated user holds one of roles.
func RequireRole(roles ...string) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			claims := auth.GetClaims(c.Request().Context())
			if claims == nil {
				return unauthorized(c, "authentication required")
			}
			for _, role := range roles {
				if claims.HasRole(role) {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, map[string]interface{}{
				"error":      "forbidden",
				"code":       "auth.forbidden",
				"message":    "insufficient permissions",
				"request_id": requestid.GetRequestID(c.Request().Context()),
			})
		}
	}
}

func unauthorized(c router.Context, message string) error {
	c.Response().Header().Set("WWW-Authenticate", `Bearer realm="ponzu"`)
	return c.JSON(http.StatusUnauthorized, map[string]interface{}{
		"error":      "unauthorized",
		"code":       "auth.unauthorized",
		"message":    message,
		"request_id": requestid.GetRequestID(c.Request().Context()),
	})
}
