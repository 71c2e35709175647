// Package requestid assigns every request a correlation id.
package requestid

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/ponzu-dev/ponzu-back/pkg/middleware"
	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
)

// RequestIDHeader is the HTTP header name for request ID.
const RequestIDHeader = "X-Request-ID"

// maxInboundLength bounds client supplied ids so they cannot bloat logs.
const maxInboundLength = 128

// RequestID creates middleware that generates or extracts request IDs.
// An inbound X-Request-ID is kept when it is short and printable, otherwise a UUID is generated.
// The id is echoed in the response header and stored in both the router and request contexts.
func RequestID() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			requestID := strings.TrimSpace(c.Request().Header.Get(RequestIDHeader))
			if !acceptable(requestID) {
				requestID = uuid.New().String()
			}

			c.Set(string(middleware.RequestIDKey), requestID)
			c.Response().Header().Set(RequestIDHeader, requestID)

			ctx := context.WithValue(c.Request().Context(), middleware.RequestIDKey, requestID)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

func acceptable(id string) bool {
	if id == "" || len(id) > maxInboundLength {
		return false
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return false
		}
	}
	return true
}

// GetRequestID extracts the request ID from a context.
// Returns empty string if no request ID is found.
func GetRequestID(ctx context.Context) string {
	return middleware.RequestIDFromContext(ctx)
}
