// Package requestsize caps request body sizes.
package requestsize

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ponzu-dev/ponzu-back/pkg/middleware/requestid"
	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
)

// DefaultMaxBytes bounds create and update payloads.
const DefaultMaxBytes int64 = 1 << 20

// Middleware enforces a maximum request body size in bytes.
// A declared Content-Length over the limit is rejected up front; otherwise the body is wrapped
// in http.MaxBytesReader and handlers see *http.MaxBytesError once they read past the limit.
// A non-positive maxBytes disables the middleware.
func Middleware(maxBytes int64) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			req := c.Request()
			if maxBytes <= 0 || req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}
			if req.ContentLength > maxBytes {
				return PayloadTooLarge(c, maxBytes)
			}

			req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBytes)
			c.SetRequest(req)

			err := next(c)
			var tooLarge *http.MaxBytesError
			if err != nil && errors.As(err, &tooLarge) && !c.Response().Written() {
				return PayloadTooLarge(c, tooLarge.Limit)
			}
			return err
		}
	}
}

// PayloadTooLarge writes the 413 response.
func PayloadTooLarge(c router.Context, maxBytes int64) error {
	return c.JSON(http.StatusRequestEntityTooLarge, map[string]interface{}{
		"error":      "request_too_large",
		"code":       "request.too_large",
		"message":    fmt.Sprintf("request body exceeds maximum allowed size of %d bytes", maxBytes),
		"request_id": requestid.GetRequestID(c.Request().Context()),
		"details":    map[string]interface{}{"max_size": maxBytes},
	})
}
