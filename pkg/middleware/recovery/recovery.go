// Package recovery turns handler panics into JSON 500 responses.
package recovery

import (
	"net/http"
	"runtime/debug"

	"github.com/ponzu-dev/ponzu-back/pkg/middleware/requestid"
	"github.com/ponzu-dev/ponzu-back/pkg/observability/logger"
	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
)

// Recovery creates middleware that recovers from panics in HTTP handlers.
// The panic is logged with its stack trace; a 500 is written only when the handler has not
// started the response yet.
func Recovery(log logger.Logger) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}

				requestID := requestid.GetRequestID(c.Request().Context())
				log.Error("panic recovered",
					"request_id", requestID,
					"method", c.Request().Method,
					"path", c.Request().URL.Path,
					"panic", r,
					"stack", string(debug.Stack()),
				)

				if c.Response().Written() {
					return
				}
				err = c.JSON(http.StatusInternalServerError, map[string]interface{}{
					"error":      "internal_server_error",
					"message":    "an unexpected error occurred",
					"request_id": requestID,
				})
			}()

			return next(c)
		}
	}
}
