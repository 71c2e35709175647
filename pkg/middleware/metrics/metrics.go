// Package metrics records Prometheus HTTP metrics per request.
package metrics

import (
	"net/http"
	"time"

	"github.com/ponzu-dev/ponzu-back/pkg/observability/metrics"
	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
)

// Metrics creates middleware that records the request duration histogram, the request counter and
// the in-flight gauge. Paths are normalized so document ids collapse into one label value.
// A handler error that left the response unwritten is counted as a 500.
func Metrics() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			metrics.IncrementInFlight()
			defer metrics.DecrementInFlight()

			start := time.Now()
			err := next(c)

			status := c.Response().Status()
			if err != nil && !c.Response().Written() {
				status = http.StatusInternalServerError
			}
			metrics.RecordHTTPMetrics(c.Request().Method, c.Request().URL.Path, status, time.Since(start))

			return err
		}
	}
}
