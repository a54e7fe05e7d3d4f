package middleware

import (
	"time"

	"github.com/dfryer1193/postpage/shared/metrics"
	"github.com/gin-gonic/gin"
)

const unmatchedRoute = "unmatched"

// MetricsMiddleware records the latency and status of every request by route
// pattern, so per-post paths do not each get their own series.
func MetricsMiddleware(recorder metrics.Recorder) gin.HandlerFunc {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		recorder.ObserveHTTPRequest(route, c.Writer.Status(), time.Since(start))
	}
}
