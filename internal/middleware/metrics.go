package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mfi-loan-engine/internal/service"
)

const unmatchedRoute = "unmatched"

// Metrics records request duration per route pattern. Paths that match no
// route share one label so loan ids never become series of their own.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		status := c.Writer.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, status, time.Since(start))
	}
}
