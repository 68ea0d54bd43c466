package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/virachai/vision-iq/internal/observability"
)

// RequestMetrics records per-route request counts and latency. It reads
// observability.Current() per request so a disabled registry costs a nil
// check and nothing else.
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		m := observability.Current()
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		m.APIInflightInc()
		c.Next()
		m.APIInflightDec()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveAPIRequest(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start).Seconds(),
		)
	}
}
