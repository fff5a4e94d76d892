package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/tweetfreq/pkg/metrics"
)

// PrometheusMiddleware Prometheus监控中间件.
// endpoint 使用路由模板（如 /u/:name），避免用户名进入标签.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		metrics.RequestCounter.WithLabelValues(c.Request.Method, endpoint).Inc()
		metrics.RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}
