package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	ctxPkg "github.com/yeisme/tweetfreq/pkg/context"
	"github.com/yeisme/tweetfreq/pkg/log"
)

// 轮询客户端会高频请求 /u/:name.json, 成功的轮询只记 debug.
const pollRoute = "/u/:name"

// GinLoggerMiddleware 使用 zerolog 记录请求日志, 带上 trace id.
func GinLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		logger := ctxPkg.WithTraceContext(c.Request.Context(), *log.Logger())

		var event *zerolog.Event

		switch {
		case status >= http.StatusInternalServerError:
			event = logger.Error()
		case status >= http.StatusBadRequest:
			event = logger.Warn()
		case route == pollRoute:
			event = logger.Debug()
		default:
			event = logger.Info()
		}

		event = event.
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.RequestURI()).
			Str("route", route).
			Int("bytes", c.Writer.Size()).
			Str("client_ip", c.ClientIP())

		if len(c.Errors) > 0 {
			event = event.Str("error", c.Errors.String())
		}

		event.Msg("http request")
	}
}
