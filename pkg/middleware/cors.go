package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/tweetfreq/pkg/configs"
)

// CORSMiddleware 允许任意来源读取状态与报告, 只开放只读方法和查询表单的 POST.
func CORSMiddleware(cfg configs.ServerConfig) gin.HandlerFunc {
	config := cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "If-None-Match", "X-Cache-Bypass"},
		ExposeHeaders:   []string{"ETag", "Age", "X-Cache", "Retry-After"},
		MaxAge:          12 * time.Hour,
	}

	if cfg.Debug {
		config.AllowHeaders = append(config.AllowHeaders, "X-Request-Id")
		config.MaxAge = time.Minute
	}

	return cors.New(config)
}
