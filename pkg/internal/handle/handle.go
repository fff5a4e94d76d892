// Package handle 提供 HTTP 请求处理器：用户状态与报告页、首页、归档与运维接口.
package handle

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/tweetfreq/pkg/internal/service"
	"github.com/yeisme/tweetfreq/pkg/log"
	"github.com/yeisme/tweetfreq/pkg/middleware"
)

// services 取出注入的业务服务，缺失时直接返回 500.
func services(c *gin.Context) (*service.Services, bool) {
	svc := middleware.GetServices(c)
	if svc == nil {
		log.Logger().Error().Str("path", c.Request.URL.Path).Msg("services not initialized")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "services not initialized"})

		return nil, false
	}

	return svc, true
}

// html 先渲染到缓冲区，成功后再写出，避免半截页面.
func html(c *gin.Context, code int, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		log.Logger().Error().Err(err).Str("path", c.Request.URL.Path).Msg("Failed to render page")
		c.String(http.StatusInternalServerError, "internal error")

		return
	}

	c.Data(code, "text/html; charset=utf-8", buf.Bytes())
}
