// Package router 将处理器绑定到 gin 引擎.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/tweetfreq/pkg/internal/handle"
)

// RegisterUserRoutes 注册用户状态、报告页与图表路由.
// gin 的参数占满整段路径，/u/<name>.json 由 /u/:name 按后缀分发.
func RegisterUserRoutes(r gin.IRoutes) {
	r.GET("/u/:name", handle.UserStatus)
	r.GET("/u/:name/", handle.UserPage)
	r.GET("/u/:name/chart.png", handle.UserChartPNG)
	r.GET("/u/:name/chart.json", handle.UserChartJSON)
}

// RegisterPageRoutes 注册首页与说明页.
func RegisterPageRoutes(r gin.IRoutes) {
	r.GET("/", handle.IndexPage)
	r.POST("/", handle.LookupUser)
	r.GET("/about/", handle.AboutPage)
}
