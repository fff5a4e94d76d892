package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/tweetfreq/pkg/cache"
	"github.com/yeisme/tweetfreq/pkg/internal/handle"
	"github.com/yeisme/tweetfreq/pkg/middleware"
)

const recentReportsTTL = 15 * time.Second

// RegisterReportRoutes 注册归档报告与 Twitter 运维路由，store 非空时缓存最近报告列表.
func RegisterReportRoutes(g *gin.RouterGroup, store *cache.Cache) {
	reports := g.Group("/reports")
	{
		reports.GET("/recent", middleware.ResponseCache(store, middleware.WithCacheTTL(recentReportsTTL)), handle.RecentReports)

		reports.GET("/:id", handle.ReportSnapshot)
	}

	g.GET("/twitter/limits", handle.TwitterLimits)
}
