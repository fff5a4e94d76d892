// Package middleware 提供 gin 中间件：日志、指标、追踪、限流、响应缓存与依赖注入.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/tweetfreq/pkg/internal/service"
	"github.com/yeisme/tweetfreq/pkg/scheduler"
)

type (
	servicesKey  struct{}
	schedulerKey struct{}
)

// inject 把 v 放进请求 context，供处理器通过 lookup 取出.
func inject(key, v any) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), key, v))
		c.Next()
	}
}

func lookup[T any](c *gin.Context, key any) T {
	v, _ := c.Request.Context().Value(key).(T)
	return v
}

// ServicesMiddleware 将组装好的业务服务注入到请求 context 中.
func ServicesMiddleware(svc *service.Services) gin.HandlerFunc {
	return inject(servicesKey{}, svc)
}

// GetServices 从 context 中获取业务服务.
func GetServices(c *gin.Context) *service.Services {
	return lookup[*service.Services](c, servicesKey{})
}

// SchedulerMiddleware 注入定时任务调度器；worker 进程与测试中可以为 nil.
func SchedulerMiddleware(sched *scheduler.Scheduler) gin.HandlerFunc {
	return inject(schedulerKey{}, sched)
}

// GetScheduler 从 context 中获取调度器，未注入时为 nil.
func GetScheduler(c *gin.Context) *scheduler.Scheduler {
	return lookup[*scheduler.Scheduler](c, schedulerKey{})
}
