package handle

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/tweetfreq/pkg/context"
	"github.com/yeisme/tweetfreq/pkg/internal/types"
	"github.com/yeisme/tweetfreq/pkg/log"
	"github.com/yeisme/tweetfreq/pkg/middleware"
)

const (
	healthTimeout = 2 * time.Second
	healthProbe   = "health.probe"
)

func healthy(c *gin.Context, component string, err error) {
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, types.HealthResponse{Component: component, Status: "unhealthy", Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, types.HealthResponse{Component: component, Status: "ok"})
}

func unavailable(c *gin.Context, component, reason string) {
	c.JSON(http.StatusServiceUnavailable, types.HealthResponse{Component: component, Status: "unhealthy", Error: reason})
}

// HealthKV 状态存储健康检查.
//
//	@Summary	KV 健康检查
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	types.HealthResponse
//	@Failure	503	{object}	types.HealthResponse
//	@Router		/api/v1/health/kv [get]
func HealthKV(c *gin.Context) {
	kvc := ctxPkg.GetKVClient(c.Request.Context())
	if kvc == nil {
		unavailable(c, "kv", "kv client not initialized")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	_, err := kvc.Exists(ctx, healthProbe)
	healthy(c, "kv", err)
}

// HealthMQ 消息队列健康检查.
//
//	@Summary	MQ 健康检查
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	types.HealthResponse
//	@Failure	503	{object}	types.HealthResponse
//	@Router		/api/v1/health/mq [get]
func HealthMQ(c *gin.Context) {
	// publisher 与 subscriber 在 NewClient 中创建，判空即可
	if ctxPkg.GetMQClient(c.Request.Context()) == nil {
		unavailable(c, "mq", "mq client not initialized")
		return
	}

	healthy(c, "mq", nil)
}

// HealthDB 归档数据库健康检查.
//
//	@Summary	DB 健康检查
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	types.HealthResponse
//	@Failure	503	{object}	types.HealthResponse
//	@Router		/api/v1/health/db [get]
func HealthDB(c *gin.Context) {
	dbc := ctxPkg.GetDBClient(c.Request.Context())
	if dbc == nil {
		unavailable(c, "db", "archive disabled")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	healthy(c, "db", dbc.HealthCheck(ctx))
}

// HealthS3 快照存储健康检查.
//
//	@Summary	S3 健康检查
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	types.HealthResponse
//	@Failure	503	{object}	types.HealthResponse
//	@Router		/api/v1/health/s3 [get]
func HealthS3(c *gin.Context) {
	s3c := ctxPkg.GetS3Client(c.Request.Context())
	if s3c == nil {
		unavailable(c, "s3", "s3 disabled")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	healthy(c, "s3", s3c.HealthCheck(ctx))
}

// SchedulerJobs 返回所有定时任务信息.
//
//	@Summary	定时任务列表
//	@Tags		scheduler
//	@Produce	json
//	@Success	200	{object}	types.JobsResponse
//	@Failure	503	{object}	map[string]string
//	@Router		/api/v1/scheduler/jobs [get]
func SchedulerJobs(c *gin.Context) {
	sched := middleware.GetScheduler(c)
	if sched == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler not running"})
		return
	}

	c.JSON(http.StatusOK, types.JobsResponse{Jobs: sched.GetJobInfos()})
}

// SchedulerRunJob 立即执行一次指定任务.
//
//	@Summary	立即执行任务
//	@Tags		scheduler
//	@Produce	json
//	@Param		name	path		string	true	"任务名称"
//	@Success	202		{object}	map[string]string
//	@Failure	404		{object}	map[string]string
//	@Router		/api/v1/scheduler/jobs/{name}/run [post]
func SchedulerRunJob(c *gin.Context) {
	sched := middleware.GetScheduler(c)
	if sched == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler not running"})
		return
	}

	name := c.Param("name")
	if _, err := sched.GetJobInfoByName(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	if err := sched.RunNow(name); err != nil {
		log.Logger().Error().Err(err).Str("job", name).Msg("Failed to run job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "job triggered", "job": name})
}

// TwitterLimits 已记录的 Twitter 限流信息.
//
//	@Summary	Twitter 限流
//	@Tags		twitter
//	@Produce	json
//	@Success	200	{object}	types.RateLimitsResponse
//	@Failure	500	{object}	map[string]string
//	@Router		/api/v1/twitter/limits [get]
func TwitterLimits(c *gin.Context) {
	svc, ok := services(c)
	if !ok {
		return
	}

	limits, err := svc.Twitter.Limits(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, types.RateLimitsResponse{Limits: limits})
}
