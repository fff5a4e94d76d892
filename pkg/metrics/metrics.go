// Package metrics 提供 Prometheus 监控指标.
//
// Example:
//
//	import "github.com/yeisme/tweetfreq/pkg/metrics"
//
//	if err := metrics.InitMetrics(cfg.Metrics); err != nil {
//		log.Fatal(err)
//	}
//
//	metrics.RequestCounter.WithLabelValues("GET", "/u/:name.json").Inc()
//	metrics.JobCounter.WithLabelValues("done").Inc()
package metrics

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/tweetfreq/pkg/configs"
)

// 全局指标变量.
var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// JobCounter 统计任务结果计数，outcome 为最终状态记录的类别.
	JobCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tweetfreq_jobs_total",
			Help: "Completed load jobs by outcome",
		},
		[]string{"outcome"},
	)

	// JobDuration 统计任务耗时.
	JobDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tweetfreq_job_duration_seconds",
			Help:    "Load job duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	// TwitterCalls Twitter API 调用计数.
	TwitterCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tweetfreq_twitter_calls_total",
			Help: "Twitter API calls by endpoint and status code",
		},
		[]string{"endpoint", "code"},
	)

	// TwitterRemaining 最近一次响应中的剩余调用次数.
	TwitterRemaining = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tweetfreq_twitter_rate_limit_remaining",
			Help: "Remaining user_timeline calls in the current window",
		},
	)

	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()
	initOnce sync.Once
)

// InitMetrics 初始化Metrics，重复调用只注册一次.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	var err error

	initOnce.Do(func() {
		collectorsToRegister := []prometheus.Collector{
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			RequestCounter, RequestDuration,
			JobCounter, JobDuration,
			TwitterCalls, TwitterRemaining,
		}

		for _, c := range collectorsToRegister {
			if e := registry.Register(c); e != nil {
				err = e
				return
			}
		}
	})

	return err
}

// RegisterRoutes 在 engine 上暴露 metrics 端点.
func RegisterRoutes(config configs.MetricsConfig, engine *gin.Engine) {
	if !config.Enabled {
		return
	}

	path := config.Path
	if path == "" {
		path = "/metrics"
	}

	engine.GET(path, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}
