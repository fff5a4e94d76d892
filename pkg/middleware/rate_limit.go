package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeisme/tweetfreq/pkg/configs"
)

const (
	limiterIdleTTL      = 10 * time.Minute
	limiterSweepEvery   = time.Minute
	rateLimitedMessage  = "too many requests, please slow down"
	rateLimitKeyGlobal  = "global"
	rateLimitHeaderMode = "header:"
)

// 未配置 exempt 时健康检查与指标抓取不计入限流.
var defaultRateLimitExempt = []string{"/api/v1/health/", "/metrics"}

type visitor struct {
	limiter *rate.Limiter
	seen    time.Time
}

// visitors 按键维护令牌桶, 闲置超过 limiterIdleTTL 的键被回收.
type visitors struct {
	mu        sync.Mutex
	m         map[string]*visitor
	rps       rate.Limit
	burst     int
	lastSweep time.Time
}

func (v *visitors) allow(key string, now time.Time) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if now.Sub(v.lastSweep) > limiterSweepEvery {
		for k, vis := range v.m {
			if now.Sub(vis.seen) > limiterIdleTTL {
				delete(v.m, k)
			}
		}

		v.lastSweep = now
	}

	vis, ok := v.m[key]
	if !ok {
		vis = &visitor{limiter: rate.NewLimiter(v.rps, v.burst)}
		v.m[key] = vis
	}

	vis.seen = now

	return vis.limiter.AllowN(now, 1)
}

// RateLimitMiddleware 按配置对入口请求限流.
//
// key 支持 global, ip 与 header:<name>; header 缺失时退回客户端 IP.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	mode := strings.ToLower(strings.TrimSpace(cfg.Key))
	keyOf := rateLimitKeyFunc(mode)
	v := &visitors{m: map[string]*visitor{}, rps: rate.Limit(cfg.RPS), burst: cfg.Burst}

	skip := cfg.Exempt
	if skip == nil {
		skip = defaultRateLimitExempt
	}

	return func(c *gin.Context) {
		if exempt(skip, c.Request.URL.Path) {
			c.Next()
			return
		}

		if !v.allow(keyOf(c), time.Now()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": rateLimitedMessage})

			return
		}

		c.Next()
	}
}

func rateLimitKeyFunc(mode string) func(*gin.Context) string {
	switch {
	case mode == rateLimitKeyGlobal || mode == "":
		return func(*gin.Context) string { return rateLimitKeyGlobal }
	case strings.HasPrefix(mode, rateLimitHeaderMode):
		name := strings.TrimPrefix(mode, rateLimitHeaderMode)

		return func(c *gin.Context) string {
			if k := c.GetHeader(name); k != "" {
				return "h:" + k
			}

			return clientIP(c)
		}
	default: // ip
		return clientIP
	}
}

func exempt(prefixes []string, path string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}

func clientIP(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}

	if host, _, err := net.SplitHostPort(c.Request.RemoteAddr); err == nil {
		return host
	}

	if c.Request.RemoteAddr != "" {
		return c.Request.RemoteAddr
	}

	return "unknown"
}
