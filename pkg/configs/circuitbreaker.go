package configs

import (
	"time"

	"github.com/spf13/viper"
)

// CircuitBreakerConfig Twitter 客户端熔断器配置.
//
// 窗口内请求数达到 MinRequests 且失败比例不低于 FailureRate 时熔断,
// 打开 OpenTimeout 后进入半开, 半开期间最多放行 HalfOpenProbes 个请求.
type CircuitBreakerConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	FailureRate    float64       `mapstructure:"failure_rate"     rule:"gte=0,lte=1"`
	MinRequests    uint32        `mapstructure:"min_requests"`
	Window         time.Duration `mapstructure:"window"`
	OpenTimeout    time.Duration `mapstructure:"open_timeout"`
	HalfOpenProbes uint32        `mapstructure:"half_open_probes"`
}

// Trips 判断窗口统计是否应当熔断.
func (c *CircuitBreakerConfig) Trips(requests, failures uint32) bool {
	if !c.Enabled || requests == 0 || requests < c.MinRequests {
		return false
	}

	return float64(failures)/float64(requests) >= c.FailureRate
}

func (c *CircuitBreakerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("circuit_breaker.enabled", true)
	v.SetDefault("circuit_breaker.failure_rate", 0.5)
	v.SetDefault("circuit_breaker.min_requests", 5)
	v.SetDefault("circuit_breaker.window", time.Minute)
	v.SetDefault("circuit_breaker.open_timeout", 30*time.Second)
	v.SetDefault("circuit_breaker.half_open_probes", 1)
}
