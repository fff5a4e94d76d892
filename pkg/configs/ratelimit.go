package configs

import "github.com/spf13/viper"

// RateLimitConfig HTTP 入口限流配置, 令牌桶按 Key 划分.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"   rule:"gte=0"`
	Burst   int     `mapstructure:"burst" rule:"min=0"`
	// Key: global, ip 或 header:<Header-Name>
	Key string `mapstructure:"key"`
	// Exempt 中的路径前缀不计入限流
	Exempt []string `mapstructure:"exempt"`
}

func (c *RateLimitConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.rps", 5.0)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("rate_limit.key", "ip")
	v.SetDefault("rate_limit.exempt", []string{"/api/v1/health/", "/metrics"})
}
