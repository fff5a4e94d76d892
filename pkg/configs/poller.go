package configs

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultPollInterval 状态轮询间隔.
const DefaultPollInterval = 500 * time.Millisecond

// PollerConfig 客户端状态轮询配置，`tweetfreq report` 使用.
type PollerConfig struct {
	BaseURL  string        `mapstructure:"base_url"  rule:"required,url"`
	Interval time.Duration `mapstructure:"interval"`
	// RequestTimeout 单次请求超时，0 表示不限制.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// GetInterval 返回轮询间隔，未配置时使用默认值.
func (c *PollerConfig) GetInterval() time.Duration {
	if c.Interval <= 0 {
		return DefaultPollInterval
	}

	return c.Interval
}

func (c *PollerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("poller.base_url", "http://localhost:8080")
	v.SetDefault("poller.interval", DefaultPollInterval.String())
	v.SetDefault("poller.request_timeout", "10s")
}
