package configs

import (
	"time"

	"github.com/spf13/viper"
)

// MetricsConfig Metrics相关配置.
type MetricsConfig struct {
	Enabled         bool              `mapstructure:"enabled"`          // 是否启用Metrics
	ServiceName     string            `mapstructure:"service_name"`     // 服务名称
	ServiceVersion  string            `mapstructure:"service_version"`  // 服务版本
	Path            string            `mapstructure:"path"`             // 暴露路径，默认 /metrics
	CollectInterval time.Duration     `mapstructure:"collect_interval"` // gorm 指标刷新间隔
	Labels          map[string]string `mapstructure:"labels"`           // 默认标签
}

// setDefaults 设置Metrics配置的默认值.
func (c *MetricsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.service_name", "tweetfreq")
	v.SetDefault("metrics.service_version", AppVersion)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.collect_interval", "15s")
	v.SetDefault("metrics.labels", map[string]string{
		"service": "tweetfreq",
		"version": AppVersion,
	})
}
