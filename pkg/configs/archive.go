package configs

import (
	"time"

	"github.com/spf13/viper"
)

// ArchiveConfig 报告归档配置.
type ArchiveConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Retention time.Duration `mapstructure:"retention"`
	// PurgeCron 清理过期归档的 cron 表达式.
	PurgeCron string `mapstructure:"purge_cron"`
	// LimitsCron 刷新 Twitter 限流信息的 cron 表达式.
	LimitsCron  string `mapstructure:"limits_cron"`
	RecentLimit int    `mapstructure:"recent_limit" rule:"min=1,max=100"`
}

func (c *ArchiveConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("archive.enabled", true)
	v.SetDefault("archive.retention", "720h")
	v.SetDefault("archive.purge_cron", "0 * * * *")
	v.SetDefault("archive.limits_cron", "*/5 * * * *")
	v.SetDefault("archive.recent_limit", 20)
}
