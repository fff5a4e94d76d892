package configs

import (
	"time"

	"github.com/spf13/viper"
)

// AnalysisConfig 统计任务与状态记录的生命周期配置.
type AnalysisConfig struct {
	WordLimit    int           `mapstructure:"word_limit"    rule:"min=1"`
	CacheHours   int           `mapstructure:"cache_hours"   rule:"min=1"`
	QueueSettle  time.Duration `mapstructure:"queue_settle"`
	RetrieveTTL  time.Duration `mapstructure:"retrieve_ttl"`  // "Retrieving tweets" 记录
	ProcessTTL   time.Duration `mapstructure:"process_ttl"`   // "Processing tweets" 记录
	NotFoundTTL  time.Duration `mapstructure:"not_found_ttl"` // 用户不存在、受保护或无推文
	OverloadTTL  time.Duration `mapstructure:"overload_ttl"`  // 限流与未知错误
	LookupFlight bool          `mapstructure:"lookup_flight"` // 是否合并同名并发查询
}

// GetCacheTTL 返回完成结果的缓存时长.
func (c *AnalysisConfig) GetCacheTTL() time.Duration {
	return time.Duration(c.CacheHours) * time.Hour
}

func (c *AnalysisConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("analysis.word_limit", 300)
	v.SetDefault("analysis.cache_hours", 1)
	v.SetDefault("analysis.queue_settle", "500ms")
	v.SetDefault("analysis.retrieve_ttl", "2m")
	v.SetDefault("analysis.process_ttl", "10m")
	v.SetDefault("analysis.not_found_ttl", "5m")
	v.SetDefault("analysis.overload_ttl", "2s")
	v.SetDefault("analysis.lookup_flight", true)
}
