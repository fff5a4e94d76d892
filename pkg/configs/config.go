// Package configs 管理应用程序配置，包括 KV 缓存、消息队列、归档数据库和 Twitter 客户端的配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv）并启用热重载.
//
// Example:
//
//	import "path/to/configs"
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.Server.Port)
//
// Example accessing KV config:
//
//	config := configs.GetConfig()
//	kvType := config.KV.GetKVType()
//	fmt.Println("KV Type:", kvType)
//
// Example accessing Poller config:
//
//	config := configs.GetConfig()
//	interval := config.Poller.GetInterval()
//	fmt.Println("Interval:", interval)
package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AppVersion 应用版本.
const AppVersion = "0.1.0"

// EnvPrefix 环境变量前缀，例如 TWEETFREQ_SERVER_PORT.
const EnvPrefix = "TWEETFREQ"

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		Server         ServerConfig         `mapstructure:"server"`          // ServerConfig 服务器配置，端口、调试模式等
		Log            LogConfig            `mapstructure:"log"`             // LogConfig 日志相关配置
		KV             KVConfig             `mapstructure:"kv"`              // KVConfig 状态缓存配置
		MQ             MQConfig             `mapstructure:"mq"`              // MQConfig 任务队列配置
		DB             DBConfig             `mapstructure:"db"`              // DBConfig 归档数据库配置
		S3             S3Config             `mapstructure:"s3"`              // S3Config 归档对象存储配置
		Metrics        MetricsConfig        `mapstructure:"metrics"`         // MetricsConfig 监控配置
		Tracing        TracingConfig        `mapstructure:"tracing"`         // TracingConfig 追踪配置
		RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`      // RateLimitConfig 限流配置
		CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"` // CircuitBreakerConfig Twitter 客户端熔断配置
		Twitter        TwitterConfig        `mapstructure:"twitter"`         // TwitterConfig Twitter API 配置
		Analysis       AnalysisConfig       `mapstructure:"analysis"`        // AnalysisConfig 统计任务配置
		Poller         PollerConfig         `mapstructure:"poller"`          // PollerConfig 客户端轮询配置
		Report         ReportConfig         `mapstructure:"report"`          // ReportConfig 报告渲染配置
		Archive        ArchiveConfig        `mapstructure:"archive"`         // ArchiveConfig 报告归档配置
	}
)

var (
	// globalConfig 全局配置实例.
	globalConfig AppConfig
	// appViper 全局 Viper 实例.
	appViper *viper.Viper
)

// InitConfig 加载应用程序配置，支持多种格式(yaml、json、toml、dotenv)并启用热重载.
// 找不到配置文件时使用默认值与环境变量.
func InitConfig(path string) error {
	appViper = viper.New()
	// 设置默认值
	setAllDefaults(appViper)

	// 检查path是否是文件
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		// 是文件，使用SetConfigFile，Viper会自动检测类型
		appViper.SetConfigFile(path)
	} else {
		// 是目录，设置配置名和路径
		appViper.SetConfigName("config")
		appViper.AddConfigPath(path)
		appViper.AddConfigPath(path + "/configs")

		exts := []string{"yaml", "yml", "json", "toml", "env", "dotenv"}

		for _, ext := range exts {
			cfg := filepath.Join(path, "config."+ext)
			if _, err := os.Stat(cfg); err == nil {
				appViper.SetConfigFile(cfg)

				break
			}
		}
	}

	appViper.SetEnvPrefix(EnvPrefix)
	appViper.AutomaticEnv()

	// 读取配置
	if err := appViper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 解析到全局配置
	if err := appViper.Unmarshal(&globalConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	reloadConfigs(appViper, globalConfig.Server.ReloadConfig)

	return nil
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	var (
		serverConfig   ServerConfig
		logConfig      LogConfig
		kvConfig       KVConfig
		mqConfig       MQConfig
		dbConfig       DBConfig
		s3Config       S3Config
		metricsConfig  MetricsConfig
		tracingConfig  TracingConfig
		rateLimit      RateLimitConfig
		circuitBreaker CircuitBreakerConfig
		twitterConfig  TwitterConfig
		analysisConfig AnalysisConfig
		pollerConfig   PollerConfig
		reportConfig   ReportConfig
		archiveConfig  ArchiveConfig
	)

	serverConfig.setDefaults(v)
	logConfig.setDefaults(v)
	kvConfig.setDefaults(v)
	mqConfig.setDefaults(v)
	dbConfig.setDefaults(v)
	s3Config.setDefaults(v)
	metricsConfig.setDefaults(v)
	tracingConfig.setDefaults(v)
	rateLimit.setDefaults(v)
	circuitBreaker.setDefaults(v)
	twitterConfig.setDefaults(v)
	analysisConfig.setDefaults(v)
	pollerConfig.setDefaults(v)
	reportConfig.setDefaults(v)
	archiveConfig.setDefaults(v)
}

func reloadConfigs(v *viper.Viper, isHotReload bool) {
	if !isHotReload || v.ConfigFileUsed() == "" {
		return
	}
	// 启用配置热重载
	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Println("Config file changed:", e.Name)
		fmt.Println("Reloading configuration...")

		if err := v.Unmarshal(&globalConfig); err != nil {
			fmt.Printf("Error reloading config: %v\n", err)
		}
	})
	v.WatchConfig()
}

// GetConfig 返回全局配置实例.
func GetConfig() *AppConfig {
	return &globalConfig
}

// GetViper 返回全局 Viper 实例，未初始化时为 nil.
func GetViper() *viper.Viper {
	return appViper
}

// Defaults 返回仅包含默认值的配置，不读取文件与环境变量，便于测试.
func Defaults() AppConfig {
	v := viper.New()
	setAllDefaults(v)

	var cfg AppConfig

	_ = v.Unmarshal(&cfg)

	return cfg
}

const redactedValue = "******"

// Redacted 返回隐藏了口令与密钥的配置副本，用于打印.
func (c AppConfig) Redacted() AppConfig {
	mask := func(s *string) {
		if *s != "" {
			*s = redactedValue
		}
	}

	mask(&c.KV.Redis.Password)
	mask(&c.KV.NATS.Password)
	mask(&c.MQ.Common.Password)
	mask(&c.MQ.Redis.Password)
	mask(&c.DB.Password)
	mask(&c.DB.DSN)
	mask(&c.S3.SecretAccessKey)
	mask(&c.Twitter.AppSecret)
	mask(&c.Twitter.BearerToken)

	return c
}
