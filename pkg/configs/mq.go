package configs

import (
	"time"

	"github.com/spf13/viper"
)

// MQType 消息队列类型.
type MQType string

const (
	MQTypeMemory MQType = "memory"
	MQTypeNATS   MQType = "nats"
	MQTypeRedis  MQType = "redis"

	DefaultMQURL         = "nats://localhost:4222"
	DefaultMaxReconnects = 5               // 默认最大重连次数.
	DefaultReconnectWait = 5               // 默认重连等待时间（秒）.
	DefaultMQClientID    = "tweetfreq-app" // 默认客户端ID

	DefaultConsumerAckWait    = 30 // 默认消费者确认等待时间 (秒)
	DefaultConsumerMaxDeliver = 3  // 默认消费者最大投递次数
	DefaultMemoryBuffer       = 64 // gochannel 输出缓冲
)

// MQConfig 任务队列配置，统计任务通过它从 Web 进程投递到 worker.
type MQConfig struct {
	Type   MQType         `mapstructure:"type"   rule:"oneof=memory nats redis"`
	Common MQCommonConfig `mapstructure:"common"`
	Memory MQMemoryConfig `mapstructure:"memory"`
	NATS   MQNATSConfig   `mapstructure:"nats"`
	Redis  MQRedisConfig  `mapstructure:"redis"`
}

// MQCommonConfig 通用MQ配置.
type MQCommonConfig struct {
	URL           string `mapstructure:"url"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	ClientID      string `mapstructure:"client_id"`
	MaxReconnects int    `mapstructure:"max_reconnects" rule:"min=0,max=100"`
	ReconnectWait int    `mapstructure:"reconnect_wait" rule:"min=1,max=300"`
	// ConsumerGroup 消费组，多个 worker 共享同一组时任务只会被处理一次.
	ConsumerGroup string `mapstructure:"consumer_group" rule:"required"`
}

// MQMemoryConfig 进程内 gochannel 配置.
type MQMemoryConfig struct {
	OutputBuffer int64 `mapstructure:"output_buffer" rule:"min=0"`
	Persistent   bool  `mapstructure:"persistent"`
}

// MQNATSConfig NATS MQ 配置.
type MQNATSConfig struct {
	JetStreamEnabled   bool   `mapstructure:"jetstream_enabled"`
	SubjectPrefix      string `mapstructure:"subject_prefix"`
	AutoProvision      bool   `mapstructure:"auto_provision"`
	TrackMsgID         bool   `mapstructure:"track_msg_id"`
	AckAsync           bool   `mapstructure:"ack_async"`
	DurablePrefix      string `mapstructure:"durable_prefix"`
	ConsumerAckWait    int    `mapstructure:"consumer_ack_wait"`
	ConsumerMaxDeliver int    `mapstructure:"consumer_max_deliver"`
}

// MQRedisConfig Redis Stream MQ 配置.
type MQRedisConfig struct {
	Addr     string `mapstructure:"addr"     rule:"hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"       rule:"min=0,max=15"`
	// MaxLen Stream 近似最大长度，0 表示不裁剪.
	MaxLen int64 `mapstructure:"max_len"`
}

// GetReconnectWait 返回重连等待时长.
func (c *MQCommonConfig) GetReconnectWait() time.Duration {
	return time.Duration(c.ReconnectWait) * time.Second
}

// setDefaults 设置MQ配置的默认值.
func (c *MQConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("mq.type", MQTypeMemory)

	// Common 默认值
	v.SetDefault("mq.common.url", DefaultMQURL)
	v.SetDefault("mq.common.user", "")
	v.SetDefault("mq.common.password", "")
	v.SetDefault("mq.common.client_id", DefaultMQClientID)
	v.SetDefault("mq.common.max_reconnects", DefaultMaxReconnects)
	v.SetDefault("mq.common.reconnect_wait", DefaultReconnectWait)
	v.SetDefault("mq.common.consumer_group", "tweetfreq-workers")

	v.SetDefault("mq.memory.output_buffer", DefaultMemoryBuffer)
	v.SetDefault("mq.memory.persistent", false)

	// NATS 默认值
	v.SetDefault("mq.nats.jetstream_enabled", true)
	v.SetDefault("mq.nats.subject_prefix", "tweetfreq.")
	v.SetDefault("mq.nats.auto_provision", true)
	v.SetDefault("mq.nats.track_msg_id", true)
	v.SetDefault("mq.nats.ack_async", false)
	v.SetDefault("mq.nats.durable_prefix", "tweetfreq-durable")
	v.SetDefault("mq.nats.consumer_ack_wait", DefaultConsumerAckWait)
	v.SetDefault("mq.nats.consumer_max_deliver", DefaultConsumerMaxDeliver)

	// Redis 默认值
	v.SetDefault("mq.redis.addr", "localhost:6379")
	v.SetDefault("mq.redis.password", "")
	v.SetDefault("mq.redis.db", 0)
	v.SetDefault("mq.redis.max_len", 10000)
}
