// Package mq 提供基于 Watermill 的统一任务队列，统计任务由 Web 进程发布、worker 消费.
//
// 支持的 MQ 类型：
//   - memory（watermill gochannel，单进程）
//   - nats（watermill-nats，可选 JetStream）
//   - redis（Redis Stream + 消费组）
//
// 使用示例：
//
//	client, err := mq.New(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Publish(ctx, queue.TopicUserLoadRequested, msg)
//
//	router, _ := client.NewRouter()
//	router.AddConsumerHandler("load", queue.TopicUserLoadRequested, client.Subscriber(), handler)
//	go router.Run(ctx)
package mq

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/rs/zerolog"

	"github.com/yeisme/tweetfreq/pkg/configs"
	nlog "github.com/yeisme/tweetfreq/pkg/log"
	tfmetrics "github.com/yeisme/tweetfreq/pkg/metrics"
)

// Factory 定义创建 Publisher + Subscriber 的工厂函数.
type Factory func(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error)

var factories = map[configs.MQType]Factory{}

// RegisterFactory 注册指定 MQType 的工厂.
func RegisterFactory(t configs.MQType, f Factory) {
	factories[t] = f
}

// GetRegisteredMQTypes 返回已注册的 MQ 类型列表.
func GetRegisteredMQTypes() []configs.MQType {
	types := make([]configs.MQType, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// Client 封装 watermill Publisher 与 Subscriber.
type Client struct {
	Type       configs.MQType
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     watermill.LoggerAdapter
	metrics    *metrics.PrometheusMetricsBuilder

	mu      sync.Mutex
	routers []*message.Router
}

// Publish 发布消息.
func (c *Client) Publish(_ context.Context, topic string, msgs ...*message.Message) error {
	if c == nil || c.publisher == nil {
		return errors.New("mq publisher not initialized")
	}

	return c.publisher.Publish(topic, msgs...)
}

// Subscribe 订阅主题，返回消息通道.
func (c *Client) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if c == nil || c.subscriber == nil {
		return nil, errors.New("mq subscriber not initialized")
	}

	return c.subscriber.Subscribe(ctx, topic)
}

// Publisher 返回底层 Publisher，供 queue 包的强类型发布函数使用.
func (c *Client) Publisher() message.Publisher {
	return c.publisher
}

// Subscriber 返回底层 Subscriber，供 router 注册 handler 使用.
func (c *Client) Subscriber() message.Subscriber {
	return c.subscriber
}

// Logger 返回 watermill 日志适配器.
func (c *Client) Logger() watermill.LoggerAdapter {
	return c.logger
}

// NewRouter 创建带恢复、重试与（可选）指标的 router，Close 时一并关闭.
func (c *Client) NewRouter() (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, c.logger)
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}

	router.AddMiddleware(
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      2,
			InitialInterval: 200 * time.Millisecond,
			Logger:          c.logger,
		}.Middleware,
	)

	if c.metrics != nil {
		c.metrics.AddPrometheusRouterMetrics(router)
	}

	c.mu.Lock()
	c.routers = append(c.routers, router)
	c.mu.Unlock()

	return router, nil
}

// Close 关闭资源.
func (c *Client) Close() error {
	var errs []error

	c.mu.Lock()
	routers := c.routers
	c.routers = nil
	c.mu.Unlock()

	for _, r := range routers {
		if e := r.Close(); e != nil {
			errs = append(errs, e)
		}
	}

	if c.publisher != nil {
		if e := c.publisher.Close(); e != nil {
			errs = append(errs, e)
		}
	}

	// gochannel 的 publisher 与 subscriber 是同一个实例
	if c.subscriber != nil && any(c.subscriber) != any(c.publisher) {
		if e := c.subscriber.Close(); e != nil {
			errs = append(errs, e)
		}
	}

	return errors.Join(errs...)
}

// NewClient 根据配置创建 MQ 客户端.
func NewClient(ctx context.Context, cfg *configs.MQConfig, metricsEnabled bool) (*Client, error) {
	factory, ok := factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported mq type: %s", cfg.Type)
	}

	logger := NewLogger(nlog.Logger())

	pub, sub, err := factory(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init mq (%s): %w", cfg.Type, err)
	}

	client := &Client{Type: cfg.Type, publisher: pub, subscriber: sub, logger: logger}

	if metricsEnabled {
		builder := metrics.NewPrometheusMetricsBuilder(tfmetrics.GetRegistry(), "tweetfreq", "mq")
		client.metrics = &builder

		if client.publisher, err = builder.DecoratePublisher(pub); err != nil {
			return nil, fmt.Errorf("decorate publisher with metrics: %w", err)
		}

		if client.subscriber, err = builder.DecorateSubscriber(sub); err != nil {
			return nil, fmt.Errorf("decorate subscriber with metrics: %w", err)
		}
	}

	nlog.Logger().Info().Str("type", string(cfg.Type)).Msg("MQ 客户端已初始化")

	return client, nil
}

var (
	mqOnce sync.Once
	mqInst *Client
	mqErr  error
)

// New 使用全局配置初始化消息队列（单例）.
func New(ctx context.Context) (*Client, error) {
	mqOnce.Do(func() {
		cfg := configs.GetConfig()
		mqInst, mqErr = NewClient(ctx, &cfg.MQ, cfg.Metrics.Enabled)
	})

	return mqInst, mqErr
}

// NewLogger 将 zerolog 包装为 watermill.LoggerAdapter.
func NewLogger(l *zerolog.Logger) watermill.LoggerAdapter {
	return &zerologAdapter{l: l}
}
