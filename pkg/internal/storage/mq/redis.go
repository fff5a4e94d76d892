package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/yeisme/tweetfreq/pkg/configs"
)

const (
	redisFieldUUID     = "uuid"
	redisFieldPayload  = "payload"
	redisFieldMetadata = "metadata"

	redisReadBlock = 2 * time.Second
)

// init 注册 Redis 工厂.
func init() {
	RegisterFactory(configs.MQTypeRedis, redisFactory)
}

// RedisPublisher 基于 Redis Stream 的 Publisher.
type RedisPublisher struct {
	client *redis.Client
	maxLen int64
}

// RedisSubscriber 基于 Redis Stream 消费组的 Subscriber.
// 消息在 handler Ack 后才执行 XACK；Nack 的消息重新追加到 Stream 末尾.
type RedisSubscriber struct {
	client   *redis.Client
	group    string
	consumer string
	logger   watermill.LoggerAdapter

	mu      sync.Mutex
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// redisFactory 创建 Redis Publisher & Subscriber，两者各持有一个连接.
func redisFactory(
	ctx context.Context,
	cfg *configs.MQConfig,
	logger watermill.LoggerAdapter) (
	message.Publisher, message.Subscriber, error) {
	opts := &redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	pubClient := redis.NewClient(opts)
	if err := pubClient.Ping(ctx).Err(); err != nil {
		_ = pubClient.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	pub := &RedisPublisher{client: pubClient, maxLen: cfg.Redis.MaxLen}
	sub := &RedisSubscriber{
		client:   redis.NewClient(opts),
		group:    cfg.Common.ConsumerGroup,
		consumer: cfg.Common.ClientID + "-" + watermill.NewShortUUID(),
		logger:   logger,
		closeCh:  make(chan struct{}),
	}

	return pub, sub, nil
}

// Publish 实现 Publisher 接口.
func (p *RedisPublisher) Publish(topic string, msgs ...*message.Message) error {
	for _, msg := range msgs {
		if err := p.add(msg.Context(), topic, msg); err != nil {
			return err
		}
	}

	return nil
}

func (p *RedisPublisher) add(ctx context.Context, topic string, msg *message.Message) error {
	meta, err := sonic.Marshal(msg.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: topic,
		Values: map[string]any{
			redisFieldUUID:     msg.UUID,
			redisFieldPayload:  string(msg.Payload),
			redisFieldMetadata: string(meta),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", topic, err)
	}

	return nil
}

// Close 实现 Publisher 接口.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Subscribe 实现 Subscriber 接口.
func (s *RedisSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.New("subscriber closed")
	}

	err := s.client.XGroupCreateMkStream(ctx, topic, s.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}

	out := make(chan *message.Message)

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		defer close(out)

		s.consume(ctx, topic, out)
	}()

	return out, nil
}

func (s *RedisSubscriber) consume(ctx context.Context, topic string, out chan<- *message.Message) {
	fields := watermill.LogFields{"topic": topic, "group": s.group, "consumer": s.consumer}

	for {
		select {
		case <-s.closeCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    s.group,
			Consumer: s.consumer,
			Streams:  []string{topic, ">"},
			Count:    1,
			Block:    redisReadBlock,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}

		if err != nil {
			if ctx.Err() != nil || s.isClosed() {
				return
			}

			s.logger.Error("xreadgroup failed", err, fields)
			time.Sleep(redisReadBlock)

			continue
		}

		for _, stream := range streams {
			for _, xm := range stream.Messages {
				if !s.deliver(ctx, topic, xm, out) {
					return
				}
			}
		}
	}
}

// deliver 投递一条消息并等待 Ack/Nack，返回 false 表示订阅结束.
func (s *RedisSubscriber) deliver(ctx context.Context, topic string, xm redis.XMessage, out chan<- *message.Message) bool {
	msg := decodeRedisMessage(xm)

	msgCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	msg.SetContext(msgCtx)

	select {
	case out <- msg:
	case <-s.closeCh:
		return false
	case <-ctx.Done():
		return false
	}

	select {
	case <-msg.Acked():
		if err := s.client.XAck(ctx, topic, s.group, xm.ID).Err(); err != nil {
			s.logger.Error("xack failed", err, watermill.LogFields{"id": xm.ID})
		}
	case <-msg.Nacked():
		s.requeue(ctx, topic, msg, xm.ID)
	case <-s.closeCh:
		return false
	case <-ctx.Done():
		return false
	}

	return true
}

func (s *RedisSubscriber) requeue(ctx context.Context, topic string, msg *message.Message, id string) {
	pub := RedisPublisher{client: s.client}
	if err := pub.add(ctx, topic, msg); err != nil {
		s.logger.Error("requeue failed", err, watermill.LogFields{"id": id})
		return
	}

	_ = s.client.XAck(ctx, topic, s.group, id).Err()
}

func decodeRedisMessage(xm redis.XMessage) *message.Message {
	str := func(k string) string {
		v, _ := xm.Values[k].(string)
		return v
	}

	uuid := str(redisFieldUUID)
	if uuid == "" {
		uuid = watermill.NewUUID()
	}

	msg := message.NewMessage(uuid, []byte(str(redisFieldPayload)))
	if raw := str(redisFieldMetadata); raw != "" {
		_ = sonic.UnmarshalString(raw, &msg.Metadata)
	}

	return msg
}

func (s *RedisSubscriber) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

// Close 实现 Subscriber 接口.
func (s *RedisSubscriber) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}

	s.closed = true
	close(s.closeCh)
	s.mu.Unlock()

	err := s.client.Close()
	s.wg.Wait()

	return err
}
