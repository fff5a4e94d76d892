package mq

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"

	"github.com/yeisme/tweetfreq/pkg/configs"
)

const defaultDrainTimeout = 30 * time.Second

// init 注册 NATS 工厂.
func init() {
	RegisterFactory(configs.MQTypeNATS, natsFactory)
}

// buildNatsOptions 构建 NATS 连接选项.
func buildNatsOptions(cfg *configs.MQConfig) []nc.Option {
	opts := []nc.Option{
		nc.Name(cfg.Common.ClientID),
		nc.MaxReconnects(cfg.Common.MaxReconnects),
		nc.ReconnectWait(cfg.Common.GetReconnectWait()),
		nc.DrainTimeout(defaultDrainTimeout),
		nc.RetryOnFailedConnect(true),
	}

	if cfg.Common.User != "" {
		opts = append(opts, nc.UserInfo(cfg.Common.User, cfg.Common.Password))
	}

	return opts
}

// buildJetStreamConfig 构建 JetStream 配置.
func buildJetStreamConfig(cfg *configs.MQConfig) nats.JetStreamConfig {
	n := cfg.NATS

	jsCfg := nats.JetStreamConfig{Disabled: !n.JetStreamEnabled}
	if !n.JetStreamEnabled {
		return jsCfg
	}

	jsCfg.AutoProvision = n.AutoProvision
	jsCfg.TrackMsgId = n.TrackMsgID
	jsCfg.AckAsync = n.AckAsync
	jsCfg.DurablePrefix = n.DurablePrefix
	jsCfg.SubscribeOptions = []nc.SubOpt{
		nc.AckWait(time.Duration(n.ConsumerAckWait) * time.Second),
		nc.MaxDeliver(n.ConsumerMaxDeliver),
		nc.DeliverAll(),
		nc.AckExplicit(),
	}

	return jsCfg
}

// natsFactory 创建 NATS Publisher & Subscriber.
// 多个 worker 使用同一 QueueGroupPrefix，同一任务只会投递给其中一个.
func natsFactory(
	_ context.Context,
	cfg *configs.MQConfig,
	logger watermill.LoggerAdapter) (
	message.Publisher, message.Subscriber, error) {
	opts := buildNatsOptions(cfg)
	jsCfg := buildJetStreamConfig(cfg)
	marshaler := &nats.NATSMarshaler{}
	subjects := nats.SubjectCalculator(func(queueGroupPrefix, topic string) *nats.SubjectDetail {
		return nats.DefaultSubjectCalculator(queueGroupPrefix, cfg.NATS.SubjectPrefix+topic)
	})

	pub, err := nats.NewPublisher(nats.PublisherConfig{
		URL:               cfg.Common.URL,
		NatsOptions:       opts,
		JetStream:         jsCfg,
		Marshaler:         marshaler,
		SubjectCalculator: subjects,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	sub, err := nats.NewSubscriber(nats.SubscriberConfig{
		URL:               cfg.Common.URL,
		NatsOptions:       opts,
		JetStream:         jsCfg,
		Unmarshaler:       marshaler,
		QueueGroupPrefix:  cfg.Common.ConsumerGroup,
		SubjectCalculator: subjects,
		AckWaitTimeout:    time.Duration(cfg.NATS.ConsumerAckWait) * time.Second,
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, nil, err
	}

	return pub, sub, nil
}
