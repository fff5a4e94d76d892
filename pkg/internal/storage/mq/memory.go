package mq

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/yeisme/tweetfreq/pkg/configs"
)

func init() {
	RegisterFactory(configs.MQTypeMemory, memoryFactory)
}

// memoryFactory 创建进程内 gochannel，Publisher 与 Subscriber 为同一实例.
// 只适合 serve 与 worker 运行在同一进程的部署.
func memoryFactory(
	_ context.Context,
	cfg *configs.MQConfig,
	logger watermill.LoggerAdapter) (
	message.Publisher, message.Subscriber, error) {
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.Memory.OutputBuffer,
		Persistent:          cfg.Memory.Persistent,
	}, logger)

	return ch, ch, nil
}
