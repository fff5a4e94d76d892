package jobs

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yeisme/tweetfreq/pkg/log"
	"github.com/yeisme/tweetfreq/pkg/queue"
	"github.com/yeisme/tweetfreq/pkg/tracing"
	"github.com/yeisme/tweetfreq/pkg/types"
)

// Loader 执行一次用户抓取与分析，由 service.StatusService 实现.
type Loader interface {
	Load(ctx context.Context, name string) (types.StatusResponse, bool, error)
}

// RegisterWorker 在 router 上注册用户抓取请求的消费者.
func RegisterWorker(router *message.Router, sub message.Subscriber, pub message.Publisher, loader Loader) {
	router.AddConsumerHandler(HandlerUserLoad, queue.TopicUserLoadRequested, sub, NewLoadHandler(loader, pub))
}

// NewLoadHandler 返回处理 tf.user.load.requested 的 handler.
//
// 无法解析的消息直接确认丢弃；状态写入失败时返回错误交给 router 重试。
// 实际执行了抓取时发布 tf.user.loaded 或 tf.user.load.failed，pub 可为 nil.
func NewLoadHandler(loader Loader, pub message.Publisher) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		l := log.Logger().With().Str("handler", HandlerUserLoad).Str("message_uuid", msg.UUID).Logger()

		env, err := queue.ParseUserLoadRequested(msg)
		if err != nil {
			l.Error().Err(err).Msg("drop malformed load request")
			return nil
		}

		name := env.Payload.Name

		var (
			rec     types.StatusResponse
			started bool
		)

		err = tracing.Traced(msg.Context(), "user.load", func(ctx context.Context) error {
			var lerr error
			rec, started, lerr = loader.Load(ctx, name)

			return lerr
		}, attribute.String("tweetfreq.user", name), attribute.String("messaging.message.id", msg.UUID))
		if err != nil {
			return err
		}

		if !started || pub == nil {
			return nil
		}

		finished := queue.UserLoadFinished{
			Name:      name,
			RequestID: env.Payload.RequestID,
			Status:    string(rec.Status),
			Header:    rec.Header,
		}
		if rec.Data != nil {
			finished.Total = int(rec.Data.Stats.Total.Value)
		}

		if err := queue.PublishUserLoadFinished(pub, finished,
			queue.WithTraceID(env.Header.TraceID), queue.WithProducer("tweetfreq-worker")); err != nil {
			l.Warn().Err(err).Str("user", name).Msg("publish load result failed")
		}

		return nil
	}
}
