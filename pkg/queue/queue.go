// Package queue 定义后台任务的消息封装.
//
// 消息体是 Message[Payload], 即 header 加 payload 的 JSON (bytedance/sonic 编码):
//
//	{"header":{"topic":"tf.user.load.requested","trace_id":"...","producer":"tweetfreq",
//	  "occurred_at":"2025-01-02T03:04:05.123456Z","version":"v1"},
//	 "payload":{"name":"jack","request_id":"01J..."}}
//
// header 字段同时写入 watermill metadata, 便于不解码负载的中间件读取.
// 消费者应忽略未知字段.
package queue

import (
	"context"
	"time"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"go.opentelemetry.io/otel/trace"
)

const PayloadVersionV1 = "v1"

// watermill metadata 键.
const (
	MetaTopic      = "topic"
	MetaTraceID    = "trace_id"
	MetaProducer   = "producer"
	MetaOccurredAt = "occurred_at"
	MetaVersion    = "version"
)

// HeaderOption 修改事件头.
type HeaderOption func(*EventHeader)

// WithTraceID 设置 TraceID.
func WithTraceID(id string) HeaderOption { return func(h *EventHeader) { h.TraceID = id } }

// WithProducer 设置 Producer.
func WithProducer(p string) HeaderOption { return func(h *EventHeader) { h.Producer = p } }

// WithSpan 取 ctx 中有效 span 的 trace id, 没有时不改动.
func WithSpan(ctx context.Context) HeaderOption {
	return func(h *EventHeader) {
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			h.TraceID = sc.TraceID().String()
		}
	}
}

// NewEventHeader 创建事件头, OccurredAt 取当前 UTC 时间.
func NewEventHeader(topic string, opts ...HeaderOption) EventHeader {
	hdr := EventHeader{Topic: topic, OccurredAt: time.Now().UTC(), Version: PayloadVersionV1}
	for _, opt := range opts {
		opt(&hdr)
	}

	return hdr
}

// NewWatermillMessage 编码消息; 负载实现 Identified 且 ID 非空时用作消息 UUID, 便于下游去重.
func NewWatermillMessage[T any](topic string, payload T, opts ...HeaderOption) (*message.Message, error) {
	env := Message[T]{Header: NewEventHeader(topic, opts...), Payload: payload}

	data, err := sonic.Marshal(env)
	if err != nil {
		return nil, err
	}

	id := watermill.NewULID()
	if v, ok := any(payload).(Identified); ok && v.MessageID() != "" {
		id = v.MessageID()
	}

	msg := message.NewMessage(id, data)
	env.Header.writeMetadata(msg.Metadata)

	return msg, nil
}

// ParseWatermillMessage 解出泛型负载, 负载头缺 trace id 时回退到 metadata.
func ParseWatermillMessage[T any](msg *message.Message) (Message[T], error) {
	var env Message[T]
	if err := sonic.Unmarshal(msg.Payload, &env); err != nil {
		return env, err
	}

	if env.Header.TraceID == "" {
		env.Header.TraceID = msg.Metadata.Get(MetaTraceID)
	}

	return env, nil
}

func (h EventHeader) writeMetadata(md message.Metadata) {
	md.Set(MetaTopic, h.Topic)
	md.Set(MetaOccurredAt, h.OccurredAt.Format(time.RFC3339Nano))
	md.Set(MetaVersion, h.Version)

	if h.TraceID != "" {
		md.Set(MetaTraceID, h.TraceID)
	}

	if h.Producer != "" {
		md.Set(MetaProducer, h.Producer)
	}
}
