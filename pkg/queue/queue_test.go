package queue

import (
	"context"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/trace"
)

type recordingPublisher struct {
	topics []string
	msgs   []*message.Message
}

func (p *recordingPublisher) Publish(topic string, msgs ...*message.Message) error {
	for _, m := range msgs {
		p.topics = append(p.topics, topic)
		p.msgs = append(p.msgs, m)
	}

	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestUserLoadRequestedRoundTrip(t *testing.T) {
	pub := &recordingPublisher{}
	payload := UserLoadRequested{Name: "jack", RequestID: "01HZX3J9QK6Q2T5Y3W8M1N0P7R"}

	if err := PublishUserLoadRequested(pub, payload, WithProducer("tweetfreq"), WithTraceID("t-1")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(pub.msgs) != 1 || pub.topics[0] != TopicUserLoadRequested {
		t.Fatalf("unexpected publish: %v", pub.topics)
	}

	msg := pub.msgs[0]
	if msg.UUID != payload.RequestID {
		t.Errorf("message id = %q, want request id", msg.UUID)
	}

	if msg.Metadata.Get("producer") != "tweetfreq" || msg.Metadata.Get("trace_id") != "t-1" {
		t.Errorf("metadata = %v", msg.Metadata)
	}

	env, err := ParseUserLoadRequested(msg)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if env.Payload != payload {
		t.Errorf("payload = %+v", env.Payload)
	}

	if env.Header.Topic != TopicUserLoadRequested || env.Header.Version != PayloadVersionV1 {
		t.Errorf("header = %+v", env.Header)
	}
}

func TestPublishUserLoadFinishedTopic(t *testing.T) {
	cases := []struct {
		status string
		topic  string
	}{
		{"done", TopicUserLoaded},
		{"error", TopicUserLoadFailed},
	}

	for _, tc := range cases {
		pub := &recordingPublisher{}
		if err := PublishUserLoadFinished(pub, UserLoadFinished{Name: "jack", Status: tc.status}); err != nil {
			t.Fatalf("publish: %v", err)
		}

		if pub.topics[0] != tc.topic {
			t.Errorf("status %s: topic = %s, want %s", tc.status, pub.topics[0], tc.topic)
		}

		if pub.msgs[0].UUID == "" {
			t.Errorf("status %s: empty message id", tc.status)
		}
	}
}

func TestTraceIDFromSpanAndMetadata(t *testing.T) {
	tid := trace.TraceID{0x0a, 0x0b, 0x0c, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13}
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid, SpanID: trace.SpanID{1}})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	msg, err := NewWatermillMessage(TopicUserLoadRequested, UserLoadRequested{Name: "jack"}, WithSpan(ctx))
	if err != nil {
		t.Fatalf("new message: %v", err)
	}

	if got := msg.Metadata.Get(MetaTraceID); got != tid.String() {
		t.Fatalf("trace_id = %q, want %q", got, tid.String())
	}

	// 负载头没有 trace id 时取 metadata
	plain, err := NewWatermillMessage(TopicUserLoadRequested, UserLoadRequested{Name: "jack"}, WithSpan(context.Background()))
	if err != nil {
		t.Fatalf("new message: %v", err)
	}

	plain.Metadata.Set(MetaTraceID, "from-meta")

	env, err := ParseUserLoadRequested(plain)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if env.Header.TraceID != "from-meta" {
		t.Errorf("trace id = %q", env.Header.TraceID)
	}
}
