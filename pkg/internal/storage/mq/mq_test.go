package mq_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/tweetfreq/pkg/configs"
	"github.com/yeisme/tweetfreq/pkg/internal/storage/mq"
)

func newMemoryClient(t *testing.T) *mq.Client {
	t.Helper()

	cfg := configs.Defaults().MQ
	cfg.Type = configs.MQTypeMemory

	client, err := mq.NewClient(context.Background(), &cfg, false)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestMemoryRouterDelivers(t *testing.T) {
	client := newMemoryClient(t)

	router, err := client.NewRouter()
	if err != nil {
		t.Fatalf("router: %v", err)
	}

	got := make(chan string, 1)

	router.AddConsumerHandler("test", "tf.test", client.Subscriber(), func(msg *message.Message) error {
		got <- string(msg.Payload)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = router.Run(ctx) }()

	<-router.Running()

	if err := client.Publish(ctx, "tf.test", message.NewMessage(watermill.NewUUID(), []byte("alice"))); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case v := <-got:
		if v != "alice" {
			t.Fatalf("payload = %q", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestUnsupportedMQType(t *testing.T) {
	cfg := configs.MQConfig{Type: "kafka"}
	if _, err := mq.NewClient(context.Background(), &cfg, false); err == nil {
		t.Fatal("expected error for unsupported mq type")
	}
}

func TestRegisteredTypes(t *testing.T) {
	types := mq.GetRegisteredMQTypes()
	want := map[configs.MQType]bool{configs.MQTypeMemory: true, configs.MQTypeNATS: true, configs.MQTypeRedis: true}

	for _, tp := range types {
		delete(want, tp)
	}

	if len(want) != 0 {
		t.Fatalf("missing registered types: %v", want)
	}
}
