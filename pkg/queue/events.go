package queue

import "github.com/ThreeDotsLabs/watermill/message"

// PublishUserLoadRequested 发布 tf.user.load.requested 事件，由 worker 消费后抓取时间线.
func PublishUserLoadRequested(pub message.Publisher, payload UserLoadRequested, opts ...HeaderOption) error {
	msg, err := NewWatermillMessage(TopicUserLoadRequested, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicUserLoadRequested, msg)
}

// ParseUserLoadRequested 将 Watermill 消息解析为强类型 Envelope.
func ParseUserLoadRequested(msg *message.Message) (Message[UserLoadRequested], error) {
	return ParseWatermillMessage[UserLoadRequested](msg)
}

// PublishUserLoadFinished 根据状态发布 tf.user.loaded 或 tf.user.load.failed.
func PublishUserLoadFinished(pub message.Publisher, payload UserLoadFinished, opts ...HeaderOption) error {
	topic := TopicUserLoaded
	if payload.Status != "done" {
		topic = TopicUserLoadFailed
	}

	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(topic, msg)
}
