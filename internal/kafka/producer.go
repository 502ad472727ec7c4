package kafka

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

const (
	EventMessageSent    = "message.sent"
	EventMessageRead    = "message.read"
	EventMessageDeleted = "message.deleted"
)

type Producer struct {
	writer *kafkago.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
		Async:        false,
	}
	return &Producer{writer: w}
}

type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
	At      int64  `json:"at"`
}

// Publish emits a message-lifecycle event keyed by the message id so
// downstream consumers see one message's events in order.
func (p *Producer) Publish(ctx context.Context, eventType, messageID string, payload any) error {
	b, err := json.Marshal(envelope{Type: eventType, Payload: payload, At: time.Now().Unix()})
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(messageID),
		Value: b,
		Time:  time.Now(),
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
