package publishers

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSender writes samples to a Kafka topic, partitioned by key.
type KafkaSender struct {
	writer kafkaMessageWriter
}

// NewKafkaSender creates a synchronous writer for topic.
func NewKafkaSender(brokers []string, topic string) *KafkaSender {
	return &KafkaSender{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}}
}

// Send writes a single message.
func (k *KafkaSender) Send(ctx context.Context, key, payload []byte) error {
	return k.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: payload, Time: time.Now()})
}

// Close flushes and closes the writer.
func (k *KafkaSender) Close() error {
	return k.writer.Close()
}
