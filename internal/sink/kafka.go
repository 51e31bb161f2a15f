package sink

import (
	"context"

	"github.com/segmentio/kafka-go"

	"assetsim/internal/publish"
)

// KafkaSink writes events to a Kafka topic, one message per event.
type KafkaSink struct {
	writer *kafka.Writer
}

// NewKafkaSink creates a sink producing to the given brokers and topic.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// Send delivers one serialized event. Broker errors are transient: the
// payload itself is never the problem on this path.
func (s *KafkaSink) Send(ctx context.Context, payload []byte) error {
	err := s.writer.WriteMessages(ctx, kafka.Message{Value: payload})
	if err != nil {
		return &publish.SinkError{Retryable: true, Err: err}
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
