package actuator

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"proxigesture.klederson.com/internal/gesture"
)

// messageWriter is the subset of kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka appends gestures to a topic.
type Kafka struct {
	writer messageWriter
	source string
	now    func() time.Time
}

// NewKafka creates a publisher writing to topic on brokers.
func NewKafka(brokers []string, topic, source string) *Kafka {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	return newKafka(w, source)
}

func newKafka(w messageWriter, source string) *Kafka {
	return &Kafka{writer: w, source: source, now: time.Now}
}

func (k *Kafka) Name() string { return "kafka" }

// Actuate writes one message keyed by source.
func (k *Kafka) Actuate(ctx context.Context, g gesture.Gesture) error {
	now := k.now()
	payload, err := EncodeGesture(k.source, g, now)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(k.source),
		Value: payload,
		Time:  now,
	})
}

// Close flushes and closes the writer.
func (k *Kafka) Close() error {
	return k.writer.Close()
}
