package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"voice-platform/internal/calls"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes status changes to a topic keyed by call id, so one call's
// changes stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
	now    func() time.Time
}

// NewKafkaPublisher constructs a synchronous writer for topic.
func NewKafkaPublisher(brokers []string, topic, clientID string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka: topic is required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		Transport:    &kafka.Transport{ClientID: clientID},
	}
	return &KafkaPublisher{writer: w, now: time.Now}, nil
}

func (p *KafkaPublisher) PublishStatus(ctx context.Context, ch calls.StatusChange) error {
	value, err := json.Marshal(NewStatusMessage(ch))
	if err != nil {
		return fmt.Errorf("status publisher: marshal message: %w", err)
	}
	record := kafka.Message{
		Key:   []byte(ch.CallID),
		Value: value,
		Time:  p.now().UTC(),
	}
	if err := p.writer.WriteMessages(ctx, record); err != nil {
		return fmt.Errorf("status publisher: write message: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
