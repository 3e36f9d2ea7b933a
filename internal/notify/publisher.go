package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/acme/inbound-call-desk/internal/queue"
)

// Dispatcher publishes voicemail notifications for asynchronous delivery.
type Dispatcher interface {
	Publish(ctx context.Context, msg VoicemailNotification) error
}

// Publisher writes voicemail notifications to Kafka.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher constructs a publisher for the given topic.
func NewPublisher(k *queue.Kafka, topic string) *Publisher {
	return &Publisher{writer: k.NewWriter(topic)}
}

// Publish emits a notification message to Kafka.
func (p *Publisher) Publish(ctx context.Context, msg VoicemailNotification) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notify publisher: marshal message: %w", err)
	}
	record := kafka.Message{
		Key:   msg.ID[:],
		Value: value,
		Time:  time.Now().UTC(),
	}
	if err := p.writer.WriteMessages(ctx, record); err != nil {
		return fmt.Errorf("notify publisher: write message: %w", err)
	}
	return nil
}

// Close closes the publisher.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
