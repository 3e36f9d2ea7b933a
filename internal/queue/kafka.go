package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/acme/inbound-call-desk/internal/config"
)

// Kafka builds writers and readers for the notification topic.
type Kafka struct {
	cfg config.KafkaConfig
}

// NewKafka initializes the Kafka helper. A nil helper is returned when no
// brokers are configured; callers treat that as notifications disabled.
func NewKafka(cfg config.KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}
	return &Kafka{cfg: cfg}, nil
}

// NewWriter creates a synchronous writer for one topic. Acks from all
// replicas: losing a voicemail notification means a missed customer.
func (k *Kafka) NewWriter(topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(k.cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
}

// NewReader creates a consumer-group reader starting from the oldest
// uncommitted offset.
func (k *Kafka) NewReader(topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        k.cfg.Brokers,
		Topic:          topic,
		GroupID:        groupID,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: k.cfg.CommitInterval,
		MinBytes:       1e3,
		MaxBytes:       10e6,
	})
}

// Close is a no-op; writers and readers own their connections.
func (k *Kafka) Close() error {
	return nil
}

// EnsureTopics creates any of the given topics that do not exist yet.
func (k *Kafka) EnsureTopics(ctx context.Context, topics []string, partitions, replicationFactor int) error {
	dialer := &kafka.Dialer{Timeout: 10 * time.Second, ClientID: k.cfg.ClientID}
	conn, err := dialer.DialContext(ctx, "tcp", k.cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("kafka: dial: %w", err)
	}
	defer conn.Close()

	partitionsList, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("kafka: read partitions: %w", err)
	}
	existing := make(map[string]bool, len(partitionsList))
	for _, p := range partitionsList {
		existing[p.Topic] = true
	}

	for _, topic := range topics {
		if existing[topic] {
			continue
		}
		err := conn.CreateTopics(kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: replicationFactor,
		})
		if err != nil {
			return fmt.Errorf("kafka: create topic %s: %w", topic, err)
		}
	}
	return nil
}
