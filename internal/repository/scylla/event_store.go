package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"github.com/acme/inbound-call-desk/internal/repository"
)

// EventStore appends observed routing notifications to Scylla. Partitioned
// by day so the log can be expired per bucket.
type EventStore struct {
	session *gocql.Session
}

// NewEventStore creates a new event store.
func NewEventStore(session *gocql.Session) *EventStore {
	return &EventStore{session: session}
}

// Append inserts one lifecycle event. Duplicate deliveries produce duplicate
// rows, which is acceptable for an observability log.
func (s *EventStore) Append(ctx context.Context, record repository.LifecycleEventRecord) error {
	if err := s.session.Query(`INSERT INTO lifecycle_events (bucket, event_id, event_kind, task_sid, task_status, queue_sid, queue_name, worker_sid, reservation_sid, attributes, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bucketDate(record.ReceivedAt), uuid.New().String(), record.EventKind, record.TaskSID, record.TaskStatus,
		record.QueueSID, record.QueueName, record.WorkerSID, record.ReservationSID, record.Attributes, record.ReceivedAt,
	).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("event store: insert lifecycle_events: %w", err)
	}
	return nil
}

func bucketDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
