package repository

import (
	"context"
	"time"

	"github.com/acme/inbound-call-desk/internal/domain"
	apperrors "github.com/acme/inbound-call-desk/pkg/errors"
)

var (
	// ErrNotFound indicates the entity was not located.
	ErrNotFound = apperrors.ErrNotFound
)

// WorkerRepository manages the agent roster and its current activity.
type WorkerRepository interface {
	Get(ctx context.Context, sid string) (*domain.Worker, error)
	UpdateActivity(ctx context.Context, sid string, activity domain.Activity, at time.Time) error
	List(ctx context.Context, limit int) ([]*domain.Worker, error)
}

// LifecycleEventRecord is the storage representation of one observed
// routing notification.
type LifecycleEventRecord struct {
	EventKind      string
	TaskSID        string
	TaskStatus     string
	QueueSID       string
	QueueName      string
	WorkerSID      string
	ReservationSID string
	Attributes     string
	ReceivedAt     time.Time
}

// LifecycleEventStore appends observed routing notifications. Append-only;
// this service never reads the log back, it exists for observability.
type LifecycleEventStore interface {
	Append(ctx context.Context, record LifecycleEventRecord) error
}

// ActivityCache holds the freshest presence value per worker so other
// instances and restarts see it without a roster round trip.
type ActivityCache interface {
	Set(ctx context.Context, workerSID string, activity domain.Activity) error
	Get(ctx context.Context, workerSID string) (domain.Activity, error)
}
