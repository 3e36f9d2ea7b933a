package lifecycle

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/acme/inbound-call-desk/internal/metrics"
	"github.com/acme/inbound-call-desk/internal/repository"
	"github.com/acme/inbound-call-desk/pkg/logger"
)

// Redirector is the voicemail fallback entry point the handler delegates to.
type Redirector interface {
	RedirectToVoicemail(ctx context.Context, taskSID, attrsJSON, workspaceSID, callbackBase string) error
}

// Handler classifies routing notifications and dispatches them. Every kind
// is recorded for observability; only entry into the voicemail queue mutates
// anything, and that mutation is idempotent because the upstream delivery is
// at-least-once.
type Handler struct {
	voicemail          Redirector
	events             repository.LifecycleEventStore
	voicemailQueueName string
	workspaceSID       string
	log                *logger.Logger

	dispatch map[EventKind]func(ctx context.Context, event Event, callbackBase string) error
}

// NewHandler builds the lifecycle handler. events may be nil when no event
// store is configured.
func NewHandler(voicemail Redirector, events repository.LifecycleEventStore, voicemailQueueName, workspaceSID string, log *logger.Logger) *Handler {
	h := &Handler{
		voicemail:          voicemail,
		events:             events,
		voicemailQueueName: voicemailQueueName,
		workspaceSID:       workspaceSID,
		log:                log,
	}
	h.dispatch = map[EventKind]func(ctx context.Context, event Event, callbackBase string) error{
		KindTaskQueueEntered: h.handleQueueEntered,
	}
	return h
}

// Handle processes one classified notification. callbackBase is the scheme
// and host serving the current request, used to build redirect URLs that
// point back at this environment.
func (h *Handler) Handle(ctx context.Context, event Event, callbackBase string) error {
	tracer := otel.Tracer("calldesk.lifecycle")
	sctx, span := tracer.Start(ctx, "lifecycle.handle", trace.WithAttributes(
		attribute.String("event.kind", string(event.Kind)),
		attribute.String("task.sid", event.TaskSID),
		attribute.String("queue.name", event.QueueName),
	))
	defer span.End()

	metrics.LifecycleEventsTotal.WithLabelValues(string(event.Kind)).Inc()
	h.record(sctx, event)

	fn, ok := h.dispatch[event.Kind]
	if !ok {
		if reservation, ok := event.Reservation(); ok {
			h.log.Debug("lifecycle: reservation update",
				zap.String("reservation_sid", reservation.SID),
				zap.String("task_sid", reservation.TaskSID),
				zap.String("worker_sid", reservation.WorkerSID),
				zap.String("status", string(reservation.Status)),
			)
		} else if task := event.Task(); task.Status.IsTerminal() {
			h.log.Info("lifecycle: task reached terminal state",
				zap.String("task_sid", task.SID),
				zap.String("status", string(task.Status)),
				zap.String("reason", event.CanceledReason),
			)
		} else {
			h.log.Debug("lifecycle: recorded event",
				zap.String("kind", string(event.Kind)),
				zap.String("raw_type", event.RawType),
				zap.String("task_sid", event.TaskSID),
			)
		}
		return nil
	}

	if err := fn(sctx, event, callbackBase); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (h *Handler) handleQueueEntered(ctx context.Context, event Event, callbackBase string) error {
	if event.QueueName != h.voicemailQueueName {
		h.log.Debug("lifecycle: task entered queue",
			zap.String("task_sid", event.TaskSID),
			zap.String("queue", event.QueueName),
		)
		return nil
	}

	workspaceSID := event.WorkspaceSID
	if workspaceSID == "" {
		workspaceSID = h.workspaceSID
	}

	return h.voicemail.RedirectToVoicemail(ctx, event.TaskSID, event.TaskAttributes, workspaceSID, callbackBase)
}

// record appends the event to the observability log. Append failures are
// logged and swallowed: losing a log row must not fail the webhook and
// trigger redelivery.
func (h *Handler) record(ctx context.Context, event Event) {
	if h.events == nil {
		return
	}
	err := h.events.Append(ctx, repository.LifecycleEventRecord{
		EventKind:      event.RawType,
		TaskSID:        event.TaskSID,
		TaskStatus:     string(event.TaskStatus()),
		QueueSID:       event.QueueSID,
		QueueName:      event.QueueName,
		WorkerSID:      event.WorkerSID,
		ReservationSID: event.ReservationSID,
		Attributes:     event.TaskAttributes,
		ReceivedAt:     time.Now().UTC(),
	})
	if err != nil {
		h.log.Warn("lifecycle: event store append failed",
			zap.String("task_sid", event.TaskSID), zap.Error(err))
	}
}
