package lifecycle

import (
	"fmt"

	"github.com/acme/inbound-call-desk/internal/domain"
	apperrors "github.com/acme/inbound-call-desk/pkg/errors"
)

// EventKind discriminates routing lifecycle notifications.
type EventKind string

const (
	KindTaskCreated         EventKind = "task.created"
	KindTaskQueueEntered    EventKind = "task-queue.entered"
	KindReservationCreated  EventKind = "reservation.created"
	KindReservationAccepted EventKind = "reservation.accepted"
	KindReservationRejected EventKind = "reservation.rejected"
	KindReservationTimeout  EventKind = "reservation.timeout"
	KindTaskCanceled        EventKind = "task.canceled"
	// KindUnknown covers event types the engine sends that this service
	// does not act on. They are recorded, never rejected, because the
	// upstream delivery is at-least-once and would redeliver on failure.
	KindUnknown EventKind = "unknown"
)

var knownKinds = map[EventKind]struct{}{
	KindTaskCreated:         {},
	KindTaskQueueEntered:    {},
	KindReservationCreated:  {},
	KindReservationAccepted: {},
	KindReservationRejected: {},
	KindReservationTimeout:  {},
	KindTaskCanceled:        {},
}

// Event is the classified form of one inbound routing notification.
type Event struct {
	Kind           EventKind
	RawType        string
	TaskSID        string
	QueueSID       string
	QueueName      string
	WorkerSID      string
	ReservationSID string
	// TaskAttributes is the engine's JSON attribute bag, passed through
	// verbatim. The voicemail path reads the call correlation id from it.
	TaskAttributes string
	WorkspaceSID   string
	CanceledReason string
}

// Task is the engine's view of the routing unit implied by this event.
func (e Event) Task() domain.Task {
	return domain.Task{
		SID:        e.TaskSID,
		QueueSID:   e.QueueSID,
		QueueName:  e.QueueName,
		Attributes: e.TaskAttributes,
		Status:     e.TaskStatus(),
	}
}

// TaskStatus classifies what the event implies about the task's assignment
// state. Events that do not move the task report the status it must already
// hold for the event to occur.
func (e Event) TaskStatus() domain.TaskStatus {
	switch e.Kind {
	case KindTaskCreated, KindTaskQueueEntered, KindReservationRejected, KindReservationTimeout:
		return domain.TaskStatusPending
	case KindReservationCreated:
		return domain.TaskStatusReserved
	case KindReservationAccepted:
		return domain.TaskStatusAccepted
	case KindTaskCanceled:
		return domain.TaskStatusCanceled
	}
	return ""
}

// Reservation returns the offer this event describes, when it carries one.
func (e Event) Reservation() (domain.Reservation, bool) {
	if e.ReservationSID == "" {
		return domain.Reservation{}, false
	}
	var status domain.ReservationStatus
	switch e.Kind {
	case KindReservationCreated:
		status = domain.ReservationStatusCreated
	case KindReservationAccepted:
		status = domain.ReservationStatusAccepted
	case KindReservationRejected:
		status = domain.ReservationStatusRejected
	case KindReservationTimeout:
		status = domain.ReservationStatusTimeout
	}
	return domain.Reservation{
		SID:       e.ReservationSID,
		TaskSID:   e.TaskSID,
		WorkerSID: e.WorkerSID,
		Status:    status,
	}, true
}

// FormValues abstracts the source of form-encoded webhook fields.
type FormValues interface {
	FormValue(key string, defaultValue ...string) string
}

// ParseForm classifies a form-encoded lifecycle notification. A missing
// EventType is the one construction-time failure; everything else is carried
// through and judged by the handler.
func ParseForm(form FormValues) (Event, error) {
	rawType := form.FormValue("EventType")
	if rawType == "" {
		return Event{}, fmt.Errorf("%w: EventType is required", apperrors.ErrValidation)
	}

	kind := EventKind(rawType)
	if _, ok := knownKinds[kind]; !ok {
		kind = KindUnknown
	}

	return Event{
		Kind:           kind,
		RawType:        rawType,
		TaskSID:        form.FormValue("TaskSid"),
		QueueSID:       form.FormValue("TaskQueueSid"),
		QueueName:      form.FormValue("TaskQueueName"),
		WorkerSID:      form.FormValue("WorkerSid"),
		ReservationSID: form.FormValue("ReservationSid"),
		TaskAttributes: form.FormValue("TaskAttributes"),
		WorkspaceSID:   form.FormValue("WorkspaceSid"),
		CanceledReason: form.FormValue("TaskCanceledReason"),
	}, nil
}
