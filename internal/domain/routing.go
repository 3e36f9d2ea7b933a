package domain

import (
	"fmt"
	"time"
)

// TaskStatus enumerates assignment states of a routing task. Tasks are owned
// by the external queueing engine; this service only observes them.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusReserved  TaskStatus = "reserved"
	TaskStatusAccepted  TaskStatus = "accepted"
	TaskStatusCanceled  TaskStatus = "canceled"
	TaskStatusCompleted TaskStatus = "completed"
)

// IsTerminal reports whether the task can no longer be routed.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusAccepted, TaskStatusCanceled, TaskStatusCompleted:
		return true
	}
	return false
}

// ReservationStatus enumerates states of a task offer to a worker.
type ReservationStatus string

const (
	ReservationStatusCreated  ReservationStatus = "created"
	ReservationStatusAccepted ReservationStatus = "accepted"
	ReservationStatusRejected ReservationStatus = "rejected"
	ReservationStatusTimeout  ReservationStatus = "timeout"
)

// Activity classifies a worker's current availability.
type Activity string

const (
	ActivityAvailable   Activity = "available"
	ActivityUnavailable Activity = "unavailable"
	ActivityOffline     Activity = "offline"
)

// ParseActivity validates a raw activity value.
func ParseActivity(raw string) (Activity, error) {
	switch Activity(raw) {
	case ActivityAvailable, ActivityUnavailable, ActivityOffline:
		return Activity(raw), nil
	}
	return "", fmt.Errorf("unknown activity %q", raw)
}

// Worker is an agent identity capable of accepting reservations.
type Worker struct {
	SID          string
	FriendlyName string
	ContactURI   string
	Role         string
	// SimulRing disables schedule-driven forced logout for this worker.
	// Read-only in this service.
	SimulRing bool
	Activity  Activity
	UpdatedAt time.Time
}

// Task mirrors the external engine's routing unit for one call.
type Task struct {
	SID        string
	QueueSID   string
	QueueName  string
	Attributes string // JSON attribute bag as delivered by the engine
	Status     TaskStatus
}

// Reservation mirrors an offer pairing one task with one worker.
type Reservation struct {
	SID       string
	TaskSID   string
	WorkerSID string
	Status    ReservationStatus
}

// PresenceEvent is the unit broadcast to presence subscribers. It is not
// persisted beyond the current state.
type PresenceEvent struct {
	WorkerSID  string
	Activity   Activity
	OccurredAt time.Time
}

// VoicemailRecord captures one completed record-and-transcribe flow.
type VoicemailRecord struct {
	From                string
	RecordingURL        string
	TranscriptionText   string
	TranscriptionStatus string
	DurationSec         int
}

// TranscriptionComplete reports whether the transcription finished cleanly.
func (r VoicemailRecord) TranscriptionComplete() bool {
	return r.TranscriptionStatus == "completed"
}
