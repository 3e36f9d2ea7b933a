package lifecycle

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acme/inbound-call-desk/internal/domain"
	"github.com/acme/inbound-call-desk/internal/repository"
	apperrors "github.com/acme/inbound-call-desk/pkg/errors"
	"github.com/acme/inbound-call-desk/pkg/logger"
)

type formMap url.Values

func (f formMap) FormValue(key string, defaultValue ...string) string {
	if v := url.Values(f).Get(key); v != "" {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

type redirectCall struct {
	taskSID      string
	attrsJSON    string
	workspaceSID string
	callbackBase string
}

type fakeRedirector struct {
	calls []redirectCall
	err   error
}

func (r *fakeRedirector) RedirectToVoicemail(_ context.Context, taskSID, attrsJSON, workspaceSID, callbackBase string) error {
	r.calls = append(r.calls, redirectCall{taskSID, attrsJSON, workspaceSID, callbackBase})
	return r.err
}

type fakeEventStore struct {
	records []repository.LifecycleEventRecord
	err     error
}

func (s *fakeEventStore) Append(_ context.Context, record repository.LifecycleEventRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestParseFormRequiresEventType(t *testing.T) {
	_, err := ParseForm(formMap{"TaskSid": {"WT01"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestParseFormClassifiesKnownKinds(t *testing.T) {
	event, err := ParseForm(formMap{
		"EventType":     {"task-queue.entered"},
		"TaskSid":       {"WT01"},
		"TaskQueueSid":  {"WQ01"},
		"TaskQueueName": {"Voicemail"},
		"WorkspaceSid":  {"WS01"},
	})
	require.NoError(t, err)
	assert.Equal(t, KindTaskQueueEntered, event.Kind)
	assert.Equal(t, "task-queue.entered", event.RawType)
	assert.Equal(t, "WT01", event.TaskSID)
	assert.Equal(t, "Voicemail", event.QueueName)
	assert.Equal(t, "WS01", event.WorkspaceSID)
}

func TestParseFormUnknownTypeIsCarried(t *testing.T) {
	event, err := ParseForm(formMap{
		"EventType": {"worker.capacity.changed"},
		"TaskSid":   {"WT01"},
	})
	require.NoError(t, err)
	assert.Equal(t, KindUnknown, event.Kind)
	assert.Equal(t, "worker.capacity.changed", event.RawType)
}

func TestEventTaskStatusClassification(t *testing.T) {
	cases := map[string]domain.TaskStatus{
		"task.created":            domain.TaskStatusPending,
		"task-queue.entered":      domain.TaskStatusPending,
		"reservation.created":     domain.TaskStatusReserved,
		"reservation.accepted":    domain.TaskStatusAccepted,
		"reservation.rejected":    domain.TaskStatusPending,
		"reservation.timeout":     domain.TaskStatusPending,
		"task.canceled":           domain.TaskStatusCanceled,
		"worker.capacity.changed": "",
	}
	for raw, want := range cases {
		event, err := ParseForm(formMap{"EventType": {raw}, "TaskSid": {"WT01"}})
		require.NoError(t, err)
		assert.Equal(t, want, event.TaskStatus(), raw)
	}

	assert.True(t, domain.TaskStatusCanceled.IsTerminal())
	assert.False(t, domain.TaskStatusReserved.IsTerminal())
}

func TestEventReservationView(t *testing.T) {
	event, err := ParseForm(formMap{
		"EventType":      {"reservation.timeout"},
		"TaskSid":        {"WT01"},
		"WorkerSid":      {"WK01"},
		"ReservationSid": {"WR01"},
	})
	require.NoError(t, err)

	reservation, ok := event.Reservation()
	require.True(t, ok)
	assert.Equal(t, "WR01", reservation.SID)
	assert.Equal(t, "WT01", reservation.TaskSID)
	assert.Equal(t, "WK01", reservation.WorkerSID)
	assert.Equal(t, domain.ReservationStatusTimeout, reservation.Status)

	noRes, err := ParseForm(formMap{"EventType": {"task.created"}, "TaskSid": {"WT01"}})
	require.NoError(t, err)
	_, ok = noRes.Reservation()
	assert.False(t, ok)
}

func TestHandleRecordsEveryKind(t *testing.T) {
	redirector := &fakeRedirector{}
	store := &fakeEventStore{}
	h := NewHandler(redirector, store, "Voicemail", "WS01", logger.NewNop())

	kinds := []string{
		"task.created",
		"reservation.created",
		"reservation.accepted",
		"reservation.timeout",
		"task.canceled",
		"worker.capacity.changed",
	}
	for _, raw := range kinds {
		event, err := ParseForm(formMap{"EventType": {raw}, "TaskSid": {"WT01"}})
		require.NoError(t, err)
		require.NoError(t, h.Handle(context.Background(), event, "https://desk.example.com"))
	}

	require.Len(t, store.records, len(kinds))
	for i, raw := range kinds {
		assert.Equal(t, raw, store.records[i].EventKind)
	}
	assert.Equal(t, string(domain.TaskStatusCanceled), store.records[4].TaskStatus)
	assert.Empty(t, redirector.calls, "only voicemail queue entry redirects")
}

func TestHandleQueueEnteredDelegatesForVoicemailQueue(t *testing.T) {
	redirector := &fakeRedirector{}
	h := NewHandler(redirector, nil, "Voicemail", "WS-default", logger.NewNop())

	event, err := ParseForm(formMap{
		"EventType":      {"task-queue.entered"},
		"TaskSid":        {"WT01"},
		"TaskQueueName":  {"Voicemail"},
		"TaskAttributes": {`{"call_sid":"CA01"}`},
		"WorkspaceSid":   {"WS01"},
	})
	require.NoError(t, err)
	require.NoError(t, h.Handle(context.Background(), event, "https://desk.example.com"))

	require.Len(t, redirector.calls, 1)
	call := redirector.calls[0]
	assert.Equal(t, "WT01", call.taskSID)
	assert.Equal(t, `{"call_sid":"CA01"}`, call.attrsJSON)
	assert.Equal(t, "WS01", call.workspaceSID)
	assert.Equal(t, "https://desk.example.com", call.callbackBase)
}

func TestHandleQueueEnteredNonVoicemailQueueSkips(t *testing.T) {
	redirector := &fakeRedirector{}
	h := NewHandler(redirector, nil, "Voicemail", "WS01", logger.NewNop())

	event, err := ParseForm(formMap{
		"EventType":     {"task-queue.entered"},
		"TaskSid":       {"WT01"},
		"TaskQueueName": {"Support"},
	})
	require.NoError(t, err)
	require.NoError(t, h.Handle(context.Background(), event, "https://desk.example.com"))
	assert.Empty(t, redirector.calls)
}

func TestHandleQueueEnteredFallsBackToConfiguredWorkspace(t *testing.T) {
	redirector := &fakeRedirector{}
	h := NewHandler(redirector, nil, "Voicemail", "WS-default", logger.NewNop())

	event, err := ParseForm(formMap{
		"EventType":     {"task-queue.entered"},
		"TaskSid":       {"WT01"},
		"TaskQueueName": {"Voicemail"},
	})
	require.NoError(t, err)
	require.NoError(t, h.Handle(context.Background(), event, "https://desk.example.com"))

	require.Len(t, redirector.calls, 1)
	assert.Equal(t, "WS-default", redirector.calls[0].workspaceSID)
}

func TestHandleSwallowsEventStoreFailure(t *testing.T) {
	redirector := &fakeRedirector{}
	store := &fakeEventStore{err: errors.New("scylla down")}
	h := NewHandler(redirector, store, "Voicemail", "WS01", logger.NewNop())

	event, err := ParseForm(formMap{
		"EventType":      {"task-queue.entered"},
		"TaskSid":        {"WT01"},
		"TaskQueueName":  {"Voicemail"},
		"TaskAttributes": {`{"call_sid":"CA01"}`},
	})
	require.NoError(t, err)
	require.NoError(t, h.Handle(context.Background(), event, "https://desk.example.com"))
	require.Len(t, redirector.calls, 1, "log row loss must not stop the redirect")
}

func TestHandlePropagatesRedirectorError(t *testing.T) {
	redirector := &fakeRedirector{err: errors.New("provider unreachable")}
	h := NewHandler(redirector, nil, "Voicemail", "WS01", logger.NewNop())

	event, err := ParseForm(formMap{
		"EventType":      {"task-queue.entered"},
		"TaskSid":        {"WT01"},
		"TaskQueueName":  {"Voicemail"},
		"TaskAttributes": {`{"call_sid":"CA01"}`},
	})
	require.NoError(t, err)
	assert.Error(t, h.Handle(context.Background(), event, "https://desk.example.com"))
}
