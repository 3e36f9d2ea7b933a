package voicemail

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/acme/inbound-call-desk/internal/domain"
	"github.com/acme/inbound-call-desk/internal/metrics"
	"github.com/acme/inbound-call-desk/internal/notify"
	"github.com/acme/inbound-call-desk/internal/telephony"
	apperrors "github.com/acme/inbound-call-desk/pkg/errors"
	"github.com/acme/inbound-call-desk/pkg/logger"
)

// cancelReason is the fixed reason attached to voicemail task cancellations.
const cancelReason = "voicemail redirect"

// callSIDKey is the explicit correlation key the attribute bag must carry by
// the time a task reaches terminal routing.
const callSIDKey = "call_sid"

// Coordinator redirects unanswered calls into the record-and-transcribe flow
// and idempotently retires their tasks.
type Coordinator struct {
	provider   telephony.Provider
	dispatcher notify.Dispatcher
	log        *logger.Logger
}

// NewCoordinator builds the coordinator. dispatcher may be nil when no
// notification integration is configured; completions are then skipped
// silently.
func NewCoordinator(provider telephony.Provider, dispatcher notify.Dispatcher, log *logger.Logger) *Coordinator {
	return &Coordinator{provider: provider, dispatcher: dispatcher, log: log}
}

// RedirectToVoicemail points the task's live call leg at the voicemail flow
// and requests cancellation of the task. Both effects are safe to repeat:
// redirecting an already-redirected call is a no-op on the engine side, and
// an already-terminal task cancellation is treated as success because it is
// the expected outcome of racing the engine's own timeout logic.
func (c *Coordinator) RedirectToVoicemail(ctx context.Context, taskSID, attrsJSON, workspaceSID, callbackBase string) error {
	tracer := otel.Tracer("calldesk.voicemail")
	sctx, span := tracer.Start(ctx, "voicemail.redirect", trace.WithAttributes(
		attribute.String("task.sid", taskSID),
	))
	defer span.End()

	callSID := gjson.Get(attrsJSON, callSIDKey).String()
	if callSID == "" {
		// Nothing safe to redirect without the correlation id; abort
		// without raising so the webhook still acknowledges the event.
		c.log.Warn("voicemail: task attributes missing call correlation id",
			zap.String("task_sid", taskSID))
		return nil
	}

	scriptURL := ScriptURL(callbackBase, taskSID, workspaceSID)

	if err := c.provider.RedirectCall(sctx, callSID, scriptURL); err != nil {
		span.RecordError(err)
		c.log.Error("voicemail: redirect call failed",
			zap.String("task_sid", taskSID),
			zap.String("call_sid", callSID),
			zap.Error(err))
		// Still attempt the cancel; the engine may retire the task on its
		// own and a later redelivery retries the redirect.
	} else {
		metrics.VoicemailRedirectsTotal.Inc()
	}

	if err := c.provider.CancelTask(sctx, workspaceSID, taskSID, cancelReason); err != nil {
		if apperrors.Is(err, apperrors.ErrConflict) || apperrors.Is(err, apperrors.ErrNotFound) {
			c.log.Debug("voicemail: task already terminal",
				zap.String("task_sid", taskSID))
			return nil
		}
		span.RecordError(err)
		c.log.Error("voicemail: cancel task failed",
			zap.String("task_sid", taskSID), zap.Error(err))
	}

	return nil
}

// HandleCompletion converts a finished record-and-transcribe flow into a
// notification. A transcription the provider did not complete is still
// dispatched, with an explicit incomplete annotation. An unconfigured
// dispatcher skips silently; this path must never fail the callback.
func (c *Coordinator) HandleCompletion(ctx context.Context, record domain.VoicemailRecord) error {
	if c.dispatcher == nil {
		c.log.Debug("voicemail: notification dispatch not configured, skipping",
			zap.String("from", record.From))
		return nil
	}

	notification := notify.VoicemailNotification{
		ID:            uuid.New(),
		From:          record.From,
		DurationSec:   record.DurationSec,
		RecordingURL:  record.RecordingURL,
		Transcription: record.TranscriptionText,
		Incomplete:    !record.TranscriptionComplete(),
		OccurredAt:    time.Now().UTC(),
	}

	if err := c.dispatcher.Publish(ctx, notification); err != nil {
		return err
	}

	metrics.VoicemailNotificationsTotal.Inc()
	return nil
}
