package notify

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/acme/inbound-call-desk/internal/app"
	"github.com/acme/inbound-call-desk/internal/notify"
)

// Worker consumes voicemail notification messages and delivers them through
// the configured messaging provider.
type Worker struct {
	container *app.Container
}

// New creates a new notify worker.
func New(container *app.Container) *Worker {
	return &Worker{container: container}
}

// Run processes notification messages until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	cfg := w.container.Config
	logger := w.container.Logger

	if w.container.Kafka == nil {
		logger.Warn("notify worker: no brokers configured, nothing to consume")
		<-ctx.Done()
		return ctx.Err()
	}

	groupID := cfg.Kafka.ConsumerGroupID + "-notify"
	reader := w.container.Kafka.NewReader(cfg.Kafka.NotifyTopic, groupID)
	defer reader.Close()

	provider := w.container.Providers().Notify
	destination := cfg.Notify.Destination

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("notify worker: fetch", zap.Error(err))
			continue
		}

		var notification notify.VoicemailNotification
		if err := json.Unmarshal(msg.Value, &notification); err != nil {
			logger.Error("notify worker: unmarshal", zap.Error(err))
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		tracer := otel.Tracer("calldesk.notifyworker")
		sctx, span := tracer.Start(ctx, "notify.deliver", trace.WithAttributes(
			attribute.String("notification.id", notification.ID.String()),
			attribute.Bool("notification.incomplete", notification.Incomplete),
		))

		if err := provider.Send(sctx, destination, notification.Body()); err != nil {
			span.RecordError(err)
			logger.Error("notify worker: deliver", zap.Error(err), zap.String("from", notification.From))
		}

		if err := reader.CommitMessages(sctx, msg); err != nil {
			span.RecordError(err)
			logger.Error("notify worker: commit", zap.Error(err))
		}
		span.End()
	}
}
