package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/acme/inbound-call-desk/pkg/logger"
)

// Provider delivers a rendered notification to its destination (SMS, chat,
// or similar). Delivery is best-effort; the voicemail flow never blocks on it.
type Provider interface {
	Send(ctx context.Context, destination, body string) error
}

// LogProvider writes notifications to the application log. Used when no real
// messaging integration is configured and in local runs.
type LogProvider struct {
	log *logger.Logger
}

// NewLogProvider constructs a log-backed provider.
func NewLogProvider(log *logger.Logger) *LogProvider {
	return &LogProvider{log: log}
}

// Send logs the notification body.
func (p *LogProvider) Send(_ context.Context, destination, body string) error {
	p.log.Info("voicemail notification",
		zap.String("destination", destination),
		zap.String("body", body),
	)
	return nil
}

// RecordingProvider captures sent notifications for tests.
type RecordingProvider struct {
	mu   sync.Mutex
	sent []SentNotification
	Err  error
}

// SentNotification is one captured Send invocation.
type SentNotification struct {
	Destination string
	Body        string
}

// Send records the notification and returns the injected error, if any.
func (p *RecordingProvider) Send(_ context.Context, destination, body string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, SentNotification{Destination: destination, Body: body})
	return p.Err
}

// Sent returns a copy of the captured notifications.
func (p *RecordingProvider) Sent() []SentNotification {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]SentNotification, len(p.sent))
	copy(out, p.sent)
	return out
}
