package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acme/inbound-call-desk/internal/domain"
)

func receiveEvent(t *testing.T, sub *Subscription) domain.PresenceEvent {
	t.Helper()
	select {
	case event := <-sub.Events():
		return event
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return domain.PresenceEvent{}
	}
}

func TestSubscribeSeedsCurrentState(t *testing.T) {
	b := NewBroadcaster()

	sub := b.Subscribe("WK01", domain.ActivityAvailable)
	defer sub.Close()

	event := receiveEvent(t, sub)
	assert.Equal(t, "WK01", event.WorkerSID)
	assert.Equal(t, domain.ActivityAvailable, event.Activity)
}

func TestLateSubscriberSeesOnlyLatestState(t *testing.T) {
	b := NewBroadcaster()

	sub := b.Subscribe("WK01", domain.ActivityOffline)
	defer sub.Close()

	// Three transitions land while the subscriber is not draining. The
	// one-slot buffer conflates them down to the newest.
	b.Publish("WK01", domain.ActivityAvailable)
	b.Publish("WK01", domain.ActivityUnavailable)
	b.Publish("WK01", domain.ActivityOffline)

	event := receiveEvent(t, sub)
	assert.Equal(t, domain.ActivityOffline, event.Activity)

	select {
	case extra := <-sub.Events():
		t.Fatalf("intermediate state replayed: %v", extra.Activity)
	default:
	}
}

func TestPublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	b := NewBroadcaster()

	slow := b.Subscribe("WK01", domain.ActivityOffline)
	defer slow.Close()
	fast := b.Subscribe("WK01", domain.ActivityOffline)
	defer fast.Close()

	// Drain only the fast subscriber's seed event; the slow one keeps a
	// full buffer throughout.
	receiveEvent(t, fast)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish("WK01", domain.ActivityAvailable)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a subscriber that never reads")
	}

	event := receiveEvent(t, fast)
	assert.Equal(t, domain.ActivityAvailable, event.Activity)
}

func TestSubscriptionsTearDownIndependently(t *testing.T) {
	b := NewBroadcaster()

	first := b.Subscribe("WK01", domain.ActivityAvailable)
	second := b.Subscribe("WK01", domain.ActivityAvailable)
	require.Equal(t, 2, b.SubscriberCount("WK01"))

	first.Close()
	first.Close() // idempotent
	assert.Equal(t, 1, b.SubscriberCount("WK01"))

	receiveEvent(t, second)
	b.Publish("WK01", domain.ActivityUnavailable)
	event := receiveEvent(t, second)
	assert.Equal(t, domain.ActivityUnavailable, event.Activity)

	second.Close()
	assert.Zero(t, b.SubscriberCount("WK01"))
}

func TestPublishScopedToWorker(t *testing.T) {
	b := NewBroadcaster()

	sub := b.Subscribe("WK01", domain.ActivityOffline)
	defer sub.Close()
	receiveEvent(t, sub)

	b.Publish("WK99", domain.ActivityAvailable)

	select {
	case event := <-sub.Events():
		t.Fatalf("received another worker's event: %v", event.WorkerSID)
	default:
	}
}
