package presence

import (
	"sync"
	"time"

	"github.com/acme/inbound-call-desk/internal/domain"
	"github.com/acme/inbound-call-desk/internal/metrics"
)

// Broadcaster fans presence changes out to subscribers per worker.
//
// Delivery is at-most-latest: each subscription holds a one-slot conflating
// buffer, so a subscriber that falls behind sees only the newest state, never
// a replay of intermediate transitions. Publishing never blocks on a slow or
// disconnected subscriber, and each subscription tears down independently.
// Reconnect/backoff belongs to the subscribing side.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscription is one subscriber's handle onto a worker's presence feed.
type Subscription struct {
	workerSID string
	ch        chan domain.PresenceEvent
	owner     *Broadcaster
	closeOnce sync.Once
}

// Events exposes the receive side of the subscription.
func (s *Subscription) Events() <-chan domain.PresenceEvent {
	return s.ch
}

// Close detaches the subscription. Idempotent.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.owner.remove(s)
		metrics.PresenceSubscribers.Dec()
	})
}

// Subscribe registers a subscriber for one worker's presence changes. The
// provided current state is delivered immediately so a fresh connection never
// waits for the next transition.
func (b *Broadcaster) Subscribe(workerSID string, current domain.Activity) *Subscription {
	sub := &Subscription{
		workerSID: workerSID,
		ch:        make(chan domain.PresenceEvent, 1),
		owner:     b,
	}
	sub.ch <- domain.PresenceEvent{WorkerSID: workerSID, Activity: current, OccurredAt: time.Now().UTC()}

	b.mu.Lock()
	set, ok := b.subs[workerSID]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.subs[workerSID] = set
	}
	set[sub] = struct{}{}
	b.mu.Unlock()

	metrics.PresenceSubscribers.Inc()
	return sub
}

// Publish fans the new state out to every subscriber for the worker. When a
// subscription's buffer is full the stale value is dropped and the newest
// kept, so a subscriber always converges on the most recent state.
func (b *Broadcaster) Publish(workerSID string, activity domain.Activity) {
	event := domain.PresenceEvent{
		WorkerSID:  workerSID,
		Activity:   activity,
		OccurredAt: time.Now().UTC(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[workerSID] {
		select {
		case sub.ch <- event:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- event:
			default:
			}
		}
	}
}

// SubscriberCount reports open subscriptions for a worker.
func (b *Broadcaster) SubscriberCount(workerSID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[workerSID])
}

func (b *Broadcaster) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set := b.subs[sub.workerSID]
	delete(set, sub)
	if len(set) == 0 {
		delete(b.subs, sub.workerSID)
	}
}
