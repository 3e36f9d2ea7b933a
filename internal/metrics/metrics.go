// Package metrics provides Prometheus metrics for the call-routing and
// presence coordinator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the custom prometheus registry for this application.
var Registry = prometheus.NewRegistry()

// factory registers metrics against our custom Registry directly.
var factory = promauto.With(Registry)

// LifecycleEventsTotal counts routing notifications received, by event kind.
var LifecycleEventsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "calldesk",
	Name:      "lifecycle_events_total",
	Help:      "Routing lifecycle notifications received, by event kind",
}, []string{"kind"})

// VoicemailRedirectsTotal counts calls redirected into the voicemail flow.
var VoicemailRedirectsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "calldesk",
	Name:      "voicemail_redirects_total",
	Help:      "Calls redirected to the record-and-transcribe flow",
})

// VoicemailNotificationsTotal counts voicemail notifications dispatched.
var VoicemailNotificationsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "calldesk",
	Name:      "voicemail_notifications_total",
	Help:      "Voicemail completion notifications published",
})

// PresenceTransitionsTotal counts successful presence writes, by new state.
var PresenceTransitionsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "calldesk",
	Name:      "presence_transitions_total",
	Help:      "Worker presence transitions applied, by resulting activity",
}, []string{"activity"})

// ForcedLogoutsTotal counts daily-cutoff forced logout sequences fired.
var ForcedLogoutsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "calldesk",
	Name:      "forced_logouts_total",
	Help:      "Forced logout sequences fired by the session expiry scheduler",
})

// PresenceSubscribers tracks currently open presence stream subscriptions.
var PresenceSubscribers = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "calldesk",
	Name:      "presence_subscribers",
	Help:      "Open presence stream subscriptions",
})
