package telephony

import "context"

// Provider abstracts the external telephony/queueing engine: redirecting a
// live call leg and requesting task transitions. The engine owns tasks; this
// service only observes them and asks for cancellation.
type Provider interface {
	// RedirectCall points the live call identified by callSID at the given
	// script URL.
	RedirectCall(ctx context.Context, callSID, scriptURL string) error
	// CancelTask requests cancellation of a task. Implementations return
	// pkg/errors.ErrConflict when the task is already terminal and
	// pkg/errors.ErrNotFound when the engine no longer knows it; callers
	// treat both as success.
	CancelTask(ctx context.Context, workspaceSID, taskSID, reason string) error
}
