package mock

import (
	"context"
	"sync"
)

// RedirectCallRecord captures one RedirectCall invocation.
type RedirectCallRecord struct {
	CallSID   string
	ScriptURL string
}

// CancelTaskRecord captures one CancelTask invocation.
type CancelTaskRecord struct {
	WorkspaceSID string
	TaskSID      string
	Reason       string
}

// Provider is an in-memory telephony provider for tests and local runs.
// Errors can be injected per operation; all invocations are recorded.
type Provider struct {
	mu sync.Mutex

	RedirectErr error
	CancelErr   func(taskSID string, attempt int) error

	redirects    []RedirectCallRecord
	cancels      []CancelTaskRecord
	cancelCounts map[string]int
}

// NewProvider constructs an empty mock provider.
func NewProvider() *Provider {
	return &Provider{cancelCounts: make(map[string]int)}
}

// RedirectCall records the invocation and returns the injected error, if any.
func (p *Provider) RedirectCall(_ context.Context, callSID, scriptURL string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.redirects = append(p.redirects, RedirectCallRecord{CallSID: callSID, ScriptURL: scriptURL})
	return p.RedirectErr
}

// CancelTask records the invocation. The injected error function sees the
// per-task attempt count so tests can simulate "already canceled" races.
func (p *Provider) CancelTask(_ context.Context, workspaceSID, taskSID, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelCounts[taskSID]++
	p.cancels = append(p.cancels, CancelTaskRecord{WorkspaceSID: workspaceSID, TaskSID: taskSID, Reason: reason})
	if p.CancelErr != nil {
		return p.CancelErr(taskSID, p.cancelCounts[taskSID])
	}
	return nil
}

// Redirects returns a copy of recorded redirect invocations.
func (p *Provider) Redirects() []RedirectCallRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]RedirectCallRecord, len(p.redirects))
	copy(out, p.redirects)
	return out
}

// Cancels returns a copy of recorded cancel invocations.
func (p *Provider) Cancels() []CancelTaskRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]CancelTaskRecord, len(p.cancels))
	copy(out, p.cancels)
	return out
}
