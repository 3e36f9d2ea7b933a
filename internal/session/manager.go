package session

import (
	"context"
	"sync"
	"time"

	"github.com/acme/inbound-call-desk/pkg/logger"
)

// Manager runs one expiry scheduler per active login session and guarantees
// timers are cleared on logout or teardown.
type Manager struct {
	presence    PresenceController
	invalidator Invalidator
	guard       Guard
	cutoffHour  int
	interval    time.Duration
	log         *logger.Logger

	mu      sync.Mutex
	running map[string]*runningSession
	closed  bool
}

type runningSession struct {
	scheduler *ExpiryScheduler
	cancel    context.CancelFunc
	done      chan struct{}
}

// ManagerConfig assembles a Manager.
type ManagerConfig struct {
	Presence    PresenceController
	Invalidator Invalidator
	Guard       Guard
	CutoffHour  int
	Interval    time.Duration
	Logger      *logger.Logger
}

// NewManager builds a session manager.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		presence:    cfg.Presence,
		invalidator: cfg.Invalidator,
		guard:       cfg.Guard,
		cutoffHour:  cfg.CutoffHour,
		interval:    cfg.Interval,
		log:         cfg.Logger,
		running:     make(map[string]*runningSession),
	}
}

// Track starts an expiry scheduler for the session unless one is already
// running. Returns the scheduler so callers can Poke it on visibility
// signals.
func (m *Manager) Track(ctx context.Context, sessionID, workerSID string) *ExpiryScheduler {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	if existing, ok := m.running[sessionID]; ok {
		return existing.scheduler
	}

	scheduler := NewExpiryScheduler(Config{
		SessionID:   sessionID,
		WorkerSID:   workerSID,
		Presence:    m.presence,
		Invalidator: m.invalidator,
		Guard:       m.guard,
		CutoffHour:  m.cutoffHour,
		Interval:    m.interval,
		Logger:      m.log,
	})

	runCtx, cancel := context.WithCancel(ctx)
	session := &runningSession{scheduler: scheduler, cancel: cancel, done: make(chan struct{})}
	m.running[sessionID] = session

	go func() {
		defer close(session.done)
		scheduler.Start(runCtx)
		_ = scheduler.Run(runCtx)
		m.forget(sessionID, session)
	}()

	return scheduler
}

// Poke forwards a visibility signal to the session's scheduler, if running.
func (m *Manager) Poke(sessionID string) {
	m.mu.Lock()
	session, ok := m.running[sessionID]
	m.mu.Unlock()
	if ok {
		session.scheduler.Poke()
	}
}

// Stop tears the session's scheduler down, clearing its timer. Called on
// explicit logout.
func (m *Manager) Stop(sessionID string) {
	m.mu.Lock()
	session, ok := m.running[sessionID]
	delete(m.running, sessionID)
	m.mu.Unlock()
	if ok {
		session.cancel()
		<-session.done
	}
}

// Close stops every running scheduler. Called on shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	sessions := make([]*runningSession, 0, len(m.running))
	for _, session := range m.running {
		sessions = append(sessions, session)
	}
	m.running = make(map[string]*runningSession)
	m.mu.Unlock()

	for _, session := range sessions {
		session.cancel()
		<-session.done
	}
}

func (m *Manager) forget(sessionID string, session *runningSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.running[sessionID]; ok && current == session {
		delete(m.running, sessionID)
	}
}
