package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/acme/inbound-call-desk/internal/domain"
	"github.com/acme/inbound-call-desk/internal/metrics"
	"github.com/acme/inbound-call-desk/pkg/logger"
)

// LogoutReason is the reason code carried to the login entry point when the
// scheduler forces a logout.
const LogoutReason = "daily-cutoff"

// PresenceController is the slice of the presence service the scheduler
// needs: writing offline and reading the exemption flag.
type PresenceController interface {
	Set(ctx context.Context, workerSID string, activity domain.Activity) (*domain.Worker, error)
	Exempt(ctx context.Context, workerSID string) (bool, error)
}

// Invalidator revokes a session with the external auth collaborator.
type Invalidator interface {
	Invalidate(ctx context.Context, sessionID string) error
}

// Guard is an optional cross-instance one-shot check. FireOnce returns true
// exactly once per session.
type Guard interface {
	FireOnce(ctx context.Context, sessionID string) (bool, error)
}

// ExpiryScheduler forces a logout at a daily cutoff for one login session.
//
// Exemption is resolved once at start; a resolution failure counts as not
// exempt, since missing a forced logout has a larger downside than an extra
// re-authentication. The logout sequence fires at most once and each of its
// steps is best-effort independently.
type ExpiryScheduler struct {
	sessionID string
	workerSID string

	presence    PresenceController
	invalidator Invalidator
	guard       Guard
	onLogout    func(reason string)
	log         *logger.Logger

	cutoffHour int
	interval   time.Duration
	now        func() time.Time

	cutoff time.Time
	exempt bool
	fired  bool
	poke   chan struct{}
}

// Config assembles an ExpiryScheduler.
type Config struct {
	SessionID   string
	WorkerSID   string
	Presence    PresenceController
	Invalidator Invalidator
	Guard       Guard
	OnLogout    func(reason string)
	CutoffHour  int
	Interval    time.Duration
	Now         func() time.Time
	Logger      *logger.Logger
}

// NewExpiryScheduler builds a scheduler for one session.
func NewExpiryScheduler(cfg Config) *ExpiryScheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now() }
	}
	onLogout := cfg.OnLogout
	if onLogout == nil {
		onLogout = func(string) {}
	}
	return &ExpiryScheduler{
		sessionID:   cfg.SessionID,
		workerSID:   cfg.WorkerSID,
		presence:    cfg.Presence,
		invalidator: cfg.Invalidator,
		guard:       cfg.Guard,
		onLogout:    onLogout,
		log:         cfg.Logger,
		cutoffHour:  cfg.CutoffHour,
		interval:    interval,
		now:         now,
		poke:        make(chan struct{}, 1),
	}
}

// Start resolves the exemption flag and arms the cutoff. Called once before
// Run.
func (s *ExpiryScheduler) Start(ctx context.Context) {
	exempt, err := s.presence.Exempt(ctx, s.workerSID)
	if err != nil {
		// Fail toward enforcing logout.
		s.log.Warn("session expiry: exemption lookup failed, assuming not exempt",
			zap.String("worker_sid", s.workerSID), zap.Error(err))
		exempt = false
	}
	s.exempt = exempt
	s.cutoff = NextCutoff(s.now(), s.cutoffHour)

	s.log.Info("session expiry: armed",
		zap.String("session_id", s.sessionID),
		zap.String("worker_sid", s.workerSID),
		zap.Bool("exempt", s.exempt),
		zap.Time("cutoff", s.cutoff),
	)
}

// Run polls at a coarse interval and re-checks immediately on Poke. Returns
// when the logout sequence has fired or the context is cancelled; either way
// the timer is released and the sequence can never fire twice.
func (s *ExpiryScheduler) Run(ctx context.Context) error {
	if s.exempt {
		// Exempt sessions never fire; park until teardown.
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-s.poke:
		}

		if s.Tick(ctx) {
			return nil
		}
	}
}

// Poke requests an immediate re-check, covering timers missed while the
// client was backgrounded or the device slept.
func (s *ExpiryScheduler) Poke() {
	select {
	case s.poke <- struct{}{}:
	default:
	}
}

// Tick evaluates the cutoff once and fires the logout sequence when due.
// Returns true when the scheduler is terminal.
func (s *ExpiryScheduler) Tick(ctx context.Context) bool {
	if s.fired {
		return true
	}
	if s.exempt {
		return false
	}
	if s.now().Before(s.cutoff) {
		return false
	}

	s.fired = true

	if s.guard != nil {
		first, err := s.guard.FireOnce(ctx, s.sessionID)
		if err != nil {
			s.log.Warn("session expiry: one-shot guard failed, firing anyway",
				zap.String("session_id", s.sessionID), zap.Error(err))
		} else if !first {
			s.log.Info("session expiry: logout already fired elsewhere",
				zap.String("session_id", s.sessionID))
			return true
		}
	}

	s.fire(ctx)
	return true
}

// fire runs the three logout steps. Each is best-effort: failure of one must
// not prevent attempting the next.
func (s *ExpiryScheduler) fire(ctx context.Context) {
	metrics.ForcedLogoutsTotal.Inc()
	s.log.Info("session expiry: forcing logout",
		zap.String("session_id", s.sessionID),
		zap.String("worker_sid", s.workerSID),
	)

	if _, err := s.presence.Set(ctx, s.workerSID, domain.ActivityOffline); err != nil {
		s.log.Error("session expiry: presence offline write failed",
			zap.String("worker_sid", s.workerSID), zap.Error(err))
	}

	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, s.sessionID); err != nil {
			s.log.Error("session expiry: session invalidation failed",
				zap.String("session_id", s.sessionID), zap.Error(err))
		}
	}

	s.onLogout(LogoutReason)
}
