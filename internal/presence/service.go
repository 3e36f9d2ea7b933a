package presence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/acme/inbound-call-desk/internal/domain"
	"github.com/acme/inbound-call-desk/internal/metrics"
	"github.com/acme/inbound-call-desk/internal/repository"
	apperrors "github.com/acme/inbound-call-desk/pkg/errors"
	"github.com/acme/inbound-call-desk/pkg/logger"
)

// Service is the authoritative read/write store for worker availability.
//
// Writes to a single worker are serialized through a per-worker lock; last
// arrival wins and any state is reachable from any state. Every successful
// write notifies the broadcaster. On a persistence failure the in-memory
// last-known value is retained rather than reset, so readers never observe a
// spurious default.
type Service struct {
	workers     repository.WorkerRepository
	cache       repository.ActivityCache
	broadcaster *Broadcaster
	log         *logger.Logger

	mu        sync.Mutex
	locks     map[string]*sync.Mutex
	lastKnown map[string]domain.Activity
}

// NewService builds the presence service. cache may be nil when no cache
// backend is configured.
func NewService(workers repository.WorkerRepository, cache repository.ActivityCache, broadcaster *Broadcaster, log *logger.Logger) *Service {
	return &Service{
		workers:     workers,
		cache:       cache,
		broadcaster: broadcaster,
		log:         log,
		locks:       make(map[string]*sync.Mutex),
		lastKnown:   make(map[string]domain.Activity),
	}
}

// Get returns the worker's roster record including current activity.
func (s *Service) Get(ctx context.Context, workerSID string) (*domain.Worker, error) {
	worker, err := s.workers.Get(ctx, workerSID)
	if err != nil {
		return nil, err
	}
	if known, ok := s.knownActivity(workerSID); ok {
		// A write may have landed in memory before the roster read saw it.
		worker.Activity = known
	}
	return worker, nil
}

// Set transitions the worker to the given activity and returns the updated
// record.
func (s *Service) Set(ctx context.Context, workerSID string, activity domain.Activity) (*domain.Worker, error) {
	if _, err := domain.ParseActivity(string(activity)); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	lock := s.workerLock(workerSID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UTC()
	if err := s.workers.UpdateActivity(ctx, workerSID, activity, now); err != nil {
		// Keep lastKnown untouched: the previous state is still the best
		// answer for readers.
		return nil, err
	}

	s.rememberActivity(workerSID, activity)

	if s.cache != nil {
		if err := s.cache.Set(ctx, workerSID, activity); err != nil {
			s.log.Warn("presence: cache write failed",
				zap.String("worker_sid", workerSID), zap.Error(err))
		}
	}

	metrics.PresenceTransitionsTotal.WithLabelValues(string(activity)).Inc()
	s.broadcaster.Publish(workerSID, activity)

	worker, err := s.workers.Get(ctx, workerSID)
	if err != nil {
		// The write succeeded; synthesize the response from what we know.
		return &domain.Worker{SID: workerSID, Activity: activity, UpdatedAt: now}, nil
	}
	worker.Activity = activity
	return worker, nil
}

// List returns the roster with each worker's freshest known activity, for
// the supervisor view.
func (s *Service) List(ctx context.Context, limit int) ([]*domain.Worker, error) {
	workers, err := s.workers.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	for _, worker := range workers {
		if known, ok := s.knownActivity(worker.SID); ok {
			worker.Activity = known
		}
	}
	return workers, nil
}

// Exempt reports whether the worker's simultaneous-ring flag disables
// automatic forced logout. The flag is read-only metadata in this service.
func (s *Service) Exempt(ctx context.Context, workerSID string) (bool, error) {
	worker, err := s.workers.Get(ctx, workerSID)
	if err != nil {
		return false, err
	}
	return worker.SimulRing, nil
}

// Subscribe opens a presence feed for the worker, seeded with the freshest
// state this instance knows.
func (s *Service) Subscribe(ctx context.Context, workerSID string) (*Subscription, error) {
	current, ok := s.knownActivity(workerSID)
	if !ok {
		worker, err := s.workers.Get(ctx, workerSID)
		if err != nil {
			return nil, err
		}
		current = worker.Activity
		s.rememberActivity(workerSID, current)
	}
	return s.broadcaster.Subscribe(workerSID, current), nil
}

func (s *Service) workerLock(workerSID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[workerSID]
	if !ok {
		lock = new(sync.Mutex)
		s.locks[workerSID] = lock
	}
	return lock
}

func (s *Service) knownActivity(workerSID string) (domain.Activity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	activity, ok := s.lastKnown[workerSID]
	return activity, ok
}

func (s *Service) rememberActivity(workerSID string, activity domain.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastKnown[workerSID] = activity
}
