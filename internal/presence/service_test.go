package presence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acme/inbound-call-desk/internal/domain"
	apperrors "github.com/acme/inbound-call-desk/pkg/errors"
	"github.com/acme/inbound-call-desk/pkg/logger"
)

type fakeWorkerRepo struct {
	mu        sync.Mutex
	workers   map[string]*domain.Worker
	updateErr error
	getErr    error
	updates   int
}

func newFakeWorkerRepo(workers ...*domain.Worker) *fakeWorkerRepo {
	repo := &fakeWorkerRepo{workers: make(map[string]*domain.Worker)}
	for _, w := range workers {
		repo.workers[w.SID] = w
	}
	return repo
}

func (r *fakeWorkerRepo) Get(_ context.Context, sid string) (*domain.Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	worker, ok := r.workers[sid]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *worker
	return &copied, nil
}

func (r *fakeWorkerRepo) UpdateActivity(_ context.Context, sid string, activity domain.Activity, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	worker, ok := r.workers[sid]
	if !ok {
		return apperrors.ErrNotFound
	}
	worker.Activity = activity
	worker.UpdatedAt = at
	r.updates++
	return nil
}

func (r *fakeWorkerRepo) List(_ context.Context, _ int) ([]*domain.Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Worker, 0, len(r.workers))
	for _, w := range r.workers {
		copied := *w
		out = append(out, &copied)
	}
	return out, nil
}

type fakeActivityCache struct {
	mu     sync.Mutex
	values map[string]domain.Activity
	setErr error
}

func (c *fakeActivityCache) Set(_ context.Context, workerSID string, activity domain.Activity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	if c.values == nil {
		c.values = make(map[string]domain.Activity)
	}
	c.values[workerSID] = activity
	return nil
}

func (c *fakeActivityCache) Get(_ context.Context, workerSID string) (domain.Activity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	activity, ok := c.values[workerSID]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	return activity, nil
}

func testWorker(sid string) *domain.Worker {
	return &domain.Worker{
		SID:          sid,
		FriendlyName: "Agent " + sid,
		Activity:     domain.ActivityOffline,
	}
}

func TestSetThenGetReturnsNewState(t *testing.T) {
	repo := newFakeWorkerRepo(testWorker("WK01"))
	svc := NewService(repo, &fakeActivityCache{}, NewBroadcaster(), logger.NewNop())

	updated, err := svc.Set(context.Background(), "WK01", domain.ActivityAvailable)
	require.NoError(t, err)
	assert.Equal(t, domain.ActivityAvailable, updated.Activity)

	got, err := svc.Get(context.Background(), "WK01")
	require.NoError(t, err)
	assert.Equal(t, domain.ActivityAvailable, got.Activity)
}

func TestSetRejectsUnknownActivity(t *testing.T) {
	repo := newFakeWorkerRepo(testWorker("WK01"))
	svc := NewService(repo, nil, NewBroadcaster(), logger.NewNop())

	_, err := svc.Set(context.Background(), "WK01", domain.Activity("wrap-up"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	assert.Zero(t, repo.updates, "invalid state must not reach the roster")
}

func TestSetNotifiesSubscribers(t *testing.T) {
	repo := newFakeWorkerRepo(testWorker("WK01"))
	broadcaster := NewBroadcaster()
	svc := NewService(repo, nil, broadcaster, logger.NewNop())

	sub, err := svc.Subscribe(context.Background(), "WK01")
	require.NoError(t, err)
	defer sub.Close()

	// Seed event carries the roster state.
	seed := receiveEvent(t, sub)
	assert.Equal(t, domain.ActivityOffline, seed.Activity)

	_, err = svc.Set(context.Background(), "WK01", domain.ActivityUnavailable)
	require.NoError(t, err)

	event := receiveEvent(t, sub)
	assert.Equal(t, domain.ActivityUnavailable, event.Activity)
}

func TestSetKeepsLastKnownOnRepositoryFailure(t *testing.T) {
	repo := newFakeWorkerRepo(testWorker("WK01"))
	svc := NewService(repo, nil, NewBroadcaster(), logger.NewNop())

	_, err := svc.Set(context.Background(), "WK01", domain.ActivityAvailable)
	require.NoError(t, err)

	repo.updateErr = errors.New("roster down")
	_, err = svc.Set(context.Background(), "WK01", domain.ActivityOffline)
	require.Error(t, err)

	// The failed write must not disturb the last successful state.
	repo.updateErr = nil
	got, err := svc.Get(context.Background(), "WK01")
	require.NoError(t, err)
	assert.Equal(t, domain.ActivityAvailable, got.Activity)
}

func TestSetSurvivesCacheFailure(t *testing.T) {
	repo := newFakeWorkerRepo(testWorker("WK01"))
	cache := &fakeActivityCache{setErr: errors.New("cache down")}
	svc := NewService(repo, cache, NewBroadcaster(), logger.NewNop())

	updated, err := svc.Set(context.Background(), "WK01", domain.ActivityAvailable)
	require.NoError(t, err)
	assert.Equal(t, domain.ActivityAvailable, updated.Activity)
}

func TestConcurrentSetsSerializePerWorker(t *testing.T) {
	repo := newFakeWorkerRepo(testWorker("WK01"))
	svc := NewService(repo, &fakeActivityCache{}, NewBroadcaster(), logger.NewNop())

	states := []domain.Activity{
		domain.ActivityAvailable,
		domain.ActivityUnavailable,
		domain.ActivityOffline,
	}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(activity domain.Activity) {
			defer wg.Done()
			_, err := svc.Set(context.Background(), "WK01", activity)
			assert.NoError(t, err)
		}(states[i%len(states)])
	}
	wg.Wait()

	// Whichever write landed last, reads agree with the roster.
	got, err := svc.Get(context.Background(), "WK01")
	require.NoError(t, err)
	roster, err := repo.Get(context.Background(), "WK01")
	require.NoError(t, err)
	assert.Equal(t, roster.Activity, got.Activity)
	assert.Equal(t, 30, repo.updates)
}

func TestListOverlaysFreshActivity(t *testing.T) {
	repo := newFakeWorkerRepo(testWorker("WK01"), testWorker("WK02"))
	svc := NewService(repo, nil, NewBroadcaster(), logger.NewNop())

	_, err := svc.Set(context.Background(), "WK01", domain.ActivityAvailable)
	require.NoError(t, err)

	workers, err := svc.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, workers, 2)

	byID := make(map[string]domain.Activity, len(workers))
	for _, w := range workers {
		byID[w.SID] = w.Activity
	}
	assert.Equal(t, domain.ActivityAvailable, byID["WK01"])
	assert.Equal(t, domain.ActivityOffline, byID["WK02"])
}

func TestExemptReadsSimulRingFlag(t *testing.T) {
	exemptWorker := testWorker("WK01")
	exemptWorker.SimulRing = true
	repo := newFakeWorkerRepo(exemptWorker, testWorker("WK02"))
	svc := NewService(repo, nil, NewBroadcaster(), logger.NewNop())

	exempt, err := svc.Exempt(context.Background(), "WK01")
	require.NoError(t, err)
	assert.True(t, exempt)

	exempt, err = svc.Exempt(context.Background(), "WK02")
	require.NoError(t, err)
	assert.False(t, exempt)

	_, err = svc.Exempt(context.Background(), "WK99")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
