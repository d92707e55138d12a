package sweeper

import (
	"context"
	"pos-handoff-svc/src/internal/config"
	"pos-handoff-svc/src/internal/session"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeSessionService struct {
	session.Service
	sweeps int
}

func (f *fakeSessionService) SweepExpired(ctx context.Context) (int, error) {
	f.sweeps++
	return 2, nil
}

type fakeLockCache struct {
	acquired   bool
	acquireErr error
	releases   int
}

func (f *fakeLockCache) GetSessionView(ctx context.Context, sessionID string) (*session.View, error) {
	return nil, nil
}
func (f *fakeLockCache) SaveSessionView(ctx context.Context, view *session.View) error { return nil }
func (f *fakeLockCache) InvalidateSession(ctx context.Context, sessionID string) error { return nil }
func (f *fakeLockCache) AcquireSweeperLock(ctx context.Context) (bool, error) {
	return f.acquired, f.acquireErr
}
func (f *fakeLockCache) ReleaseSweeperLock(ctx context.Context) error {
	f.releases++
	return nil
}

func newTestSweeper(service *fakeSessionService, lockCache *fakeLockCache) *Sweeper {
	cfg := &config.Configuration{
		App:     config.Application{Timeout: 5},
		Sweeper: config.SweeperConfig{IntervalMinutes: 5},
	}
	return NewSweeper(service, lockCache, cfg)
}

func TestSweepRunsWhenLockAcquired(t *testing.T) {
	service := &fakeSessionService{}
	lockCache := &fakeLockCache{acquired: true}

	newTestSweeper(service, lockCache).sweepOnce()

	assert.Equal(t, 1, service.sweeps)
	assert.Equal(t, 1, lockCache.releases)
}

func TestSweepSkippedWhenLockHeldElsewhere(t *testing.T) {
	service := &fakeSessionService{}
	lockCache := &fakeLockCache{acquired: false}

	newTestSweeper(service, lockCache).sweepOnce()

	assert.Equal(t, 0, service.sweeps)
	assert.Equal(t, 0, lockCache.releases)
}

func TestSweepSkippedOnLockError(t *testing.T) {
	service := &fakeSessionService{}
	lockCache := &fakeLockCache{acquireErr: context.DeadlineExceeded}

	newTestSweeper(service, lockCache).sweepOnce()

	assert.Equal(t, 0, service.sweeps)
	assert.Equal(t, 0, lockCache.releases)
}

func TestNewSweeperDefaultsInterval(t *testing.T) {
	cfg := &config.Configuration{App: config.Application{Timeout: 5}}
	s := NewSweeper(&fakeSessionService{}, &fakeLockCache{}, cfg)
	assert.Equal(t, 5*time.Minute, s.interval)
}
