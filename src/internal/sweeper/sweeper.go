package sweeper

import (
	"context"
	"pos-handoff-svc/src/internal/cache"
	"pos-handoff-svc/src/internal/config"
	"pos-handoff-svc/src/internal/session"
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper periodically time-expires stale sessions. Runs never overlap:
// every tick first takes a Redis lease, so a slow sweep on one instance
// blocks the next tick on every instance.
type Sweeper struct {
	service  session.Service
	cache    cache.Service
	interval time.Duration
	timeout  time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func NewSweeper(service session.Service, cacheService cache.Service, cfg *config.Configuration) *Sweeper {
	interval := time.Duration(cfg.Sweeper.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{
		service:  service,
		cache:    cacheService,
		interval: interval,
		timeout:  time.Duration(cfg.App.Timeout) * time.Second,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called.
func (s *Sweeper) Start() {
	go s.run()
	logrus.WithField("interval", s.interval.String()).Info("Expiration sweeper started")
}

func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
	logrus.Info("Expiration sweeper stopped")
}

func (s *Sweeper) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepOnce()
		case <-s.stop:
			return
		}
	}
}

func (s *Sweeper) sweepOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	acquired, err := s.cache.AcquireSweeperLock(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Sweeper lock acquisition failed, skipping run")
		return
	}
	if !acquired {
		logrus.Debug("Sweeper lock held elsewhere, skipping run")
		return
	}
	defer func() {
		if err := s.cache.ReleaseSweeperLock(ctx); err != nil {
			logrus.WithError(err).Warn("Failed to release sweeper lock")
		}
	}()

	count, err := s.service.SweepExpired(ctx)
	if err != nil {
		logrus.WithError(err).Error("Sweep run failed")
		return
	}

	if count > 0 {
		logrus.WithField("expired_count", count).Info("Sweep run completed")
	} else {
		logrus.Debug("Sweep run completed, nothing to expire")
	}
}
