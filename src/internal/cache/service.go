package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"pos-handoff-svc/src/internal/config"
	"pos-handoff-svc/src/internal/models"
	"pos-handoff-svc/src/internal/session"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type Service interface {
	GetSessionView(ctx context.Context, sessionID string) (*session.View, error)
	SaveSessionView(ctx context.Context, view *session.View) error
	InvalidateSession(ctx context.Context, sessionID string) error
	AcquireSweeperLock(ctx context.Context) (bool, error)
	ReleaseSweeperLock(ctx context.Context) error
}

type cacheService struct {
	client *redis.Client
	cfg    *config.CacheConfig
}

func NewCacheService(client *redis.Client, cfg *config.Configuration) Service {
	return &cacheService{
		client: client,
		cfg:    &cfg.Cache,
	}
}

func sessionViewKey(sessionID string) string {
	return fmt.Sprintf("handoff:session:%s", sessionID)
}

// GetSessionView returns a cached sanitized view, or nil when absent.
// Cache misses are not errors.
func (c *cacheService) GetSessionView(ctx context.Context, sessionID string) (*session.View, error) {
	key := sessionViewKey(sessionID)

	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			logrus.WithField("session_id", sessionID).Debug("Session view not found in cache")
			return nil, nil
		}
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to get session view from cache")
		return nil, models.ErrRedisGet
	}

	var view session.View
	if err := json.Unmarshal([]byte(data), &view); err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to unmarshal cached session view")
		return nil, models.ErrRedisGet
	}

	return &view, nil
}

// SaveSessionView caches a view until the earlier of the configured TTL
// and the session's own expiry. Views are sanitized before they reach
// this layer; the session token never touches Redis.
func (c *cacheService) SaveSessionView(ctx context.Context, view *session.View) error {
	key := sessionViewKey(view.SessionID)

	data, err := json.Marshal(view)
	if err != nil {
		logrus.WithError(err).WithField("session_id", view.SessionID).Error("Failed to marshal session view for cache")
		return models.ErrRedisSet
	}

	ttl := time.Duration(c.cfg.SessionViewExpirationMinutes) * time.Minute
	if !view.Status.IsTerminal() {
		if remaining := time.Until(view.ExpiresAt); remaining > 0 && remaining < ttl {
			ttl = remaining
		}
	}
	if ttl <= 0 {
		return nil
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		logrus.WithError(err).WithField("session_id", view.SessionID).Error("Failed to cache session view")
		return models.ErrRedisSet
	}

	logrus.WithField("session_id", view.SessionID).Debug("Session view cached")
	return nil
}

func (c *cacheService) InvalidateSession(ctx context.Context, sessionID string) error {
	key := sessionViewKey(sessionID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to invalidate cached session view")
		return models.ErrRedisSet
	}
	return nil
}

// AcquireSweeperLock takes the cross-instance lease that keeps sweeper
// runs from overlapping. Returns false when another run holds it.
func (c *cacheService) AcquireSweeperLock(ctx context.Context) (bool, error) {
	ttl := time.Duration(c.cfg.SweeperLockTTLSeconds) * time.Second
	ok, err := c.client.SetNX(ctx, c.cfg.SweeperLockKey, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		logrus.WithError(err).Error("Failed to acquire sweeper lock")
		return false, models.ErrRedisSet
	}
	return ok, nil
}

func (c *cacheService) ReleaseSweeperLock(ctx context.Context) error {
	if err := c.client.Del(ctx, c.cfg.SweeperLockKey).Err(); err != nil {
		logrus.WithError(err).Error("Failed to release sweeper lock")
		return models.ErrRedisSet
	}
	return nil
}
