package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/good-yellow-bee/staffplan/internal/metrics"
	"github.com/good-yellow-bee/staffplan/internal/models"
	"github.com/good-yellow-bee/staffplan/internal/storage"
)

// UserCache resolves the authenticated user for each request. Entries expire
// after a fixed TTL; concurrent misses for the same id share one store read.
type UserCache struct {
	users storage.UserRepository
	cache *expirable.LRU[string, *models.User]
	group singleflight.Group
}

// NewUserCache creates a cache holding at most size users for ttl each.
func NewUserCache(users storage.UserRepository, size int, ttl time.Duration) *UserCache {
	return &UserCache{
		users: users,
		cache: expirable.NewLRU[string, *models.User](size, nil, ttl),
	}
}

// Get returns the user with id, or nil if no such user exists.
// Missing users are not cached.
func (c *UserCache) Get(ctx context.Context, id string) (*models.User, error) {
	if user, ok := c.cache.Get(id); ok {
		metrics.UserCacheLookups.WithLabelValues("hit").Inc()
		return user, nil
	}
	metrics.UserCacheLookups.WithLabelValues("miss").Inc()

	v, err, _ := c.group.Do(id, func() (any, error) {
		user, err := c.users.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load user: %w", err)
		}
		if user != nil {
			c.cache.Add(id, user)
		}
		return user, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.User), nil
}

// Invalidate drops a cached user after it was modified or deleted.
func (c *UserCache) Invalidate(id string) {
	c.cache.Remove(id)
}

// Len returns the number of cached users.
func (c *UserCache) Len() int {
	return c.cache.Len()
}
