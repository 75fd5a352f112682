package health

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Pinger interface for databases that support ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabaseChecker checks Entity Store connectivity.
type DatabaseChecker struct {
	name   string
	pinger Pinger
}

// NewDatabaseChecker creates a checker reported under name, usually the
// storage backend ("sqlite" or "postgres").
func NewDatabaseChecker(name string, p Pinger) *DatabaseChecker {
	return &DatabaseChecker{name: name, pinger: p}
}

// Name returns the checker name.
func (c *DatabaseChecker) Name() string {
	return c.name
}

// Check verifies the database is accessible.
func (c *DatabaseChecker) Check(ctx context.Context) error {
	if c.pinger == nil {
		return fmt.Errorf("database not initialized")
	}
	return c.pinger.Ping(ctx)
}

// RedisChecker checks the Redis instance backing the capacity lock.
type RedisChecker struct {
	client *redis.Client
}

// NewRedisChecker creates a new Redis health checker.
func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

// Name returns the checker name.
func (c *RedisChecker) Name() string {
	return "redis"
}

// Check verifies Redis answers PING.
func (c *RedisChecker) Check(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("redis not configured")
	}
	return c.client.Ping(ctx).Err()
}
