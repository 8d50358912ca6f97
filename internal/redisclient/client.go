package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

//go:embed scripts/unlock.lua
var unlockScript string

type Client struct {
	rdb    *redis.Client
	unlock *redis.Script
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:    rdb,
		unlock: redis.NewScript(unlockScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// AcquireInterventionLock takes a lease on an intervention for the duration of
// a mutating operation. Returns the lease token when acquired, empty string
// when another operation holds the lease.
func (c *Client) AcquireInterventionLock(ctx context.Context, interventionID int64, ttl time.Duration) (string, error) {
	token := uuid.New().String()
	key := fmt.Sprintf("lock:intervention:%d", interventionID)

	ok, err := c.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("acquire lock failed: %w", err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// ReleaseInterventionLock releases a lease if the token still owns it.
// A lease that expired and was re-acquired by someone else is left alone.
func (c *Client) ReleaseInterventionLock(ctx context.Context, interventionID int64, token string) error {
	key := fmt.Sprintf("lock:intervention:%d", interventionID)
	_, err := c.unlock.Run(ctx, c.rdb, []string{key}, token).Result()
	if err != nil {
		return fmt.Errorf("release lock failed: %w", err)
	}
	return nil
}

// MarkCorrelationApplied records that a remote deduct/restore with this
// correlation id was acknowledged, so a retry can skip the call.
func (c *Client) MarkCorrelationApplied(ctx context.Context, correlationID string, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("applied:%s", correlationID), "1", ttl).Err()
}

// IsCorrelationApplied checks whether a correlation id was already acknowledged
func (c *Client) IsCorrelationApplied(ctx context.Context, correlationID string) (bool, error) {
	result, err := c.rdb.Exists(ctx, fmt.Sprintf("applied:%s", correlationID)).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}
