package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stripe-sync-service/internal/models"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
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

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// MarkEventProcessed records a Stripe event id so redelivered webhook events
// are skipped. Returns false when the event was already recorded.
func (c *Client) MarkEventProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("stripe-event:%s", eventID), "1", ttl).Result()
}

// IsEventProcessed checks whether a Stripe event id has been recorded
func (c *Client) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	result, err := c.rdb.Exists(ctx, fmt.Sprintf("stripe-event:%s", eventID)).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}

// CacheSyncStatus stores a creator's sync status report with a TTL.
// The status endpoint triggers a Stripe scan per linked product, so a
// short cache keeps repeated dashboard polls cheap.
func (c *Client) CacheSyncStatus(ctx context.Context, creatorID string, env models.Environment, status *models.SyncStatus, ttl time.Duration) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, syncStatusKey(creatorID, env), payload, ttl).Err()
}

// GetCachedSyncStatus retrieves a cached sync status report.
// Returns nil when no fresh report is cached.
func (c *Client) GetCachedSyncStatus(ctx context.Context, creatorID string, env models.Environment) (*models.SyncStatus, error) {
	payload, err := c.rdb.Get(ctx, syncStatusKey(creatorID, env)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var status models.SyncStatus
	if err := json.Unmarshal(payload, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// InvalidateSyncStatus drops the cached report after a mutation
func (c *Client) InvalidateSyncStatus(ctx context.Context, creatorID string, env models.Environment) error {
	return c.rdb.Del(ctx, syncStatusKey(creatorID, env)).Err()
}

func syncStatusKey(creatorID string, env models.Environment) string {
	return fmt.Sprintf("sync-status:%s:%s", creatorID, env)
}
