package redisclient

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"lifecycle-service/internal/models"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/alert_dedupe.lua
var alertDedupeScript string

type Client struct {
	rdb          *redis.Client
	dedupeScript *redis.Script
	cacheTTL     time.Duration
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int, cacheTTL time.Duration) (*Client, error) {
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
		rdb:          rdb,
		dedupeScript: redis.NewScript(alertDedupeScript),
		cacheTTL:     cacheTTL,
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

func entityKey(kind, id string) string {
	return fmt.Sprintf("entity:%s:%s", kind, id)
}

// CacheEntity stores an entity snapshot for read endpoints. Snapshots are
// only ever written from a fresh database read, never from in-flight state.
func (c *Client) CacheEntity(ctx context.Context, entity *models.Entity) error {
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}
	return c.rdb.Set(ctx, entityKey(entity.Kind, entity.ID), data, c.cacheTTL).Err()
}

// GetCachedEntity retrieves a cached snapshot. A cache miss returns nil, nil.
func (c *Client) GetCachedEntity(ctx context.Context, kind, id string) (*models.Entity, error) {
	data, err := c.rdb.Get(ctx, entityKey(kind, id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entity models.Entity
	if err := json.Unmarshal(data, &entity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached entity: %w", err)
	}
	return &entity, nil
}

// InvalidateEntity drops the cached snapshot after a transition commits.
func (c *Client) InvalidateEntity(ctx context.Context, kind, id string) error {
	return c.rdb.Del(ctx, entityKey(kind, id)).Err()
}

// ClaimAlert atomically claims an operator alert key so retried
// compensations do not page the operator twice for the same failure.
// Returns true when the caller should fire the alert.
func (c *Client) ClaimAlert(ctx context.Context, alertKey string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("alert:%s", alertKey)

	result, err := c.dedupeScript.Run(ctx, c.rdb, []string{key}, time.Now().Unix(), int(ttl.Seconds())).Result()
	if err != nil {
		return false, fmt.Errorf("alert dedupe script failed: %w", err)
	}

	claimed, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected script result type")
	}

	return claimed == 1, nil
}
