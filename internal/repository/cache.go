package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/novamart/novamart-commerce-service/internal/models"
)

const (
	userOrdersKeyPrefix = "user_orders:"
	defaultCacheTTL     = 5 * time.Minute
)

// OrderCache caches per-user order lists. Cache errors are advisory;
// callers log and fall through to the database.
type OrderCache interface {
	GetByUserID(ctx context.Context, userID string) ([]*models.Order, error)
	SetByUserID(ctx context.Context, userID string, orders []*models.Order) error
	InvalidateByUserID(ctx context.Context, userID string) error
}

// RedisOrderCache implements OrderCache using Redis.
type RedisOrderCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisOrderCache creates a Redis-based order cache.
func NewRedisOrderCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisOrderCache {
	if ttl == 0 {
		ttl = defaultCacheTTL
	}
	return &RedisOrderCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("order-cache"),
	}
}

// GetByUserID retrieves cached orders for a user. A cache miss returns
// (nil, nil).
func (c *RedisOrderCache) GetByUserID(ctx context.Context, userID string) ([]*models.Order, error) {
	key := userOrdersKeyPrefix + userID

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		c.logger.Debug("Cache miss", zap.String("user_id", userID))
		return nil, nil
	}
	if err != nil {
		c.logger.Error("Cache get error", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	var orders []*models.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, err
	}

	c.logger.Debug("Cache hit", zap.String("user_id", userID))
	return orders, nil
}

// SetByUserID caches the order list for a user.
func (c *RedisOrderCache) SetByUserID(ctx context.Context, userID string, orders []*models.Order) error {
	key := userOrdersKeyPrefix + userID

	data, err := json.Marshal(orders)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Error("Cache set error", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

// InvalidateByUserID removes the cached order list for a user.
func (c *RedisOrderCache) InvalidateByUserID(ctx context.Context, userID string) error {
	key := userOrdersKeyPrefix + userID
	return c.client.Del(ctx, key).Err()
}

// NopOrderCache satisfies OrderCache when caching is disabled.
type NopOrderCache struct{}

func (NopOrderCache) GetByUserID(ctx context.Context, userID string) ([]*models.Order, error) {
	return nil, nil
}

func (NopOrderCache) SetByUserID(ctx context.Context, userID string, orders []*models.Order) error {
	return nil
}

func (NopOrderCache) InvalidateByUserID(ctx context.Context, userID string) error {
	return nil
}
