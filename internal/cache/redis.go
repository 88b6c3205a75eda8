package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"valetcore/internal/config"
	"valetcore/internal/domain"
	"valetcore/internal/models"

	"github.com/redis/go-redis/v9"
)

const dirtySetKey = "bookings:dirty"

// RedisCache keeps the local cache tiers of several processes on one machine
// in step. Each collection is a Redis hash of booking id → JSON, the dirty
// set a Redis set.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient creates a Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) GetBookings(ctx context.Context, collection string) ([]*models.Booking, error) {
	if c.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	raw, err := c.client.HGetAll(ctx, collectionKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get collection from redis: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	bookings := make([]*models.Booking, 0, len(raw))
	for id, data := range raw {
		var b models.Booking
		if err := json.Unmarshal([]byte(data), &b); err != nil {
			return nil, fmt.Errorf("failed to unmarshal booking %s: %w", id, err)
		}
		bookings = append(bookings, &b)
	}
	sortBookings(bookings)
	return bookings, nil
}

func (c *RedisCache) SetBookings(ctx context.Context, collection string, bookings []*models.Booking) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	key := collectionKey(collection)
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	for _, b := range bookings {
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("failed to marshal booking %s: %w", b.ID, err)
		}
		pipe.HSet(ctx, key, b.ID, data)
	}
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set collection in redis: %w", err)
	}
	return nil
}

func (c *RedisCache) GetBooking(ctx context.Context, collection, bookingID string) (*models.Booking, error) {
	if c.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	data, err := c.client.HGet(ctx, collectionKey(collection), bookingID).Result()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking from redis: %w", err)
	}

	var b models.Booking
	if err := json.Unmarshal([]byte(data), &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal booking %s: %w", bookingID, err)
	}
	return &b, nil
}

func (c *RedisCache) UpsertBooking(ctx context.Context, collection string, booking *models.Booking) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(booking)
	if err != nil {
		return fmt.Errorf("failed to marshal booking %s: %w", booking.ID, err)
	}
	if err := c.client.HSet(ctx, collectionKey(collection), booking.ID, data).Err(); err != nil {
		return fmt.Errorf("failed to upsert booking in redis: %w", err)
	}
	return nil
}

func (c *RedisCache) RemoveBooking(ctx context.Context, collection, bookingID string) (bool, error) {
	if c.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	removed, err := c.client.HDel(ctx, collectionKey(collection), bookingID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to remove booking from redis: %w", err)
	}
	return removed > 0, nil
}

func (c *RedisCache) GetProgress(ctx context.Context, bookingID string) (int, bool, error) {
	if c.client == nil {
		return 0, false, fmt.Errorf("redis client is nil")
	}
	val, err := c.client.Get(ctx, progressKey(bookingID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get progress from redis: %w", err)
	}
	pct, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("failed to parse progress value: %w", err)
	}
	return pct, true, nil
}

func (c *RedisCache) SetProgress(ctx context.Context, bookingID string, percent int) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := c.client.Set(ctx, progressKey(bookingID), strconv.Itoa(percent), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set progress in redis: %w", err)
	}
	return nil
}

func (c *RedisCache) MarkDirty(ctx context.Context, bookingID string) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := c.client.SAdd(ctx, dirtySetKey, bookingID).Err(); err != nil {
		return fmt.Errorf("failed to mark booking dirty: %w", err)
	}
	return nil
}

func (c *RedisCache) DirtyIDs(ctx context.Context) ([]string, error) {
	if c.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	ids, err := c.client.SMembers(ctx, dirtySetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read dirty set: %w", err)
	}
	return ids, nil
}

func (c *RedisCache) ClearDirty(ctx context.Context, bookingIDs ...string) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if len(bookingIDs) == 0 {
		return nil
	}
	members := make([]interface{}, 0, len(bookingIDs))
	for _, id := range bookingIDs {
		members = append(members, id)
	}
	if err := c.client.SRem(ctx, dirtySetKey, members...).Err(); err != nil {
		return fmt.Errorf("failed to clear dirty ids: %w", err)
	}
	return nil
}

func collectionKey(collection string) string {
	return "collection:" + collection
}

func progressKey(bookingID string) string {
	return "progress:" + bookingID
}

// Ping verifies the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
