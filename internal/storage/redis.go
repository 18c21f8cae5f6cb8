package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/raaihank/pii-sentinel/internal/logger"
)

// RedisJobStore mirrors job metadata into Redis so multiple instances
// behind a load balancer can answer status queries for each other's
// jobs. TTLs track job expiry, so Redis handles cleanup on its own.
type RedisJobStore struct {
	client *redis.Client
	prefix string
	log    *logger.Logger
}

// NewRedisJobStore connects and verifies the Redis instance is reachable
func NewRedisJobStore(url, prefix string, log *logger.Logger) (*RedisJobStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if prefix == "" {
		prefix = "sentinel:jobs:"
	}

	log.Info("Redis job store initialized",
		zap.String("redis_url", maskRedisURL(url)),
		zap.String("prefix", prefix))

	return &RedisJobStore{client: client, prefix: prefix, log: log}, nil
}

// Put stores a serializable job record with a TTL matching its expiry
func (rs *RedisJobStore) Put(ctx context.Context, jobID string, record any, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal job record: %w", err)
	}
	if err := rs.client.Set(ctx, rs.prefix+jobID, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store job record: %w", err)
	}
	return nil
}

// Get loads a job record into out. Returns ErrNotFound for unknown or
// already-expired jobs.
func (rs *RedisJobStore) Get(ctx context.Context, jobID string, out any) error {
	data, err := rs.client.Get(ctx, rs.prefix+jobID).Result()
	if err == redis.Nil {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load job record: %w", err)
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		// Corrupted entry, drop it rather than serving garbage
		rs.client.Del(ctx, rs.prefix+jobID)
		return fmt.Errorf("failed to unmarshal job record: %w", err)
	}
	return nil
}

// Delete removes a job record
func (rs *RedisJobStore) Delete(ctx context.Context, jobID string) error {
	if err := rs.client.Del(ctx, rs.prefix+jobID).Err(); err != nil {
		return fmt.Errorf("failed to delete job record: %w", err)
	}
	return nil
}

// Clear removes every job record under the store's prefix
func (rs *RedisJobStore) Clear(ctx context.Context) error {
	iter := rs.client.Scan(ctx, 0, rs.prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan job keys: %w", err)
	}

	for i := 0; i < len(keys); i += 100 {
		end := i + 100
		if end > len(keys) {
			end = len(keys)
		}
		if err := rs.client.Del(ctx, keys[i:end]...).Err(); err != nil {
			return fmt.Errorf("failed to delete job keys: %w", err)
		}
	}

	rs.log.Info("Job store cleared", zap.Int("deleted_keys", len(keys)))
	return nil
}

// Close closes the Redis connection
func (rs *RedisJobStore) Close() error {
	if rs.client != nil {
		return rs.client.Close()
	}
	return nil
}

// maskRedisURL hides credentials in Redis URLs before logging
func maskRedisURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if strings.Contains(userPart, ":") {
				userParts := strings.Split(userPart, ":")
				if len(userParts) >= 3 {
					userParts[len(userParts)-1] = "***"
					parts[0] = strings.Join(userParts, ":")
				}
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
