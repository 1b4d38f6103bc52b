// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package cost

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// budgetKeyTTL keeps a day's spend around long enough to survive clock
// skew across instances before Redis expires it.
const budgetKeyTTL = 48 * time.Hour

// RedisStore shares budget state across horizontally-scaled instances.
// All instances serving the same user must point at the same Redis.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore creates a budget store backed by the given Redis
// client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, keyPrefix: "chartsight:budget"}
}

func (s *RedisStore) key(userID, day string) string {
	return fmt.Sprintf("%s:%s:%s", s.keyPrefix, userID, day)
}

// SpentToday implements Store.
func (s *RedisStore) SpentToday(ctx context.Context, userID, day string) (float64, error) {
	val, err := s.client.Get(ctx, s.key(userID, day)).Float64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis budget read failed: %w", err)
	}
	return val, nil
}

// AddSpend implements Store. The key expires on its own once the day's
// window is well past.
func (s *RedisStore) AddSpend(ctx context.Context, userID, day string, amount float64) (float64, error) {
	key := s.key(userID, day)
	total, err := s.client.IncrByFloat(ctx, key, amount).Result()
	if err != nil {
		return 0, fmt.Errorf("redis budget write failed: %w", err)
	}
	if err := s.client.Expire(ctx, key, budgetKeyTTL).Err(); err != nil {
		return total, fmt.Errorf("redis budget expire failed: %w", err)
	}
	return total, nil
}

// Ping verifies connectivity for health checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
