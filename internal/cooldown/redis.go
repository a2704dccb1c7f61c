package cooldown

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the cooldown table and rate-limit counters with Redis so
// multiple monitor instances share suppression state. Rate limiting uses a
// fixed one-hour window keyed by hour bucket.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Cooldown store connected to Redis: %s", addr)

	return &RedisStore{rdb: rdb}, nil
}

// MarkIfNotWithin reserves the fingerprint with SET NX so the check and the
// mark are a single server-side operation; the key's TTL is the cooldown
// window itself, shared by every monitor instance.
func (s *RedisStore) MarkIfNotWithin(ctx context.Context, fingerprint string, at time.Time, window time.Duration) (bool, error) {
	key := fmt.Sprintf("cooldown:%s", fingerprint)

	won, err := s.rdb.SetNX(ctx, key, at.Format(time.RFC3339Nano), window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve cooldown key: %w", err)
	}

	return won, nil
}

func (s *RedisStore) AllowChannel(ctx context.Context, channel string, limit uint, now time.Time) (bool, error) {
	if limit == 0 {
		return true, nil
	}

	key := fmt.Sprintf("ratelimit:%s:%s", channel, now.UTC().Format("2006010215"))

	count, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	// First increment creates the bucket; bound its lifetime to the window.
	if count == 1 {
		if err := s.rdb.Expire(ctx, key, time.Hour).Err(); err != nil {
			return false, fmt.Errorf("failed to expire rate limit counter: %w", err)
		}
	}

	if uint(count) > limit {
		return false, nil
	}

	return true, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
