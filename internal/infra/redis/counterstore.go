package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/JiminSongSoftware/gagyo-push/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

var addScript = goredis.NewScript(`
local current = redis.call("INCRBY", KEYS[1], ARGV[1])
if redis.call("TTL", KEYS[1]) < 0 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
return current
`)

var _ ratelimit.CounterStore = (*RedisCounterStore)(nil)

// RedisCounterStore is the shared admission counter store. All instances of
// the service increment the same tenant window keys, so the cap holds across
// a multi-instance deployment.
type RedisCounterStore struct {
	client *goredis.Client
	script *goredis.Script
}

func NewRedisCounterStore(client *goredis.Client) (*RedisCounterStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	return &RedisCounterStore{
		client: client,
		script: addScript,
	}, nil
}

func (s *RedisCounterStore) Add(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	if s == nil || s.client == nil || s.script == nil {
		return 0, fmt.Errorf("counter store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ttlSeconds := int64(ttl / time.Second)
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}

	value, err := s.script.Run(ctx, s.client, []string{key}, delta, ttlSeconds).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to update counter: %w", err)
	}

	return value, nil
}

func (s *RedisCounterStore) Get(ctx context.Context, key string) (int64, error) {
	if s == nil || s.client == nil {
		return 0, fmt.Errorf("counter store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	value, err := s.client.Get(ctx, key).Int64()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read counter: %w", err)
	}

	return value, nil
}
