package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spigell/question-analyzer/internal/ai"
)

type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Redis keeps classifications as JSON values in Redis.
type Redis struct {
	client redisClient
	ttl    time.Duration
}

// NewRedis connects to the Redis server at addr. A zero ttl keeps entries
// until they are evicted by Redis.
func NewRedis(addr string, db int, ttl time.Duration) (*Redis, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	if ttl < 0 {
		ttl = 0
	}

	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (*ai.Classification, bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var c ai.Classification
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, false, fmt.Errorf("decode cached classification: %w", err)
	}
	if len(c.Labels) != len(c.Scores) {
		return nil, false, fmt.Errorf("cached classification is corrupt: %d labels, %d scores", len(c.Labels), len(c.Scores))
	}
	return &c, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, c *ai.Classification) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode classification: %w", err)
	}
	if err := r.client.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks the connection to Redis.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
