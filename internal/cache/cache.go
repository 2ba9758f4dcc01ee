// Package cache stores zero-shot classification results so repeated
// transcripts skip the model.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spigell/question-analyzer/internal/ai"
)

const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"

	keyPrefix = "qa:classification:"
)

// Cache stores classifications by key.
type Cache interface {
	// Get reports a miss with a nil classification and false.
	Get(ctx context.Context, key string) (*ai.Classification, bool, error)
	Set(ctx context.Context, key string, c *ai.Classification) error
}

// Pinger is implemented by caches backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config selects and tunes a cache backend.
type Config struct {
	Backend   string        `mapstructure:"backend"`
	Size      int           `mapstructure:"size"`
	TTL       time.Duration `mapstructure:"ttl"`
	RedisAddr string        `mapstructure:"redis-addr"`
	RedisDB   int           `mapstructure:"redis-db"`
}

// New builds the cache described by cfg. It returns nil for the "none"
// backend or an empty one.
func New(cfg Config) (Cache, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendNone:
		return nil, nil
	case BackendMemory:
		return NewMemory(cfg.Size, cfg.TTL), nil
	case BackendRedis:
		r, err := NewRedis(cfg.RedisAddr, cfg.RedisDB, cfg.TTL)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// Key derives the cache key of a classification request.
func Key(model string, labels []string, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(labels, "\x1f")))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

func clone(c *ai.Classification) *ai.Classification {
	if c == nil {
		return nil
	}
	return &ai.Classification{
		Labels: slices.Clone(c.Labels),
		Scores: slices.Clone(c.Scores),
	}
}
