package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/spigell/question-analyzer/internal/ai"
)

const defaultMemorySize = 1024

// Memory is an in-process LRU cache with optional expiry.
type Memory struct {
	lru *expirable.LRU[string, *ai.Classification]
}

// NewMemory creates a Memory cache holding up to size entries for ttl.
// A non-positive size uses the default; a non-positive ttl never expires.
func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = defaultMemorySize
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Memory{lru: expirable.NewLRU[string, *ai.Classification](size, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, key string) (*ai.Classification, bool, error) {
	c, ok := m.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	return clone(c), true, nil
}

func (m *Memory) Set(_ context.Context, key string, c *ai.Classification) error {
	m.lru.Add(key, clone(c))
	return nil
}

// Len returns the number of cached entries.
func (m *Memory) Len() int {
	return m.lru.Len()
}
