package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/question-analyzer/internal/ai"
)

// Classifier serves classifications from a Cache and falls through to the
// wrapped classifier on a miss. Cache failures are logged and never fail
// the classification.
type Classifier struct {
	next   ai.Classifier
	cache  Cache
	model  string
	logger *zap.Logger
}

// NewClassifier wraps next with cache. The cache key includes the model
// reported by next when it implements ai.Describer.
func NewClassifier(next ai.Classifier, cache Cache, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}

	model := ""
	if d, ok := next.(ai.Describer); ok {
		model = d.Backend() + "/" + d.Model()
	}

	return &Classifier{next: next, cache: cache, model: model, logger: logger}
}

func (c *Classifier) Backend() string {
	if d, ok := c.next.(ai.Describer); ok {
		return d.Backend()
	}
	return ""
}

func (c *Classifier) Model() string {
	if d, ok := c.next.(ai.Describer); ok {
		return d.Model()
	}
	return ""
}

func (c *Classifier) Classify(ctx context.Context, text string, labels []string) (*ai.Classification, error) {
	if c.cache == nil {
		return c.next.Classify(ctx, text, labels)
	}

	key := Key(c.model, labels, text)

	cached, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		c.logger.Warn("classification cache lookup failed", zap.Error(err))
	case ok:
		c.logger.Debug("classification cache hit", zap.String("key", key))
		return cached, nil
	}

	result, err := c.next.Classify(ctx, text, labels)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, result); err != nil {
		c.logger.Warn("classification cache store failed", zap.Error(err))
	}
	return result, nil
}
