package onnx

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/spigell/question-analyzer/internal/ai"
)

// NER extracts named entities with a token classification model using
// BIO tags, for example PER, ORG, LOC and MISC.
type NER struct {
	name      string
	tokenizer *WordPieceTokenizer
	runner    runner
	labels    []string
	maxTokens int
	logger    *zap.Logger
}

// LoadNER loads a token classification bundle from dir.
func LoadNER(dir string, cfg Config, logger *zap.Logger) (*NER, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	b, err := loadBundle(dir)
	if err != nil {
		return nil, err
	}

	if err := Init(cfg.LibraryPath, dir); err != nil {
		return nil, err
	}

	tokenizer, err := LoadWordPieceTokenizer(b.vocabPath, b.lowerCase)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	maxTokens := b.maxTokens
	if cfg.MaxTokens > 0 {
		maxTokens = cfg.MaxTokens
	}

	s, err := newSession(b.modelPath, maxTokens, ort.NewShape(1, int64(maxTokens), int64(len(b.labels))), b.tokenTypes)
	if err != nil {
		return nil, err
	}

	logger.Info("ner model loaded",
		zap.String("model", b.name),
		zap.Strings("tags", b.labels),
		zap.Int("max_tokens", maxTokens),
	)

	return &NER{
		name:      b.name,
		tokenizer: tokenizer,
		runner:    s,
		labels:    b.labels,
		maxTokens: maxTokens,
		logger:    logger,
	}, nil
}

func (n *NER) Backend() string { return Backend }

func (n *NER) Model() string { return n.name }

// Extract returns the entities found in text ordered by position.
func (n *NER) Extract(ctx context.Context, text string) ([]ai.Entity, error) {
	if n == nil || n.runner == nil {
		return nil, errors.New("ner model is not initialized")
	}
	if strings.TrimSpace(text) == "" {
		return nil, ai.ErrEmptyText
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids, mask, offsets := n.tokenizer.EncodeWithOffsets(text, n.maxTokens)
	logits, err := n.runner.run(ids, mask, nil)
	if err != nil {
		return nil, err
	}

	predictions := predictTokens(logits, n.labels, offsets)
	entities := aggregateEntities(text, predictions)

	n.logger.Debug("ner entities", zap.Int("tokens", len(predictions)), zap.Int("entities", len(entities)))
	return entities, nil
}

// Close releases the ONNX session.
func (n *NER) Close() error {
	if n == nil || n.runner == nil {
		return nil
	}
	return n.runner.close()
}

type tokenPrediction struct {
	label  string
	score  float64
	offset tokenOffset
}

// predictTokens takes the argmax tag of every real token.
func predictTokens(logits []float32, labels []string, offsets []tokenOffset) []tokenPrediction {
	numLabels := len(labels)
	if numLabels == 0 {
		return nil
	}

	var out []tokenPrediction
	row := make([]float64, numLabels)
	for i, offset := range offsets {
		if offset.Start < 0 || offset.End <= offset.Start {
			continue
		}
		base := i * numLabels
		if base+numLabels > len(logits) {
			break
		}
		for j := range row {
			row[j] = float64(logits[base+j])
		}
		probs := ai.Softmax(row)

		best := 0
		bestScore := -math.MaxFloat64
		for j, p := range probs {
			if p > bestScore {
				best, bestScore = j, p
			}
		}
		out = append(out, tokenPrediction{label: labels[best], score: bestScore, offset: offset})
	}
	return out
}

type entitySpan struct {
	typ      string
	start    int
	end      int
	scoreSum float64
	count    int
}

func (s *entitySpan) add(p tokenPrediction) {
	if p.offset.End > s.end {
		s.end = p.offset.End
	}
	s.scoreSum += p.score
	s.count++
}

// aggregateEntities groups BIO tagged tokens into spans. A B tag or a change
// of type starts a new span. Overlapping or touching spans of the same type,
// as produced by sub-word pieces, are merged. Span scores are the mean token
// probability.
func aggregateEntities(text string, predictions []tokenPrediction) []ai.Entity {
	var spans []*entitySpan
	var cur *entitySpan

	for _, p := range predictions {
		prefix, typ := splitLabel(p.label)
		if typ == "" || strings.EqualFold(p.label, "O") {
			cur = nil
			continue
		}

		if prefix == "B" || cur == nil || !strings.EqualFold(cur.typ, typ) {
			if cur != nil && strings.EqualFold(cur.typ, typ) && p.offset.Start <= cur.end {
				cur.add(p)
				continue
			}
			cur = &entitySpan{typ: typ, start: p.offset.Start, end: p.offset.End}
			cur.scoreSum, cur.count = p.score, 1
			spans = append(spans, cur)
			continue
		}
		cur.add(p)
	}

	entities := make([]ai.Entity, 0, len(spans))
	for _, s := range spans {
		if s.start < 0 || s.end > len(text) || s.start >= s.end {
			continue
		}
		entities = append(entities, ai.Entity{
			Text:  text[s.start:s.end],
			Label: strings.ToUpper(s.typ),
			Start: s.start,
			End:   s.end,
			Score: s.scoreSum / float64(s.count),
		})
	}
	ai.SortEntities(entities)
	return entities
}

func splitLabel(label string) (string, string) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", ""
	}
	prefix, typ, found := strings.Cut(label, "-")
	if !found {
		return "", label
	}
	return strings.ToUpper(prefix), typ
}
