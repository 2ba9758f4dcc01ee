package onnx

import (
	"context"
	"errors"
	"fmt"
	"strings"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/spigell/question-analyzer/internal/ai"
)

// DefaultHypothesisTemplate turns a candidate label into an NLI hypothesis.
const DefaultHypothesisTemplate = "This example is {}."

// Config holds the settings shared by the ONNX backends.
type Config struct {
	// LibraryPath points at the onnxruntime shared library.
	LibraryPath string
	// MaxTokens overrides the sequence length of the bundle.
	MaxTokens int
	// HypothesisTemplate is used by ZeroShot. Both "{}" and "{label}" are
	// replaced with the candidate label.
	HypothesisTemplate string
}

// ZeroShot classifies text over arbitrary labels with a natural language
// inference model. Every label is turned into a hypothesis and scored by the
// entailment logit; the logits are softmaxed across labels.
type ZeroShot struct {
	name       string
	tokenizer  *WordPieceTokenizer
	runner     runner
	numLabels  int
	entailment int
	template   string
	maxTokens  int
	logger     *zap.Logger
}

// LoadZeroShot loads an NLI model bundle from dir.
func LoadZeroShot(dir string, cfg Config, logger *zap.Logger) (*ZeroShot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	b, err := loadBundle(dir)
	if err != nil {
		return nil, err
	}

	entailment, err := entailmentIndex(b.labels, b.entailmentLabel)
	if err != nil {
		return nil, fmt.Errorf("zero-shot model %s: %w", b.name, err)
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

	s, err := newSession(b.modelPath, maxTokens, ort.NewShape(1, int64(len(b.labels))), b.tokenTypes)
	if err != nil {
		return nil, err
	}

	logger.Info("zero-shot model loaded",
		zap.String("model", b.name),
		zap.Strings("nli_labels", b.labels),
		zap.Int("max_tokens", maxTokens),
	)

	return &ZeroShot{
		name:       b.name,
		tokenizer:  tokenizer,
		runner:     s,
		numLabels:  len(b.labels),
		entailment: entailment,
		template:   cfg.HypothesisTemplate,
		maxTokens:  maxTokens,
		logger:     logger,
	}, nil
}

func (z *ZeroShot) Backend() string { return Backend }

func (z *ZeroShot) Model() string { return z.name }

// Classify scores every candidate label for text.
func (z *ZeroShot) Classify(ctx context.Context, text string, labels []string) (*ai.Classification, error) {
	if z == nil || z.runner == nil {
		return nil, errors.New("zero-shot model is not initialized")
	}
	if strings.TrimSpace(text) == "" {
		return nil, ai.ErrEmptyText
	}
	if len(labels) == 0 {
		return nil, ai.ErrNoLabels
	}

	entailments := make([]float64, len(labels))
	for i, label := range labels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ids, mask, types := z.tokenizer.EncodePair(text, hypothesis(z.template, label), z.maxTokens)
		logits, err := z.runner.run(ids, mask, types)
		if err != nil {
			return nil, fmt.Errorf("score label %q: %w", label, err)
		}
		if len(logits) < z.numLabels || z.entailment >= len(logits) {
			return nil, fmt.Errorf("unexpected output size %d for %d nli labels", len(logits), z.numLabels)
		}
		entailments[i] = float64(logits[z.entailment])
	}

	z.logger.Debug("zero-shot entailment logits",
		zap.Strings("labels", labels),
		zap.Float64s("logits", entailments),
	)

	return ai.NewClassification(labels, ai.Softmax(entailments)), nil
}

// Close releases the ONNX session.
func (z *ZeroShot) Close() error {
	if z == nil || z.runner == nil {
		return nil
	}
	return z.runner.close()
}

func hypothesis(template, label string) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultHypothesisTemplate
	}
	if strings.Contains(template, "{label}") {
		return strings.ReplaceAll(template, "{label}", label)
	}
	if strings.Contains(template, "{}") {
		return strings.ReplaceAll(template, "{}", label)
	}
	return template + " " + label
}

// entailmentIndex finds the output index of the entailment class. An explicit
// name wins; otherwise the first label starting with "entail" is used.
func entailmentIndex(labels []string, explicit string) (int, error) {
	if explicit != "" {
		for i, label := range labels {
			if strings.EqualFold(label, explicit) {
				return i, nil
			}
		}
		return -1, fmt.Errorf("entailment label %q not found in %v", explicit, labels)
	}

	for i, label := range labels {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(label)), "entail") {
			return i, nil
		}
	}
	return -1, fmt.Errorf("no entailment label in %v", labels)
}
