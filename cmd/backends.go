package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/question-analyzer/internal/ai"
	"github.com/spigell/question-analyzer/internal/ai/gemini"
	"github.com/spigell/question-analyzer/internal/ai/heuristic"
	"github.com/spigell/question-analyzer/internal/ai/onnx"
	"github.com/spigell/question-analyzer/internal/analysis"
	"github.com/spigell/question-analyzer/internal/cache"
	"github.com/spigell/question-analyzer/internal/lexicon"
	"github.com/spigell/question-analyzer/internal/logger"
	"github.com/spigell/question-analyzer/internal/secrets"
)

const (
	backendHeuristic = heuristic.Backend
	backendONNX      = onnx.Backend
	backendGemini    = gemini.Backend
	backendNone      = "none"
)

// backends owns the model backends and the cache for the lifetime of a
// command. The heuristic backends depend on the lexicon, so they are rebuilt
// for every analyzer; the model backends are loaded once.
type backends struct {
	cfg        *Config
	classifier ai.Classifier
	extractor  ai.EntityExtractor
	cache      cache.Cache
	closers    []io.Closer
	onnx       bool
	logger     *zap.Logger
}

func newBackends(ctx context.Context, cfg *Config, log *zap.Logger) (*backends, error) {
	b := &backends{cfg: cfg, logger: log}

	var generator *gemini.Generator
	geminiGenerator := func() (*gemini.Generator, error) {
		if generator != nil {
			return generator, nil
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: cfg.Gemini.APIKey,
			File:  cfg.Gemini.APIKeyFile,
			Env:   "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, err
		}

		g, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, log)
		if err != nil {
			return nil, err
		}
		generator = g
		return g, nil
	}

	onnxConfig := onnx.Config{
		LibraryPath:        cfg.ONNX.LibraryPath,
		MaxTokens:          cfg.ONNX.MaxTokens,
		HypothesisTemplate: cfg.ONNX.HypothesisTemplate,
	}

	switch backend := normalizeBackend(cfg.Classifier.Backend); backend {
	case backendHeuristic:
	case backendONNX:
		if cfg.ONNX.ZeroShotDir == "" {
			return nil, b.fail(errors.New("onnx.zero-shot-dir is required for the onnx classifier"))
		}
		z, err := onnx.LoadZeroShot(cfg.ONNX.ZeroShotDir, onnxConfig, log)
		if err != nil {
			return nil, b.fail(fmt.Errorf("load zero-shot model: %w", err))
		}
		b.onnx = true
		b.classifier = z
		b.closers = append(b.closers, z)
	case backendGemini:
		g, err := geminiGenerator()
		if err != nil {
			return nil, b.fail(err)
		}
		b.classifier = gemini.NewClassifier(g, cfg.Gemini.MaxLogLength, log)
	default:
		return nil, b.fail(fmt.Errorf("unknown classifier backend %q", backend))
	}

	switch backend := normalizeBackend(cfg.Entities.Backend); backend {
	case backendHeuristic, backendNone:
	case backendONNX:
		if cfg.ONNX.NERDir == "" {
			return nil, b.fail(errors.New("onnx.ner-dir is required for the onnx entity extractor"))
		}
		n, err := onnx.LoadNER(cfg.ONNX.NERDir, onnxConfig, log)
		if err != nil {
			return nil, b.fail(fmt.Errorf("load ner model: %w", err))
		}
		b.onnx = true
		b.extractor = n
		b.closers = append(b.closers, n)
	case backendGemini:
		g, err := geminiGenerator()
		if err != nil {
			return nil, b.fail(err)
		}
		b.extractor = gemini.NewEntityExtractor(g, cfg.Gemini.MaxLogLength, log)
	default:
		return nil, b.fail(fmt.Errorf("unknown entities backend %q", backend))
	}

	c, err := cache.New(*cfg.Cache)
	if err != nil {
		return nil, b.fail(fmt.Errorf("create cache: %w", err))
	}
	b.cache = c
	if closer, ok := c.(io.Closer); ok {
		b.closers = append(b.closers, closer)
	}

	return b, nil
}

// analyzer builds an analyzer for lex on top of the loaded backends.
func (b *backends) analyzer(lex *lexicon.Lexicon, opts ...analysis.Option) (*analysis.Analyzer, error) {
	classifier := b.classifier
	if classifier == nil {
		classifier = heuristic.NewClassifier(lex)
	}

	extractor := b.extractor
	disabled := normalizeBackend(b.cfg.Entities.Backend) == backendNone
	if extractor == nil && !disabled {
		extractor = heuristic.NewEntityExtractor(lex)
	}

	describe(b.logger, "classifier", classifier)
	if extractor != nil {
		describe(b.logger, "entity extractor", extractor)
	}

	classifier = cache.NewClassifier(classifier, b.cache, b.logger)

	opts = append([]analysis.Option{analysis.WithLogger(b.logger)}, opts...)
	for name, reason := range b.cfg.Disabled {
		opts = append(opts, analysis.WithDisabledStage(name, reason))
	}

	return analysis.New(lex, classifier, extractor, opts...)
}

// pinger returns the cache as a health check target when it supports one.
func (b *backends) pinger() cache.Pinger {
	p, _ := b.cache.(cache.Pinger)
	return p
}

func (b *backends) Close() error {
	var errs []error
	for _, c := range b.closers {
		errs = append(errs, c.Close())
	}
	if b.onnx {
		errs = append(errs, onnx.Shutdown())
	}
	return errors.Join(errs...)
}

func (b *backends) fail(err error) error {
	if closeErr := b.Close(); closeErr != nil {
		b.logger.Warn("closing backends", zap.Error(closeErr))
	}
	return err
}

func normalizeBackend(backend string) string {
	backend = strings.ToLower(strings.TrimSpace(backend))
	if backend == "" {
		return backendHeuristic
	}
	return backend
}

func describe(log *zap.Logger, role string, backend any) {
	if d, ok := backend.(ai.Describer); ok {
		logger.WithCommonFields(log, d.Backend(), d.Model()).Info("using " + role)
	}
}
