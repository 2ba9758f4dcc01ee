// Package analysis turns an interview transcript into a flat record: keyword
// and coding-request matches from the lexicon, a zero-shot question type and
// the named entities mentioned.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/question-analyzer/internal/ai"
	"github.com/spigell/question-analyzer/internal/lexicon"
	"github.com/spigell/question-analyzer/internal/logger"
)

// Analyzer is safe for concurrent use.
type Analyzer struct {
	lex    *lexicon.Lexicon
	stages []Stage
	logger *zap.Logger
	// observe is called after each stage.
	observe func(stage string, elapsed time.Duration, err error)
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger used for stage timings.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithStageObserver registers fn to be called after every stage run.
func WithStageObserver(fn func(stage string, elapsed time.Duration, err error)) Option {
	return func(a *Analyzer) {
		a.observe = fn
	}
}

// WithDisabledStage keeps the named stage in the pipeline but skips it.
func WithDisabledStage(name, reason string) Option {
	return func(a *Analyzer) {
		DisableByName(a.stages, name, reason)
	}
}

// New builds an Analyzer. The candidate labels are taken from lex. A nil
// extractor disables the entities stage.
func New(lex *lexicon.Lexicon, classifier ai.Classifier, extractor ai.EntityExtractor, opts ...Option) (*Analyzer, error) {
	if lex == nil {
		return nil, errors.New("lexicon is required")
	}
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}

	labels := lex.CandidateLabels()
	if len(labels) == 0 {
		return nil, ai.ErrNoLabels
	}

	entities := &entitiesStage{extractor: extractor}
	if extractor == nil {
		entities.Disable("no entity extractor configured")
	}

	a := &Analyzer{
		lex: lex,
		stages: []Stage{
			&keywordsStage{lex: lex},
			&codingStage{lex: lex},
			&questionStage{lex: lex},
			&classificationStage{classifier: classifier, labels: labels},
			entities,
		},
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Lexicon returns the lexicon the analyzer was built with.
func (a *Analyzer) Lexicon() *lexicon.Lexicon {
	return a.lex
}

// Describe reports the status of every stage.
func (a *Analyzer) Describe() []Status {
	return Describe(a.stages)
}

// Analyze runs every enabled stage over transcript. The transcript is
// reported unchanged in the result.
func (a *Analyzer) Analyze(ctx context.Context, transcript string) (*Result, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, ai.ErrEmptyText
	}

	r := newResult(transcript)
	r.RequestID = RequestIDFromContext(ctx)
	log := logger.WithRequestID(a.logger, r.RequestID)

	g, gctx := errgroup.WithContext(ctx)
	for _, stage := range a.stages {
		if !stage.IsEnabled() {
			continue
		}

		g.Go(func() error {
			start := time.Now()
			err := stage.Apply(gctx, transcript, r)
			elapsed := time.Since(start)

			if a.observe != nil {
				a.observe(stage.Name(), elapsed, err)
			}
			if err != nil {
				return fmt.Errorf("%s: %w", stage.Name(), err)
			}

			log.Debug("analysis stage", zap.String("name", stage.Name()), zap.Duration("elapsed", elapsed))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.IsTechnical = len(r.KeywordsDetected) > 0 || r.IsCodingQuestion

	log.Info("transcript analyzed",
		zap.String("question_type", r.QuestionType),
		zap.Float64("confidence", r.Confidence),
		zap.Bool("is_technical", r.IsTechnical),
		zap.Int("keywords", len(r.KeywordsDetected)),
		zap.Int("entities", len(r.Entities)),
	)

	return r, nil
}

type requestIDKey struct{}

// ContextWithRequestID attaches a request id that ends up in the Result.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request id set by ContextWithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}
