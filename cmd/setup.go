package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/question-analyzer/internal/analysis"
	"github.com/spigell/question-analyzer/internal/lexicon"
	"github.com/spigell/question-analyzer/internal/logger"
)

// environment is what every analyzing command starts from.
type environment struct {
	config   *Config
	logger   *zap.Logger
	lexicon  *lexicon.Lexicon
	backends *backends
}

// setup builds the logger, reads the config and loads the backends. Failures
// are fatal.
func setup(ctx context.Context) *environment {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	lex, err := lexicon.LoadOrDefault(config.LexiconFile)
	if err != nil {
		logger.Fatal("loading lexicon", zap.Error(err), zap.String("path", config.LexiconFile))
	}

	b, err := newBackends(ctx, config, logger)
	if err != nil {
		logger.Fatal("loading backends", zap.Error(err),
			zap.String("classifier", config.Classifier.Backend),
			zap.String("entities", config.Entities.Backend),
		)
	}

	return &environment{
		config:   config,
		logger:   logger,
		lexicon:  lex,
		backends: b,
	}
}

func (e *environment) analyzer(opts ...analysis.Option) *analysis.Analyzer {
	a, err := e.backends.analyzer(e.lexicon, opts...)
	if err != nil {
		e.logger.Fatal("creating analyzer", zap.Error(err))
	}
	return a
}

func (e *environment) close() {
	if err := e.backends.Close(); err != nil {
		e.logger.Warn("closing backends", zap.Error(err))
	}
	_ = e.logger.Sync()
}

// redacted returns a copy of config safe to print.
func redacted(config *Config) *Config {
	c := *config
	if c.Gemini != nil && c.Gemini.APIKey != "" {
		g := *c.Gemini
		g.APIKey = "***"
		c.Gemini = &g
	}
	return &c
}
