package cmd

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/question-analyzer/internal/cache"
	"github.com/spigell/question-analyzer/internal/server"
)

const (
	app = "question-analyzer"

	envPrefix = "QA"
)

type Config struct {
	LexiconFile string            `mapstructure:"lexicon-file"`
	Classifier  *BackendConfig    `mapstructure:"classifier"`
	Entities    *BackendConfig    `mapstructure:"entities"`
	ONNX        *ONNXConfig       `mapstructure:"onnx"`
	Gemini      *GeminiConfig     `mapstructure:"gemini"`
	Cache       *cache.Config     `mapstructure:"cache"`
	Server      *server.Config    `mapstructure:"server"`
	Disabled    map[string]string `mapstructure:"disabled-stages"`
}

type BackendConfig struct {
	Backend string `mapstructure:"backend"`
}

type ONNXConfig struct {
	LibraryPath        string `mapstructure:"library-path"`
	ZeroShotDir        string `mapstructure:"zero-shot-dir"`
	NERDir             string `mapstructure:"ner-dir"`
	MaxTokens          int    `mapstructure:"max-tokens"`
	HypothesisTemplate string `mapstructure:"hypothesis-template"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "question-analyzer classifies interview questions and extracts the technologies they mention",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("classifier.backend", backendHeuristic)
	viper.SetDefault("entities.backend", backendHeuristic)
	viper.SetDefault("cache.backend", cache.BackendNone)
	viper.SetDefault("cache.ttl", time.Hour)
	viper.SetDefault("server.listen", ":8080")

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is question-analyzer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		// Every setting has a default, so only an explicit config must exist.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, err
	}

	if config.Classifier == nil {
		config.Classifier = &BackendConfig{Backend: backendHeuristic}
	}
	if config.Entities == nil {
		config.Entities = &BackendConfig{Backend: backendHeuristic}
	}
	if config.ONNX == nil {
		config.ONNX = &ONNXConfig{}
	}
	if config.Gemini == nil {
		config.Gemini = &GeminiConfig{}
	}
	if config.Cache == nil {
		config.Cache = &cache.Config{}
	}
	if config.Server == nil {
		config.Server = &server.Config{}
	}

	return config, nil
}
