package gemini

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/question-analyzer/internal/ai"
	"github.com/spigell/question-analyzer/internal/utils"
)

const (
	// Backend is the name used for this backend in logs and configuration.
	Backend = "gemini"

	defaultMaxLogLength = 200
)

//go:embed prompts/classify.md
var classifyPrompt string

type jsonGenerator interface {
	GenerateJSON(ctx context.Context, system, message string, schema *genai.Schema) (string, error)
	Model() string
}

// Classifier performs zero-shot classification by asking Gemini to score
// the candidate labels.
type Classifier struct {
	generator jsonGenerator
	logger    *zap.Logger
	maxLogLen int
}

// NewClassifier creates a Classifier. A non-positive maxLogLength falls back to the default.
func NewClassifier(generator jsonGenerator, maxLogLength int, logger *zap.Logger) *Classifier {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Classifier{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (c *Classifier) Backend() string { return Backend }

func (c *Classifier) Model() string { return c.generator.Model() }

type labelScore struct {
	Label string  `mapstructure:"label"`
	Score float64 `mapstructure:"score"`
}

type classifyResponse struct {
	Scores []labelScore `mapstructure:"scores"`
}

// Classify scores every candidate label for text.
func (c *Classifier) Classify(ctx context.Context, text string, labels []string) (*ai.Classification, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ai.ErrEmptyText
	}
	if len(labels) == 0 {
		return nil, ai.ErrNoLabels
	}

	message, err := buildClassifyMessage(text, labels)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("gemini classify request",
		zap.Int("labels", len(labels)),
		zap.Int("message_length", utf8.RuneCountInString(message)),
		zap.String("message_preview", utils.TruncateForLog(message, c.maxLogLen)),
	)

	raw, err := c.generator.GenerateJSON(ctx, classifyPrompt, message, classifySchema(labels))
	if err != nil {
		return nil, err
	}

	c.logger.Debug("gemini classify response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, c.maxLogLen)),
	)

	return parseClassification(raw, labels)
}

func buildClassifyMessage(text string, labels []string) (string, error) {
	labelsJSON, err := json.Marshal(labels)
	if err != nil {
		return "", fmt.Errorf("marshal candidate labels: %w", err)
	}

	var b strings.Builder
	b.WriteString("Candidate labels:\n")
	b.Write(labelsJSON)
	b.WriteString("\n\nTranscript:\n")
	b.WriteString(strings.TrimSpace(text))
	return b.String(), nil
}

func classifySchema(labels []string) *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"scores": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"label": {Type: genai.TypeString, Enum: labels},
						"score": {Type: genai.TypeNumber},
					},
					Required: []string{"label", "score"},
				},
			},
		},
		Required: []string{"scores"},
	}
}

// parseClassification maps the model answer back onto the candidate labels.
// Labels are matched case-insensitively; unknown labels are dropped and
// missing labels score zero.
func parseClassification(raw string, labels []string) (*ai.Classification, error) {
	var resp classifyResponse
	if err := decodeResponse(raw, &resp); err != nil {
		return nil, err
	}

	index := make(map[string]int, len(labels))
	for i, label := range labels {
		index[strings.ToLower(strings.TrimSpace(label))] = i
	}

	scores := make([]float64, len(labels))
	matched := 0
	for _, s := range resp.Scores {
		i, ok := index[strings.ToLower(strings.TrimSpace(s.Label))]
		if !ok {
			continue
		}
		scores[i] += s.Score
		matched++
	}

	if matched == 0 {
		return nil, errors.New("gemini response scored none of the candidate labels")
	}

	return ai.NewClassification(labels, scores), nil
}
