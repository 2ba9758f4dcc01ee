package gemini

import (
	"context"
	_ "embed"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/question-analyzer/internal/ai"
	"github.com/spigell/question-analyzer/internal/utils"
)

//go:embed prompts/entities.md
var entitiesPrompt string

// EntityExtractor asks Gemini for named entities and locates them in the transcript.
type EntityExtractor struct {
	generator jsonGenerator
	logger    *zap.Logger
	maxLogLen int
}

// NewEntityExtractor creates an EntityExtractor. A non-positive maxLogLength falls back to the default.
func NewEntityExtractor(generator jsonGenerator, maxLogLength int, logger *zap.Logger) *EntityExtractor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EntityExtractor{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (e *EntityExtractor) Backend() string { return Backend }

func (e *EntityExtractor) Model() string { return e.generator.Model() }

type entitySpan struct {
	Text string `mapstructure:"text"`
	Type string `mapstructure:"type"`
}

type entitiesResponse struct {
	Entities []entitySpan `mapstructure:"entities"`
}

// Extract returns the entities found in text ordered by position. Entities
// the model reports but that cannot be found in text are kept at the end
// with -1 offsets.
func (e *EntityExtractor) Extract(ctx context.Context, text string) ([]ai.Entity, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ai.ErrEmptyText
	}

	message := "Transcript:\n" + text

	e.logger.Debug("gemini entities request",
		zap.Int("message_length", utf8.RuneCountInString(message)),
		zap.String("message_preview", utils.TruncateForLog(message, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateJSON(ctx, entitiesPrompt, message, entitiesSchema())
	if err != nil {
		return nil, err
	}

	e.logger.Debug("gemini entities response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	var resp entitiesResponse
	if err := decodeResponse(raw, &resp); err != nil {
		return nil, err
	}

	return locateEntities(text, resp.Entities), nil
}

func entitiesSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"entities": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"text": {Type: genai.TypeString},
						"type": {Type: genai.TypeString},
					},
					Required: []string{"text", "type"},
				},
			},
		},
		Required: []string{"entities"},
	}
}

// locateEntities finds each span in text, scanning forward so repeated
// mentions map to successive occurrences.
func locateEntities(text string, spans []entitySpan) []ai.Entity {
	entities := make([]ai.Entity, 0, len(spans))
	lowered := strings.ToLower(text)
	// Case-insensitive lookup is only safe when lower-casing keeps byte offsets.
	foldable := len(lowered) == len(text)

	cursor := 0
	for _, span := range spans {
		needle := strings.TrimSpace(span.Text)
		if needle == "" {
			continue
		}

		start := find(text, needle, cursor)
		if start < 0 && foldable {
			// Case-insensitive lookup also needs the needle to keep its byte length.
			if n := strings.ToLower(needle); len(n) == len(needle) {
				start = find(lowered, n, cursor)
			}
		}

		entity := ai.Entity{
			Text:  needle,
			Label: strings.ToUpper(strings.TrimSpace(span.Type)),
			Start: -1,
			End:   -1,
		}
		if start >= 0 {
			entity.Start = start
			entity.End = start + len(needle)
			entity.Text = text[entity.Start:entity.End]
			cursor = entity.End
		}
		entities = append(entities, entity)
	}

	ai.SortEntities(entities)
	return entities
}

// find looks for needle at or after from, wrapping around to the beginning.
func find(haystack, needle string, from int) int {
	if from < len(haystack) {
		if idx := strings.Index(haystack[from:], needle); idx >= 0 {
			return from + idx
		}
	}
	return strings.Index(haystack, needle)
}
