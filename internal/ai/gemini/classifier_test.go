package gemini

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/question-analyzer/internal/ai"
)

type stubGenerator struct {
	response    string
	err         error
	lastSystem  string
	lastMessage string
	lastSchema  *genai.Schema
}

func (s *stubGenerator) GenerateJSON(_ context.Context, system, message string, schema *genai.Schema) (string, error) {
	s.lastSystem = system
	s.lastMessage = message
	s.lastSchema = schema
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) Model() string {
	return "stub-model"
}

var testLabels = []string{"technical explanation", "coding exercise", "behavioral"}

func TestClassifierClassify(t *testing.T) {
	stub := &stubGenerator{response: `{"scores": [
		{"label": "coding exercise", "score": 0.7},
		{"label": "Technical Explanation", "score": "0.2"},
		{"label": "behavioral", "score": 0.1}
	]}`}
	classifier := NewClassifier(stub, 0, zap.NewNop())

	result, err := classifier.Classify(context.Background(), "Write a function that flattens an array.", testLabels)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	label, score := result.Top()
	if label != "coding exercise" {
		t.Fatalf("expected coding exercise, got %q", label)
	}
	if math.Abs(score-0.7) > 1e-9 {
		t.Fatalf("expected score 0.7, got %v", score)
	}
	if math.Abs(result.Score("technical explanation")-0.2) > 1e-9 {
		t.Fatalf("expected string score to be decoded, got %v", result.Score("technical explanation"))
	}

	if stub.lastSystem != classifyPrompt {
		t.Fatalf("expected classify prompt as system instruction")
	}
	if !strings.Contains(stub.lastMessage, `["technical explanation","coding exercise","behavioral"]`) {
		t.Fatalf("expected labels in message, got %q", stub.lastMessage)
	}
	if !strings.HasSuffix(stub.lastMessage, "Write a function that flattens an array.") {
		t.Fatalf("expected transcript at the end of message, got %q", stub.lastMessage)
	}

	enum := stub.lastSchema.Properties["scores"].Items.Properties["label"].Enum
	if len(enum) != len(testLabels) {
		t.Fatalf("expected label enum in schema, got %v", enum)
	}

	if classifier.Backend() != Backend || classifier.Model() != "stub-model" {
		t.Fatalf("unexpected backend description")
	}
}

func TestClassifierValidatesInput(t *testing.T) {
	classifier := NewClassifier(&stubGenerator{}, 0, nil)

	if _, err := classifier.Classify(context.Background(), "  ", testLabels); !errors.Is(err, ai.ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	if _, err := classifier.Classify(context.Background(), "text", nil); !errors.Is(err, ai.ErrNoLabels) {
		t.Fatalf("expected ErrNoLabels, got %v", err)
	}
}

func TestClassifierPropagatesGeneratorError(t *testing.T) {
	boom := errors.New("boom")
	classifier := NewClassifier(&stubGenerator{err: boom}, 0, zap.NewNop())

	if _, err := classifier.Classify(context.Background(), "text", testLabels); !errors.Is(err, boom) {
		t.Fatalf("expected generator error, got %v", err)
	}
}

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		top     string
		wantErr bool
	}{
		{
			name: "code fence",
			raw:  "```json\n{\"scores\": [{\"label\": \"behavioral\", \"score\": 0.9}]}\n```",
			top:  "behavioral",
		},
		{
			name: "chatter around object",
			raw:  "Sure! {\"scores\": [{\"label\": \"coding exercise\", \"score\": 1}]} Hope it helps.",
			top:  "coding exercise",
		},
		{
			name: "unknown labels are dropped",
			raw:  `{"scores": [{"label": "small talk", "score": 0.8}, {"label": "behavioral", "score": 0.2}]}`,
			top:  "behavioral",
		},
		{
			name:    "no known labels",
			raw:     `{"scores": [{"label": "small talk", "score": 1}]}`,
			wantErr: true,
		},
		{
			name:    "not json",
			raw:     "I cannot help with that",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseClassification(tt.raw, testLabels)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if label, _ := result.Top(); label != tt.top {
				t.Fatalf("expected top %q, got %q", tt.top, label)
			}
			if len(result.Labels) != len(testLabels) {
				t.Fatalf("expected every candidate label in result, got %v", result.Labels)
			}
		})
	}
}
