package ai

import (
	"context"
	"errors"
)

var (
	// ErrEmptyText is returned when there is nothing to analyze.
	ErrEmptyText = errors.New("text must not be empty")
	// ErrNoLabels is returned when a zero-shot classification is requested without candidate labels.
	ErrNoLabels = errors.New("at least one candidate label is required")
)

// Classifier assigns a score to every candidate label for the given text.
// The labels were not necessarily seen by the underlying model during training.
type Classifier interface {
	Classify(ctx context.Context, text string, labels []string) (*Classification, error)
}

// EntityExtractor finds named entity spans in the given text.
type EntityExtractor interface {
	Extract(ctx context.Context, text string) ([]Entity, error)
}

// Entity is a span of text that refers to a real-world object.
// Start and End are byte offsets into the analyzed text; both are -1
// when the backend could not locate the span.
type Entity struct {
	Text  string  `json:"text"`
	Label string  `json:"label,omitempty"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score,omitempty"`
}

// Describer is implemented by backends that can name the model they run.
type Describer interface {
	Backend() string
	Model() string
}
