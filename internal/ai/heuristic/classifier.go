// Package heuristic implements the analysis backends without any model:
// label scoring by cue phrases and a dictionary entity matcher. It is used
// offline and as a deterministic baseline.
package heuristic

import (
	"context"
	"strings"

	"github.com/spigell/question-analyzer/internal/ai"
	"github.com/spigell/question-analyzer/internal/lexicon"
)

const (
	// Backend is the name used for this backend in logs and configuration.
	Backend = "heuristic"

	model = "lexicon-cues"

	// smoothing keeps labels without cue hits in the distribution.
	smoothing = 0.1
	// codingBoost is added to the coding label when a coding pattern matches.
	codingBoost = 2
	codingLabel = "coding exercise"
)

// Classifier scores candidate labels by counting cue phrases of each label
// that occur in the text.
type Classifier struct {
	lex *lexicon.Lexicon
}

// NewClassifier creates a Classifier backed by lex.
func NewClassifier(lex *lexicon.Lexicon) *Classifier {
	return &Classifier{lex: lex}
}

func (c *Classifier) Backend() string { return Backend }

// Model includes the lexicon fingerprint, so cached results of one
// lexicon are never served for another.
func (c *Classifier) Model() string { return model + "@" + c.lex.Fingerprint() }

// Classify returns a deterministic distribution over labels.
func (c *Classifier) Classify(ctx context.Context, text string, labels []string) (*ai.Classification, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ai.ErrEmptyText
	}
	if len(labels) == 0 {
		return nil, ai.ErrNoLabels
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	folded := lexicon.Fold(text)
	coding := c.lex.IsCodingRequest(text)

	scores := make([]float64, len(labels))
	for i, label := range labels {
		score := smoothing
		for _, cue := range c.lex.LabelCues(label) {
			if strings.Contains(folded, cue) {
				score++
			}
		}
		if coding && strings.EqualFold(label, codingLabel) {
			score += codingBoost
		}
		scores[i] = score
	}

	return ai.NewClassification(labels, scores), nil
}
