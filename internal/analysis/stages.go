package analysis

import (
	"context"
	"strconv"
	"strings"

	"github.com/spigell/question-analyzer/internal/ai"
	"github.com/spigell/question-analyzer/internal/lexicon"
)

// Stage names.
const (
	StageKeywords       = "keywords"
	StageCoding         = "coding_patterns"
	StageQuestion       = "question_cues"
	StageClassification = "classification"
	StageEntities       = "entities"
)

// Stage is one step of the analysis. Stages run concurrently and every stage
// writes only its own fields of the Result.
type Stage interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool
	Status() Status

	Apply(ctx context.Context, transcript string, r *Result) error
}

// Status represents runtime information about a stage.
type Status struct {
	Name    string            `json:"name"`
	Enabled bool              `json:"enabled"`
	Reason  string            `json:"reason,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// Describe returns status entries for the provided stages.
func Describe(stages []Stage) []Status {
	statuses := make([]Status, 0, len(stages))
	for _, stage := range stages {
		statuses = append(statuses, stage.Status())
	}
	return statuses
}

// DisableByName marks a stage with the provided name as disabled while keeping it in the list.
func DisableByName(stages []Stage, name, reason string) bool {
	found := false
	for _, stage := range stages {
		if stage.Name() == name {
			stage.Disable(reason)
			found = true
		}
	}
	return found
}

type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

func (t *toggle) status(name string, details map[string]string) Status {
	return Status{Name: name, Enabled: !t.disabled, Reason: t.reason, Details: details}
}

type keywordsStage struct {
	toggle
	lex *lexicon.Lexicon
}

func (s *keywordsStage) Name() string { return StageKeywords }

func (s *keywordsStage) Apply(_ context.Context, transcript string, r *Result) error {
	r.KeywordsDetected = s.lex.Keywords(transcript)
	return nil
}

func (s *keywordsStage) Status() Status {
	return s.status(s.Name(), map[string]string{
		"keywords": strconv.Itoa(len(s.lex.TechnicalKeywords())),
	})
}

type codingStage struct {
	toggle
	lex *lexicon.Lexicon
}

func (s *codingStage) Name() string { return StageCoding }

func (s *codingStage) Apply(_ context.Context, transcript string, r *Result) error {
	r.IsCodingQuestion = s.lex.IsCodingRequest(transcript)
	return nil
}

func (s *codingStage) Status() Status {
	return s.status(s.Name(), map[string]string{
		"patterns": strconv.Itoa(len(s.lex.CodingPatterns())),
	})
}

type questionStage struct {
	toggle
	lex *lexicon.Lexicon
}

func (s *questionStage) Name() string { return StageQuestion }

func (s *questionStage) Apply(_ context.Context, transcript string, r *Result) error {
	r.IsQuestion = s.lex.IsQuestion(transcript)
	r.IsFollowUp = s.lex.IsFollowUp(transcript)
	return nil
}

func (s *questionStage) Status() Status {
	return s.status(s.Name(), nil)
}

type classificationStage struct {
	toggle
	classifier ai.Classifier
	labels     []string
}

func (s *classificationStage) Name() string { return StageClassification }

func (s *classificationStage) Apply(ctx context.Context, transcript string, r *Result) error {
	c, err := s.classifier.Classify(ctx, transcript, s.labels)
	if err != nil {
		return err
	}
	r.Classification = c
	r.QuestionType, r.Confidence = c.Top()
	return nil
}

func (s *classificationStage) Status() Status {
	details := describe(s.classifier)
	details["labels"] = strings.Join(s.labels, ", ")
	return s.status(s.Name(), details)
}

type entitiesStage struct {
	toggle
	extractor ai.EntityExtractor
}

func (s *entitiesStage) Name() string { return StageEntities }

func (s *entitiesStage) Apply(ctx context.Context, transcript string, r *Result) error {
	spans, err := s.extractor.Extract(ctx, transcript)
	if err != nil {
		return err
	}

	texts := make([]string, 0, len(spans))
	for _, span := range spans {
		texts = append(texts, span.Text)
	}
	if spans == nil {
		spans = []ai.Entity{}
	}

	r.EntitySpans = spans
	r.Entities = texts
	return nil
}

func (s *entitiesStage) Status() Status {
	return s.status(s.Name(), describe(s.extractor))
}

func describe(backend any) map[string]string {
	details := make(map[string]string)
	if d, ok := backend.(ai.Describer); ok {
		details["backend"] = d.Backend()
		if model := d.Model(); model != "" {
			details["model"] = model
		}
	}
	return details
}
