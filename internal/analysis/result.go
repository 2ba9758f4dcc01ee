package analysis

import "github.com/spigell/question-analyzer/internal/ai"

// Result is the flat record produced for one transcript.
type Result struct {
	IsTechnical      bool     `json:"is_technical"`
	IsCodingQuestion bool     `json:"is_coding_question"`
	QuestionType     string   `json:"question_type"`
	Confidence       float64  `json:"confidence"`
	KeywordsDetected []string `json:"keywords_detected"`
	Entities         []string `json:"entities"`
	Transcript       string   `json:"transcript"`

	IsQuestion bool   `json:"is_question"`
	IsFollowUp bool   `json:"is_follow_up"`
	Context    string `json:"context,omitempty"`
	RequestID  string `json:"request_id,omitempty"`

	// Classification and EntitySpans keep the full model output.
	Classification *ai.Classification `json:"-"`
	EntitySpans    []ai.Entity        `json:"-"`
}

func newResult(transcript string) *Result {
	return &Result{
		KeywordsDetected: []string{},
		Entities:         []string{},
		EntitySpans:      []ai.Entity{},
		Transcript:       transcript,
	}
}

// AsMap returns the result as a flat dictionary keyed like the JSON form.
func (r *Result) AsMap() map[string]any {
	keywords := r.KeywordsDetected
	if keywords == nil {
		keywords = []string{}
	}
	entities := r.Entities
	if entities == nil {
		entities = []string{}
	}

	m := map[string]any{
		"is_technical":       r.IsTechnical,
		"is_coding_question": r.IsCodingQuestion,
		"question_type":      r.QuestionType,
		"confidence":         r.Confidence,
		"keywords_detected":  keywords,
		"entities":           entities,
		"transcript":         r.Transcript,
		"is_question":        r.IsQuestion,
		"is_follow_up":       r.IsFollowUp,
	}
	if r.Context != "" {
		m["context"] = r.Context
	}
	if r.RequestID != "" {
		m["request_id"] = r.RequestID
	}
	return m
}
