package lexicon

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type fileFormat struct {
	TechnicalKeywords  []string            `yaml:"technical_keywords"`
	CodingPatterns     []string            `yaml:"coding_patterns"`
	CandidateLabels    []string            `yaml:"candidate_labels"`
	QuestionOpeners    []string            `yaml:"question_openers"`
	FollowUpIndicators []string            `yaml:"follow_up_indicators"`
	LabelCues          map[string][]string `yaml:"label_cues"`
	Entities           []Entity            `yaml:"entities"`
}

// Load reads a YAML lexicon file. Sections that are absent or empty keep
// their built-in values.
func Load(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon %q: %w", path, err)
	}

	l, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("lexicon %q: %w", path, err)
	}
	return l, nil
}

// Parse builds a lexicon from YAML data.
func Parse(data []byte) (*Lexicon, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	t := DefaultTables()
	if len(f.TechnicalKeywords) > 0 {
		t.TechnicalKeywords = f.TechnicalKeywords
	}
	if len(f.CodingPatterns) > 0 {
		t.CodingPatterns = f.CodingPatterns
	}
	if len(f.CandidateLabels) > 0 {
		t.CandidateLabels = f.CandidateLabels
	}
	if len(f.QuestionOpeners) > 0 {
		t.QuestionOpeners = f.QuestionOpeners
	}
	if len(f.FollowUpIndicators) > 0 {
		t.FollowUpIndicators = f.FollowUpIndicators
	}
	if len(f.LabelCues) > 0 {
		t.LabelCues = f.LabelCues
	}
	if len(f.Entities) > 0 {
		t.Entities = f.Entities
	}

	return New(t)
}

// LoadOrDefault loads path when it is set and returns the built-in lexicon otherwise.
func LoadOrDefault(path string) (*Lexicon, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}
