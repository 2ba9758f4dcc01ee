// Package lexicon holds the static tables used to inspect interview
// transcripts: technical keywords, coding-request patterns, candidate
// question labels and a few supplemental cue lists.
package lexicon

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Entity is a dictionary entry recognized by the offline entity extractor.
type Entity struct {
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type"`
	Variants []string `yaml:"variants"`
}

// Lexicon is immutable once built and safe for concurrent use.
type Lexicon struct {
	technicalKeywords  []string
	foldedKeywords     []string
	codingPatterns     []*regexp.Regexp
	candidateLabels    []string
	questionOpeners    []string
	followUpIndicators []string
	labelCues          map[string][]string
	entities           []Entity
	fingerprint        string
}

// Tables are the raw inputs of a Lexicon.
type Tables struct {
	TechnicalKeywords  []string
	CodingPatterns     []string
	CandidateLabels    []string
	QuestionOpeners    []string
	FollowUpIndicators []string
	LabelCues          map[string][]string
	Entities           []Entity
}

// Default returns the built-in lexicon.
func Default() *Lexicon {
	l, err := New(DefaultTables())
	if err != nil {
		panic(fmt.Sprintf("built-in lexicon is invalid: %v", err))
	}
	return l
}

// DefaultTables returns a copy of the built-in tables.
func DefaultTables() Tables {
	cues := make(map[string][]string, len(defaultLabelCues))
	for label, list := range defaultLabelCues {
		cues[label] = slices.Clone(list)
	}

	entities := make([]Entity, len(defaultEntities))
	for i, e := range defaultEntities {
		entities[i] = Entity{Name: e.Name, Type: e.Type, Variants: slices.Clone(e.Variants)}
	}

	return Tables{
		TechnicalKeywords:  slices.Clone(defaultTechnicalKeywords),
		CodingPatterns:     slices.Clone(defaultCodingPatterns),
		CandidateLabels:    slices.Clone(defaultCandidateLabels),
		QuestionOpeners:    slices.Clone(defaultQuestionOpeners),
		FollowUpIndicators: slices.Clone(defaultFollowUpIndicators),
		LabelCues:          cues,
		Entities:           entities,
	}
}

// New validates the tables and compiles the coding patterns.
func New(t Tables) (*Lexicon, error) {
	labels := make([]string, 0, len(t.CandidateLabels))
	seen := make(map[string]struct{}, len(t.CandidateLabels))
	for _, label := range t.CandidateLabels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			return nil, fmt.Errorf("duplicate candidate label %q", label)
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("at least one candidate label is required")
	}

	patterns := make([]*regexp.Regexp, 0, len(t.CodingPatterns))
	for _, raw := range t.CodingPatterns {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		re, err := regexp.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("compile coding pattern %q: %w", raw, err)
		}
		patterns = append(patterns, re)
	}

	keywords := trimAll(t.TechnicalKeywords)
	folded := make([]string, len(keywords))
	for i, kw := range keywords {
		folded[i] = Fold(kw)
	}

	cues := make(map[string][]string, len(t.LabelCues))
	for label, list := range t.LabelCues {
		cues[label] = foldAll(list)
	}

	entities := make([]Entity, 0, len(t.Entities))
	for _, e := range t.Entities {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("dictionary entity without a name")
		}
		entities = append(entities, Entity{
			Name:     name,
			Type:     strings.TrimSpace(e.Type),
			Variants: trimAll(e.Variants),
		})
	}

	l := &Lexicon{
		technicalKeywords:  keywords,
		foldedKeywords:     folded,
		codingPatterns:     patterns,
		candidateLabels:    labels,
		questionOpeners:    foldAll(t.QuestionOpeners),
		followUpIndicators: foldAll(t.FollowUpIndicators),
		labelCues:          cues,
		entities:           entities,
	}
	l.fingerprint = l.digest()
	return l, nil
}

// Fingerprint identifies the table contents. Lexicons built from equal
// tables share a fingerprint.
func (l *Lexicon) Fingerprint() string {
	return l.fingerprint
}

func (l *Lexicon) digest() string {
	patterns := make([]string, len(l.codingPatterns))
	for i, re := range l.codingPatterns {
		patterns[i] = re.String()
	}

	// encoding/json sorts map keys, so the encoding is stable.
	data, _ := json.Marshal(struct {
		Keywords  []string            `json:"k"`
		Patterns  []string            `json:"p"`
		Labels    []string            `json:"l"`
		Openers   []string            `json:"o"`
		FollowUps []string            `json:"f"`
		Cues      map[string][]string `json:"c"`
		Entities  []Entity            `json:"e"`
	}{
		l.technicalKeywords, patterns, l.candidateLabels,
		l.questionOpeners, l.followUpIndicators, l.labelCues, l.entities,
	})

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:6])
}

// Fold lower-cases text using English casing rules.
func Fold(text string) string {
	// A Caser keeps state between calls, so each call gets its own.
	return cases.Lower(language.English).String(text)
}

// Keywords returns every technical keyword found in text, in table order and
// original spelling. Matching is a case-insensitive substring search.
func (l *Lexicon) Keywords(text string) []string {
	found := make([]string, 0)
	folded := Fold(text)
	for i, kw := range l.foldedKeywords {
		if kw != "" && strings.Contains(folded, kw) {
			found = append(found, l.technicalKeywords[i])
		}
	}
	return found
}

// IsCodingRequest reports whether any coding pattern matches the lower-cased text.
func (l *Lexicon) IsCodingRequest(text string) bool {
	folded := Fold(text)
	for _, re := range l.codingPatterns {
		if re.MatchString(folded) {
			return true
		}
	}
	return false
}

// MatchedPatterns returns the source of every coding pattern that matches text.
func (l *Lexicon) MatchedPatterns(text string) []string {
	folded := Fold(text)
	var matched []string
	for _, re := range l.codingPatterns {
		if re.MatchString(folded) {
			matched = append(matched, re.String())
		}
	}
	return matched
}

// IsQuestion reports whether text looks like a question: it contains a
// question mark or starts with one of the question openers.
func (l *Lexicon) IsQuestion(text string) bool {
	folded := strings.TrimSpace(Fold(text))
	if strings.Contains(folded, "?") {
		return true
	}
	for _, opener := range l.questionOpeners {
		if strings.HasPrefix(folded, opener) {
			return true
		}
	}
	return false
}

// IsFollowUp reports whether text contains a follow-up indicator.
func (l *Lexicon) IsFollowUp(text string) bool {
	folded := Fold(text)
	for _, indicator := range l.followUpIndicators {
		if strings.Contains(folded, indicator) {
			return true
		}
	}
	return false
}

// CandidateLabels returns a copy of the zero-shot candidate labels.
func (l *Lexicon) CandidateLabels() []string {
	return slices.Clone(l.candidateLabels)
}

// TechnicalKeywords returns a copy of the technical keyword table.
func (l *Lexicon) TechnicalKeywords() []string {
	return slices.Clone(l.technicalKeywords)
}

// CodingPatterns returns the source of the coding patterns.
func (l *Lexicon) CodingPatterns() []string {
	out := make([]string, len(l.codingPatterns))
	for i, re := range l.codingPatterns {
		out[i] = re.String()
	}
	return out
}

// LabelCues returns the lower-cased cue phrases for label.
func (l *Lexicon) LabelCues(label string) []string {
	return slices.Clone(l.labelCues[label])
}

// CueLabels returns the labels that have cue phrases, sorted.
func (l *Lexicon) CueLabels() []string {
	return slices.Sorted(maps.Keys(l.labelCues))
}

// Entities returns a copy of the dictionary entities.
func (l *Lexicon) Entities() []Entity {
	out := make([]Entity, len(l.entities))
	for i, e := range l.entities {
		out[i] = Entity{Name: e.Name, Type: e.Type, Variants: slices.Clone(e.Variants)}
	}
	return out
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func foldAll(in []string) []string {
	out := trimAll(in)
	for i, s := range out {
		out[i] = Fold(s)
	}
	return out
}
