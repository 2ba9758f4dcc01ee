package heuristic

import (
	"context"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spigell/question-analyzer/internal/ai"
	"github.com/spigell/question-analyzer/internal/lexicon"
)

type phrase struct {
	text  string
	label string
}

// EntityExtractor recognizes the dictionary entities of a lexicon. Matching
// is case-insensitive, prefers the longest phrase and only accepts matches
// on word boundaries.
type EntityExtractor struct {
	phrases     []phrase
	fingerprint string
}

// NewEntityExtractor indexes the canonical names and variants of lex entities.
func NewEntityExtractor(lex *lexicon.Lexicon) *EntityExtractor {
	seen := make(map[string]bool)
	var phrases []phrase
	for _, e := range lex.Entities() {
		for _, p := range append([]string{e.Name}, e.Variants...) {
			p = strings.TrimSpace(p)
			key := strings.ToLower(p)
			if p == "" || seen[key] {
				continue
			}
			seen[key] = true
			phrases = append(phrases, phrase{text: p, label: strings.ToUpper(e.Type)})
		}
	}

	sort.SliceStable(phrases, func(i, j int) bool {
		return len(phrases[i].text) > len(phrases[j].text)
	})

	return &EntityExtractor{phrases: phrases, fingerprint: lex.Fingerprint()}
}

func (e *EntityExtractor) Backend() string { return Backend }

func (e *EntityExtractor) Model() string { return "lexicon-dictionary@" + e.fingerprint }

// Extract returns the dictionary entities found in text ordered by position.
func (e *EntityExtractor) Extract(ctx context.Context, text string) ([]ai.Entity, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ai.ErrEmptyText
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entities := make([]ai.Entity, 0)
	for i := 0; i < len(text); {
		if atWordStart(text, i) {
			if p, end, ok := e.matchAt(text, i); ok {
				entities = append(entities, ai.Entity{
					Text:  text[i:end],
					Label: p.label,
					Start: i,
					End:   end,
				})
				i = end
				continue
			}
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return entities, nil
}

func (e *EntityExtractor) matchAt(text string, start int) (phrase, int, bool) {
	for _, p := range e.phrases {
		end := start + len(p.text)
		if end > len(text) {
			continue
		}
		if !strings.EqualFold(text[start:end], p.text) {
			continue
		}
		if !atWordEnd(text, end) {
			continue
		}
		return p, end, true
	}
	return phrase{}, 0, false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func atWordStart(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func atWordEnd(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}
