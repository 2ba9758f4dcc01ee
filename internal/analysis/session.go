package analysis

import (
	"context"
	"slices"
	"strings"
	"sync"
)

const (
	sessionHistory = 5
	sessionContext = 3
)

// Session analyzes successive transcripts of one conversation and keeps
// the most recent questions as context.
type Session struct {
	analyzer *Analyzer

	mu      sync.Mutex
	history []string
}

// NewSession starts an empty session on top of a.
func NewSession(a *Analyzer) *Session {
	return &Session{analyzer: a}
}

// Analyze analyzes transcript and fills Context with the latest questions
// of the session, the current one included. Only transcripts that look like
// questions are remembered.
func (s *Session) Analyze(ctx context.Context, transcript string) (*Result, error) {
	r, err := s.analyzer.Analyze(ctx, transcript)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if r.IsQuestion {
		s.history = append(s.history, strings.TrimSpace(transcript))
		if len(s.history) > sessionHistory {
			s.history = s.history[len(s.history)-sessionHistory:]
		}
	}

	recent := s.history
	if len(recent) > sessionContext {
		recent = recent[len(recent)-sessionContext:]
	}
	r.Context = strings.Join(recent, " ")
	return r, nil
}

// History returns the remembered questions, oldest first.
func (s *Session) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history)
}

// Reset forgets the remembered questions.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}
