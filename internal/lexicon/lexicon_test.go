package lexicon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestKeywords(t *testing.T) {
	l := Default()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "case insensitive and in table order",
			text: "How would you make a REACT page with good Accessibility and css?",
			want: []string{"accessibility", "React", "CSS"},
		},
		{
			name: "substring semantics",
			text: "Can you build a React component?",
			want: []string{"UI", "React"},
		},
		{
			name: "multi word keyword",
			text: "Walk me through your User Research process.",
			want: []string{"user research"},
		},
		{
			name: "nothing found",
			text: "Tell me about yourself.",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.Keywords(tt.text)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsCodingRequest(t *testing.T) {
	l := Default()

	assert.True(t, l.IsCodingRequest("Write a function that reverses a string."))
	assert.True(t, l.IsCodingRequest("Please IMPLEMENT AN method for the cache"))
	assert.True(t, l.IsCodingRequest("So, how would you code a debounce helper?"))
	assert.True(t, l.IsCodingRequest("create a component that renders a list"))
	assert.False(t, l.IsCodingRequest("Write the answer on the whiteboard"))
	assert.False(t, l.IsCodingRequest("Tell me about a time you failed."))

	assert.Equal(t,
		[]string{`write (a|an) (function|algorithm|program|code)`},
		l.MatchedPatterns("write an algorithm for sorting"),
	)
}

func TestIsQuestion(t *testing.T) {
	l := Default()

	assert.True(t, l.IsQuestion("Describe your last project?"))
	assert.True(t, l.IsQuestion("  How does the event loop work"))
	assert.True(t, l.IsQuestion("Could you walk me through it"))
	assert.False(t, l.IsQuestion("Tell me about yourself."))
}

func TestIsFollowUp(t *testing.T) {
	l := Default()

	assert.True(t, l.IsFollowUp("What about keyboard navigation?"))
	assert.True(t, l.IsFollowUp("OK. Could you elaborate on that"))
	assert.False(t, l.IsFollowUp("What is ARIA?"))
}

func TestParseOverridesSections(t *testing.T) {
	l, err := Parse([]byte(`
technical_keywords: [Go, Kubernetes]
candidate_labels: [coding exercise, small talk]
coding_patterns:
  - 'write (a|an) handler'
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"coding exercise", "small talk"}, l.CandidateLabels())
	assert.Equal(t, []string{"Go", "Kubernetes"}, l.Keywords("we run go on kubernetes"))
	assert.True(t, l.IsCodingRequest("Write a handler for webhooks"))
	assert.False(t, l.IsCodingRequest("write a function"))

	// untouched sections keep defaults
	assert.True(t, l.IsFollowUp("what if the list is empty"))
	assert.NotEmpty(t, l.Entities())
}

func TestParseRejectsInvalidTables(t *testing.T) {
	_, err := Parse([]byte(`coding_patterns: ['write (a|an']`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile coding pattern")

	_, err = Parse([]byte(`candidate_labels: [opinion, opinion]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate candidate label")

	_, err = Parse([]byte(`entities: [{type: ORG}]`))
	require.Error(t, err)

	_, err = Parse([]byte("technical_keywords: {"))
	require.Error(t, err)
}

func TestDefaultTablesAreCopies(t *testing.T) {
	tables := DefaultTables()
	tables.CandidateLabels[0] = "mutated"
	tables.LabelCues["behavioral"][0] = "mutated"

	l := Default()
	assert.Equal(t, "technical explanation", l.CandidateLabels()[0])
	assert.Equal(t, "tell me about a time", l.LabelCues("behavioral")[0])
}

func TestFingerprintFollowsTables(t *testing.T) {
	assert.Equal(t, Default().Fingerprint(), Default().Fingerprint())
	assert.Len(t, Default().Fingerprint(), 12)

	tables := DefaultTables()
	tables.LabelCues["opinion"] = append(tables.LabelCues["opinion"], "conflict")
	changed, err := New(tables)
	require.NoError(t, err)
	assert.NotEqual(t, Default().Fingerprint(), changed.Fingerprint())
}

func TestLoadOrDefault(t *testing.T) {
	l, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Len(t, l.CandidateLabels(), 6)

	_, err = LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestWatchReloadsChangedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexicon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("candidate_labels: [one]\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Lexicon, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, zap.NewNop(), func(l *Lexicon) { changes <- l })
	}()

	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	var reloaded *Lexicon
	for reloaded == nil {
		select {
		case l := <-changes:
			reloaded = l
		case <-ticker.C:
			require.NoError(t, os.WriteFile(path, []byte("candidate_labels: [two, three]\n"), 0o644))
		case <-deadline:
			t.Fatal("lexicon was not reloaded")
		}
	}

	assert.Equal(t, []string{"two", "three"}, reloaded.CandidateLabels())

	cancel()
	require.NoError(t, <-done)
}
