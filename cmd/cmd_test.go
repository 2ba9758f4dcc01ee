package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/question-analyzer/internal/analysis"
	"github.com/spigell/question-analyzer/internal/cache"
	"github.com/spigell/question-analyzer/internal/lexicon"
	"github.com/spigell/question-analyzer/internal/server"
)

func heuristicConfig() *Config {
	return &Config{
		Classifier: &BackendConfig{Backend: backendHeuristic},
		Entities:   &BackendConfig{Backend: backendHeuristic},
		ONNX:       &ONNXConfig{},
		Gemini:     &GeminiConfig{},
		Cache:      &cache.Config{Backend: cache.BackendMemory},
		Server:     &server.Config{},
	}
}

func TestReadTranscript(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "q.txt")
	if err := os.WriteFile(file, []byte("How would you code a debounce?"), 0o600); err != nil {
		t.Fatalf("write transcript: %v", err)
	}

	tests := []struct {
		name    string
		args    []string
		file    string
		stdin   string
		want    string
		wantErr bool
	}{
		{name: "arguments are joined", args: []string{"What", "is", "ARIA?"}, want: "What is ARIA?"},
		{name: "stdin", args: []string{"-"}, stdin: "from stdin", want: "from stdin"},
		{name: "file", file: file, want: "How would you code a debounce?"},
		{name: "nothing", wantErr: true},
		{name: "file and arguments", args: []string{"x"}, file: file, wantErr: true},
		{name: "missing file", file: filepath.Join(dir, "missing.txt"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readTranscript(tt.args, tt.file, strings.NewReader(tt.stdin))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNormalizeBackend(t *testing.T) {
	if got := normalizeBackend(""); got != backendHeuristic {
		t.Fatalf("expected heuristic default, got %q", got)
	}
	if got := normalizeBackend("  ONNX "); got != backendONNX {
		t.Fatalf("expected onnx, got %q", got)
	}
}

func TestNewBackendsRejectsUnknownBackend(t *testing.T) {
	cfg := heuristicConfig()
	cfg.Classifier.Backend = "bert"

	if _, err := newBackends(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatalf("expected error for unknown classifier backend")
	}

	cfg = heuristicConfig()
	cfg.Classifier.Backend = backendONNX
	if _, err := newBackends(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatalf("expected error for onnx without a model directory")
	}

	cfg = heuristicConfig()
	cfg.Entities.Backend = backendGemini
	t.Setenv("GEMINI_API_KEY", "")
	if _, err := newBackends(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatalf("expected error for gemini without an api key")
	}
}

func TestHeuristicAnalyzer(t *testing.T) {
	b, err := newBackends(context.Background(), heuristicConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("newBackends: %v", err)
	}
	defer b.Close()

	if b.pinger() != nil {
		t.Fatalf("memory cache should not be reported as pingable")
	}

	a, err := b.analyzer(lexicon.Default())
	if err != nil {
		t.Fatalf("analyzer: %v", err)
	}

	result, err := a.Analyze(context.Background(), "Write a function in JavaScript that uses React")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if !result.IsCodingQuestion || !result.IsTechnical {
		t.Fatalf("expected a technical coding question, got %+v", result)
	}
	if result.QuestionType != "coding exercise" {
		t.Fatalf("expected coding exercise, got %q", result.QuestionType)
	}
	if len(result.Entities) == 0 {
		t.Fatalf("expected dictionary entities, got none")
	}
}

func TestReloadedLexiconBypassesCachedClassification(t *testing.T) {
	b, err := newBackends(context.Background(), heuristicConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("newBackends: %v", err)
	}
	defer b.Close()

	const question = "Tell me about a time you had a conflict"

	before, err := b.analyzer(lexicon.Default())
	if err != nil {
		t.Fatalf("analyzer: %v", err)
	}
	result, err := before.Analyze(context.Background(), question)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if result.QuestionType != "behavioral" {
		t.Fatalf("expected behavioral with the default lexicon, got %q", result.QuestionType)
	}

	reloaded, err := lexicon.Parse([]byte(`
label_cues:
  opinion: ["tell me about a time", "conflict", "you had"]
`))
	if err != nil {
		t.Fatalf("parse lexicon: %v", err)
	}

	after, err := b.analyzer(reloaded)
	if err != nil {
		t.Fatalf("analyzer: %v", err)
	}
	result, err = after.Analyze(context.Background(), question)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if result.QuestionType != "opinion" {
		t.Fatalf("expected opinion after the lexicon changed, got %q", result.QuestionType)
	}
}

func TestEntitiesBackendNone(t *testing.T) {
	cfg := heuristicConfig()
	cfg.Entities.Backend = backendNone
	cfg.Disabled = map[string]string{analysis.StageKeywords: "not needed"}

	b, err := newBackends(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("newBackends: %v", err)
	}

	a, err := b.analyzer(lexicon.Default())
	if err != nil {
		t.Fatalf("analyzer: %v", err)
	}

	for _, st := range a.Describe() {
		switch st.Name {
		case analysis.StageEntities, analysis.StageKeywords:
			if st.Enabled {
				t.Fatalf("expected stage %s to be disabled", st.Name)
			}
		}
	}
}

func TestHandleLine(t *testing.T) {
	b, err := newBackends(context.Background(), heuristicConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("newBackends: %v", err)
	}
	a, err := b.analyzer(lexicon.Default())
	if err != nil {
		t.Fatalf("analyzer: %v", err)
	}
	session := analysis.NewSession(a)

	var printed []*analysis.Result
	collect := func(r *analysis.Result) error {
		printed = append(printed, r)
		return nil
	}

	if err := handleLine(context.Background(), session, "What is ARIA?", collect); err != nil {
		t.Fatalf("handleLine: %v", err)
	}
	if err := handleLine(context.Background(), session, "What about CSS grid?", collect); err != nil {
		t.Fatalf("handleLine: %v", err)
	}
	if len(printed) != 2 || !printed[1].IsFollowUp {
		t.Fatalf("expected a follow-up second result, got %+v", printed)
	}
	if len(session.History()) != 2 {
		t.Fatalf("expected two questions in history, got %v", session.History())
	}

	if err := handleLine(context.Background(), session, " RESET ", collect); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(session.History()) != 0 {
		t.Fatalf("expected empty history after reset, got %v", session.History())
	}

	if err := handleLine(context.Background(), session, "exit", collect); !errors.Is(err, errExit) {
		t.Fatalf("expected errExit, got %v", err)
	}
}

func TestPrintResult(t *testing.T) {
	r := &analysis.Result{
		QuestionType:     "opinion",
		KeywordsDetected: []string{},
		Entities:         []string{},
		Transcript:       "Do you like Vue?",
	}

	var buf bytes.Buffer
	if err := printResult(&buf, r, false); err != nil {
		t.Fatalf("printResult: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if decoded["question_type"] != "opinion" {
		t.Fatalf("unexpected question_type: %v", decoded["question_type"])
	}

	buf.Reset()
	if err := printResult(&buf, r, true); err != nil {
		t.Fatalf("printResult pretty: %v", err)
	}
	if !strings.Contains(buf.String(), "Do you like Vue?") {
		t.Fatalf("expected transcript in pretty output: %s", buf.String())
	}
}

func TestRedacted(t *testing.T) {
	cfg := heuristicConfig()
	cfg.Gemini.APIKey = "secret"

	out := redacted(cfg)
	if out.Gemini.APIKey != "***" {
		t.Fatalf("expected redacted key, got %q", out.Gemini.APIKey)
	}
	if cfg.Gemini.APIKey != "secret" {
		t.Fatalf("original config must not change")
	}
}
