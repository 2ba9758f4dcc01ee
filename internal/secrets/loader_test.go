package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("QA_TEST_SECRET", " from-env ")

	keyFile := filepath.Join(dir, "key")
	if err := os.WriteFile(keyFile, []byte("  from-file \n"), 0o600); err != nil {
		t.Fatal(err)
	}

	emptyFile := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyFile, []byte("\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		src     Source
		want    string
		wantErr string
	}{
		{name: "inline value", src: Source{Name: "gemini api key", Value: " inline "}, want: "inline"},
		{name: "file wins over value", src: Source{Value: "inline", File: keyFile}, want: "from-file"},
		{name: "empty file", src: Source{Name: "gemini api key", File: emptyFile}, wantErr: "is empty"},
		{name: "missing file", src: Source{File: filepath.Join(dir, "nope")}, wantErr: "reading secret from file"},
		{name: "not configured", src: Source{Name: "gemini api key"}, wantErr: "gemini api key is not configured"},
		{name: "env fallback", src: Source{Env: "QA_TEST_SECRET"}, want: "from-env"},
		{name: "value wins over env", src: Source{Value: "inline", Env: "QA_TEST_SECRET"}, want: "inline"},
		{name: "env unset", src: Source{Name: "gemini api key", Env: "QA_TEST_SECRET_UNSET"}, wantErr: "QA_TEST_SECRET_UNSET is unset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
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
