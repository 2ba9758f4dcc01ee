package utils

import "testing"

func TestTruncateForLog(t *testing.T) {
	tests := map[string]struct {
		in    string
		limit int
		want  string
	}{
		"disabled":           {in: "What is ARIA?", limit: 0, want: ""},
		"fits":               {in: "What is ARIA?", limit: 13, want: "What is ARIA?"},
		"cut":                {in: "What is ARIA?", limit: 4, want: "What..."},
		"prompt on one line": {in: "Labels:\n  - opinion\n  - behavioral\n", limit: 100, want: "Labels: - opinion - behavioral"},
		"runes not bytes":    {in: "résumé review", limit: 6, want: "résumé..."},
		"blank":              {in: " \n\t ", limit: 10, want: ""},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := TruncateForLog(tt.in, tt.limit); got != tt.want {
				t.Fatalf("TruncateForLog(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
			}
		})
	}
}
