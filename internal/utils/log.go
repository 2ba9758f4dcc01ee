package utils

import "strings"

const ellipsis = "..."

// TruncateForLog prepares model prompts and responses for a single log line:
// runs of whitespace, newlines included, become one space and the result is
// cut to limit runes. A limit of zero or less drops the text.
func TruncateForLog(s string, limit int) string {
	if limit <= 0 {
		return ""
	}

	s = strings.Join(strings.Fields(s), " ")

	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + ellipsis
		}
		n++
	}
	return s
}
