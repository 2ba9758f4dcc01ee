// Package render formats analysis output for terminals.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/spigell/question-analyzer/internal/analysis"
)

const barWidth = 24

// Styles used by the renderers.
type Styles struct {
	Title  lipgloss.Style
	Label  lipgloss.Style
	Value  lipgloss.Style
	Muted  lipgloss.Style
	Yes    lipgloss.Style
	No     lipgloss.Style
	Bar    lipgloss.Style
	Box    lipgloss.Style
	Header lipgloss.Style
}

// DefaultStyles returns the default palette.
func DefaultStyles() Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A")),
		Label:  lipgloss.NewStyle().Foreground(lipgloss.Color("#9AA5B1")).Width(20),
		Value:  lipgloss.NewStyle().Bold(true),
		Muted:  lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7785")),
		Yes:    lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")).Bold(true),
		No:     lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")),
		Bar:    lipgloss.NewStyle().Foreground(lipgloss.Color("#2196F3")),
		Box:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#2a3850")).Padding(0, 1),
		Header: lipgloss.NewStyle().Bold(true).Underline(true),
	}
}

// Result renders an analysis result as a boxed summary with a score bar per
// candidate label.
func Result(r *analysis.Result, s Styles) string {
	var sb strings.Builder

	sb.WriteString(s.Title.Render("Question analysis"))
	sb.WriteString("\n\n")

	row := func(label, value string) {
		sb.WriteString(s.Label.Render(label))
		sb.WriteString(value)
		sb.WriteString("\n")
	}

	row("transcript", s.Muted.Render(r.Transcript))
	row("question type", s.Value.Render(r.QuestionType)+s.Muted.Render(fmt.Sprintf(" (%.1f%%)", r.Confidence*100)))
	row("technical", flag(r.IsTechnical, s))
	row("coding question", flag(r.IsCodingQuestion, s))
	row("question", flag(r.IsQuestion, s))
	row("follow-up", flag(r.IsFollowUp, s))
	row("keywords", list(r.KeywordsDetected, s))
	row("entities", list(r.Entities, s))
	if r.Context != "" {
		row("context", s.Muted.Render(r.Context))
	}

	if c := r.Classification; c != nil && len(c.Labels) > 0 {
		sb.WriteString("\n")
		sb.WriteString(s.Header.Render("Scores"))
		sb.WriteString("\n")
		for i, label := range c.Labels {
			sb.WriteString(s.Label.Render(label))
			sb.WriteString(s.Bar.Render(bar(c.Scores[i])))
			sb.WriteString(s.Muted.Render(fmt.Sprintf(" %.3f", c.Scores[i])))
			sb.WriteString("\n")
		}
	}

	return s.Box.Render(strings.TrimRight(sb.String(), "\n"))
}

// Pipeline renders stage statuses as a table.
func Pipeline(statuses []analysis.Status, s Styles) string {
	headers := []string{"STAGE", "ENABLED", "DETAILS"}
	rows := make([][]string, 0, len(statuses))
	for _, st := range statuses {
		enabled := "yes"
		if !st.Enabled {
			enabled = "no"
			if st.Reason != "" {
				enabled += " (" + st.Reason + ")"
			}
		}
		rows = append(rows, []string{st.Name, enabled, details(st.Details)})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, r := range rows {
		for i, cell := range r {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var sb strings.Builder
	for i, h := range headers {
		sb.WriteString(s.Header.Width(widths[i] + 2).Render(h))
	}
	sb.WriteString("\n")
	for _, r := range rows {
		for i, cell := range r {
			sb.WriteString(lipgloss.NewStyle().Width(widths[i] + 2).Render(cell))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func flag(v bool, s Styles) string {
	if v {
		return s.Yes.Render("yes")
	}
	return s.No.Render("no")
}

func list(items []string, s Styles) string {
	if len(items) == 0 {
		return s.Muted.Render("none")
	}
	return s.Value.Render(strings.Join(items, ", "))
}

func bar(score float64) string {
	n := int(score*barWidth + 0.5)
	n = max(0, min(barWidth, n))
	return strings.Repeat("█", n) + strings.Repeat("░", barWidth-n)
}

func details(d map[string]string) string {
	if len(d) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+d[k])
	}
	return strings.Join(parts, " ")
}
