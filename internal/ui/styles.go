// Package ui renders plans, risk indicators, and AI responses for the
// terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"cxterm/internal/plan"
	"cxterm/internal/safety"
)

// Styles holds the lipgloss styles shared across the CLI output.
type Styles struct {
	Accent  lipgloss.Style
	Dim     lipgloss.Style
	Bold    lipgloss.Style
	Safe    lipgloss.Style
	Warn    lipgloss.Style
	Danger  lipgloss.Style
	Success lipgloss.Style
}

// DefaultStyles returns the standard color scheme.
func DefaultStyles() Styles {
	return Styles{
		Accent:  lipgloss.NewStyle().Foreground(lipgloss.Color("99")),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Bold:    lipgloss.NewStyle().Bold(true),
		Safe:    lipgloss.NewStyle().Foreground(lipgloss.Color("35")),
		Warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Danger:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("35")),
	}
}

// TierStyle returns the style used to render a command of the given tier.
func (s Styles) TierStyle(tier safety.Tier) lipgloss.Style {
	switch tier {
	case safety.Safe:
		return s.Safe
	case safety.Moderate:
		return s.Warn
	case safety.Dangerous, safety.Blocked:
		return s.Danger
	default:
		return s.Warn
	}
}

// RenderPlan renders the numbered plan with a per-step risk indicator and
// the aggregate warnings underneath.
func (s Styles) RenderPlan(p *plan.Plan) string {
	var sb strings.Builder

	sb.WriteString("\n" + s.Accent.Render("Plan:") + "\n")
	for _, step := range p.Steps {
		label := ""
		if step.Tier == safety.Blocked {
			label = s.Danger.Render("[BLOCKED] ")
		}
		sb.WriteString(fmt.Sprintf("  %s %s%s\n",
			s.Dim.Render(fmt.Sprintf("%d.", step.Number)),
			label,
			s.TierStyle(step.Tier).Render(step.Command),
		))
	}
	sb.WriteString("\n")

	if n := p.SudoCount(); n > 0 {
		plural := ""
		if n > 1 {
			plural = "s"
		}
		sb.WriteString(s.Warn.Render(fmt.Sprintf("Requires sudo (%d command%s)", n, plural)) + "\n")
	}
	if p.HasDangerous() {
		sb.WriteString(s.Danger.Render("Contains dangerous commands - review carefully") + "\n")
	}
	if p.HasBlocked() {
		sb.WriteString(s.Danger.Render("Contains blocked commands that will not execute") + "\n")
	}

	return sb.String()
}

// RenderMarkdown renders AI response text as terminal markdown, falling
// back to the raw text if the renderer cannot be built.
func RenderMarkdown(text string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return text
	}
	out, err := renderer.Render(text)
	if err != nil {
		return text
	}
	return out
}
