package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	okColor      = lipgloss.Color("#10B981")
	warnColor    = lipgloss.Color("#F59E0B")
	dangerColor  = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B6B6B")
	headerStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	warningStyle = lipgloss.NewStyle().Foreground(warnColor).Bold(true)
	dangerStyle  = lipgloss.NewStyle().Foreground(dangerColor).Bold(true)
)

// ProgressBar renders how much of the sync queue has reached the backend.
type ProgressBar struct {
	completed int
	total     int
	label     string
	width     int
}

// NewProgressBar creates a new progress bar with the specified total and width.
func NewProgressBar(total int, width int) *ProgressBar {
	if width <= 0 {
		width = 15
	}
	return &ProgressBar{
		total: total,
		width: width,
	}
}

// Update sets the current progress and label.
func (p *ProgressBar) Update(completed int, label string) {
	p.completed = completed
	p.label = label
}

func (p *ProgressBar) render(color lipgloss.Color, icon string) string {
	if p.total == 0 {
		return ""
	}

	completed := min(max(p.completed, 0), p.total)
	filled := p.width * completed / p.total
	empty := p.width - filled

	bar := strings.Repeat("█", filled) + strings.Repeat("░", empty)

	labelStyle := lipgloss.NewStyle().
		Foreground(color).
		Bold(true)

	barStyle := lipgloss.NewStyle().
		Foreground(color)

	countStyle := lipgloss.NewStyle().
		Foreground(mutedColor)

	return labelStyle.Render(icon+" ") +
		barStyle.Render("["+bar+"]") +
		countStyle.Render(fmt.Sprintf(" %d/%d ", p.completed, p.total)) +
		labelStyle.Render(p.label)
}

// Render returns the bar in the healthy color.
func (p *ProgressBar) Render() string {
	return p.render(okColor, "⚡")
}

// RenderWarning returns the bar in amber, for a queue holding failed or
// quarantined entries.
func (p *ProgressBar) RenderWarning() string {
	return p.render(warnColor, "!")
}
