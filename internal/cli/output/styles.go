package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used in text mode.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	ID      lipgloss.Style
	Value   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Success: r.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
		ID:      r.NewStyle().Foreground(lipgloss.Color("14")),
		Value:   r.NewStyle().Bold(true),
	}
}

// statusSymbols maps a status to the glyph shown in StatusLine.
var statusSymbols = map[string]string{
	"success":   "✓",
	"completed": "✓",
	"error":     "✗",
	"failed":    "✗",
	"warning":   "!",
	"running":   "…",
	"skipped":   "-",
}
