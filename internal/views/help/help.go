// Package help renders the localized key reference overlay. The catalog's
// help.body entry is markdown and is rendered with glamour.
package help

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/roomchat/chat-tui/internal/i18n"
	"github.com/roomchat/chat-tui/internal/theme"
)

// Model caches the rendered markdown per locale and width.
type Model struct {
	style string

	locale string
	width  int
	body   string
}

// New creates a help overlay using a glamour standard style ("dark",
// "light", "notty", …).
func New(style string) Model {
	if style == "" {
		style = "dark"
	}
	return Model{style: style}
}

// View renders the overlay for width columns.
func (m *Model) View(tr i18n.Translator, width int) string {
	innerW := max(width-8, 20)
	if m.locale != tr.Locale() || m.width != innerW || m.body == "" {
		m.body = render(tr.Translate("help.body"), m.style, innerW)
		m.locale = tr.Locale()
		m.width = innerW
	}

	title := theme.StyleHeader.Render(" " + tr.Translate("ui.help.title") + " ")
	content := lipgloss.JoinVertical(lipgloss.Left, title, m.body)
	return lipgloss.NewStyle().
		Width(innerW+4).
		Padding(0, 2).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}

func render(markdown, style string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return markdown
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.Trim(out, "\n")
}
