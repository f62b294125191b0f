package status

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/roomchat/chat-tui/internal/i18n"
	"github.com/roomchat/chat-tui/internal/presence"
	"github.com/roomchat/chat-tui/internal/session"
	"github.com/roomchat/chat-tui/internal/theme"
)

// Model holds the status bar state.
type Model struct {
	State    session.State
	Name     string
	Presence *presence.Tracker
	Width    int
}

// New creates a status bar model reading counts from p.
func New(p *presence.Tracker) Model {
	return Model{Presence: p}
}

// View renders the status bar.
func (m Model) View(tr i18n.Translator) string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	var connStr string
	switch m.State {
	case session.Connected:
		connStr = lipgloss.NewStyle().Foreground(theme.ColorConnected).Render("● " + tr.Translate("ui.connection.connected"))
	case session.Connecting:
		connStr = lipgloss.NewStyle().Foreground(theme.ColorConnecting).Render("◌ " + tr.Translate("ui.connection.connecting"))
	default:
		connStr = lipgloss.NewStyle().Foreground(theme.ColorDisconnected).Render("○ " + tr.Translate("ui.connection.disconnected"))
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := connStr
	if m.State == session.Connected && m.Name != "" {
		content += sep + theme.StyleSender.Render(m.Name)
	}
	if m.Presence != nil && m.Presence.Visible() {
		content += sep + m.Presence.Text(tr)
	}
	content += sep + theme.StyleDimmed.Render(tr.Translate("ui.language", tr.Translate("locale.name")))

	bar := lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)

	return bar
}
