// Package debug provides a scrollable event log overlay with a panel of
// translation keys that were looked up but are missing from the catalog.
package debug

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/roomchat/chat-tui/internal/i18n"
	"github.com/roomchat/chat-tui/internal/theme"
)

const (
	maxEntries     = 200
	maxMissingRows = 8
)

// Event kinds.
const (
	KindWS    = "ws"
	KindErr   = "err"
	KindI18n  = "i18n"
	KindState = "st"
)

// Entry is a single event log line.
type Entry struct {
	Time    time.Time
	Kind    string
	Message string
}

// Model holds debug log state.
type Model struct {
	Entries []Entry
	Offset  int // scroll offset (from bottom)
}

// New creates an empty debug model.
func New() Model {
	return Model{}
}

// Add appends a log entry and caps the buffer.
func (m *Model) Add(kind, message string) {
	m.Entries = append(m.Entries, Entry{
		Time:    time.Now(),
		Kind:    kind,
		Message: message,
	})
	if len(m.Entries) > maxEntries {
		m.Entries = m.Entries[len(m.Entries)-maxEntries:]
	}
	// Reset scroll to bottom on new entry.
	m.Offset = 0
}

// ScrollUp moves the viewport up.
func (m *Model) ScrollUp(n int) {
	m.Offset += n
	max := len(m.Entries) - 1
	if max < 0 {
		max = 0
	}
	if m.Offset > max {
		m.Offset = max
	}
}

// ScrollDown moves the viewport down.
func (m *Model) ScrollDown(n int) {
	m.Offset -= n
	if m.Offset < 0 {
		m.Offset = 0
	}
}

// panelStyle returns the shared border style for the debug overlay.
func panelStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width).
		Padding(1, 2).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder)
}

// View renders the debug log as an overlay panel. missing lists the
// translation keys to report.
func (m Model) View(width, height int, tr i18n.Translator, missing []string) string {
	innerW := width - 4
	if innerW < 20 {
		innerW = 20
	}
	visibleLines := height - 6
	if len(missing) > 0 {
		visibleLines -= min(len(missing), maxMissingRows) + 2
	}
	if visibleLines < 3 {
		visibleLines = 3
	}

	title := theme.StyleHeader.Render(" " + tr.Translate("ui.debug.title") + " ")
	help := theme.StyleDimmed.Render(tr.Translate("ui.debug.help", len(m.Entries)))
	missingPanel := m.missingView(tr, missing, innerW)

	if len(m.Entries) == 0 {
		body := theme.StyleDimmed.Render("  " + tr.Translate("ui.debug.empty"))
		parts := []string{title, "", body, ""}
		if missingPanel != "" {
			parts = append(parts, missingPanel, "")
		}
		content := lipgloss.JoinVertical(lipgloss.Left, append(parts, help)...)
		return panelStyle(innerW).Render(content)
	}

	// Build visible lines from bottom (minus offset).
	end := len(m.Entries) - m.Offset
	start := end - visibleLines
	if start < 0 {
		start = 0
	}
	if end < 0 {
		end = 0
	}

	var lines []string
	for i := start; i < end; i++ {
		e := m.Entries[i]
		tsStr := theme.StyleDimmed.Render(e.Time.Format("15:04:05.000"))
		kindStr := lipgloss.NewStyle().Foreground(kindToColor(e.Kind)).Width(4).Render(e.Kind)
		msgStr := e.Message
		if innerW > 20 {
			msgStr = ansi.Truncate(msgStr, innerW-20, "...")
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", tsStr, kindStr, msgStr))
	}

	body := strings.Join(lines, "\n")
	scrollIndicator := ""
	if m.Offset > 0 {
		scrollIndicator = theme.StyleDimmed.Render(fmt.Sprintf(" ↓ %d more", m.Offset))
	}

	parts := []string{title, body, scrollIndicator}
	if missingPanel != "" {
		parts = append(parts, missingPanel)
	}
	content := lipgloss.JoinVertical(lipgloss.Left, append(parts, help)...)
	return panelStyle(innerW).Render(content)
}

func (m Model) missingView(tr i18n.Translator, missing []string, width int) string {
	if len(missing) == 0 {
		return ""
	}
	header := lipgloss.NewStyle().Foreground(theme.ColorWarning).Bold(true).
		Render(fmt.Sprintf("%s (%d)", tr.Translate("ui.debug.missing"), len(missing)))
	rows := []string{header}
	for i, key := range missing {
		if i == maxMissingRows {
			rows = append(rows, theme.StyleDimmed.Render(fmt.Sprintf("  … +%d", len(missing)-maxMissingRows)))
			break
		}
		rows = append(rows, "  "+ansi.Truncate(key, width-2, "..."))
	}
	return strings.Join(rows, "\n")
}

func kindToColor(kind string) lipgloss.Color {
	switch kind {
	case KindWS:
		return theme.ColorConnected
	case KindErr:
		return theme.ColorDanger
	case KindI18n:
		return theme.ColorMarker
	case KindState:
		return theme.ColorWarning
	default:
		return theme.ColorDimmed
	}
}
