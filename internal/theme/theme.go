// Package theme provides the Lip Gloss color palette and reusable styles
// for the chat TUI. Its only internal import is render, for entry kinds.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/roomchat/chat-tui/internal/render"
)

// Entry colors.
var (
	ColorJoin   = lipgloss.Color("#22c55e")
	ColorLeave  = lipgloss.Color("#d97706")
	ColorChat   = lipgloss.Color("#f9fafb")
	ColorSystem = lipgloss.Color("#a855f7")
	ColorMarker = lipgloss.Color("#06b6d4")
	ColorSender = lipgloss.Color("#3b82f6")
)

// Connection state colors.
var (
	ColorConnected    = lipgloss.Color("#22c55e")
	ColorConnecting   = lipgloss.Color("#d97706")
	ColorDisconnected = lipgloss.Color("#dc2626")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorBg      = lipgloss.Color("#111827")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// EntryColor returns the body color for an entry kind.
func EntryColor(k render.Kind) lipgloss.Color {
	switch k {
	case render.KindJoin:
		return ColorJoin
	case render.KindLeave:
		return ColorLeave
	case render.KindChat:
		return ColorChat
	case render.KindMarker:
		return ColorMarker
	default:
		return ColorSystem
	}
}

// EntryGlyph returns the glyph printed before an entry of kind k.
func EntryGlyph(k render.Kind) string {
	switch k {
	case render.KindJoin:
		return "→"
	case render.KindLeave:
		return "←"
	case render.KindChat:
		return "›"
	case render.KindMarker:
		return "─"
	default:
		return "•"
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleSender = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSender)

	// StyleChatError is for connection, validation and history notices.
	StyleChatError = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright).
			Background(ColorDanger).
			Padding(0, 1)

	// StyleLocaleError is for catalog load failures.
	StyleLocaleError = lipgloss.NewStyle().
				Foreground(ColorBg).
				Background(ColorWarning).
				Padding(0, 1)
)
