// Package transcript is the scrolling message list. It stores protocol
// messages rather than rendered text, so a locale switch re-renders every
// entry under the new catalog.
package transcript

import (
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"github.com/roomchat/chat-tui/internal/i18n"
	"github.com/roomchat/chat-tui/internal/protocol"
	"github.com/roomchat/chat-tui/internal/render"
	"github.com/roomchat/chat-tui/internal/theme"
)

const fps = 60

type item struct {
	msg    protocol.ChatMessage
	marker render.Marker
	isMark bool
}

// scrollFrameMsg advances the scroll animation by one frame.
type scrollFrameMsg struct{ id int }

// Model is the transcript view.
type Model struct {
	items     []item
	liveStart int // end of the history block; live entries follow

	vp viewport.Model

	spring    harmonica.Spring
	pos, vel  float64
	animating bool
	animID    int
	follow    bool // stick to the newest entry
}

// New creates an empty transcript.
func New() Model {
	return Model{
		vp:     viewport.New(0, 0),
		spring: harmonica.NewSpring(harmonica.FPS(fps), 6.0, 1.0),
		follow: true,
	}
}

// Len returns the number of stored items, markers included.
func (m *Model) Len() int { return len(m.items) }

// Reset clears the transcript.
func (m *Model) Reset() {
	m.items = nil
	m.liveStart = 0
	m.follow = true
}

// Append adds a live message at the end.
func (m *Model) Append(msg protocol.ChatMessage) {
	m.items = append(m.items, item{msg: msg})
}

// InsertHistory places a chronological history batch, framed by boundary
// markers, at the live boundary. Live messages that arrived while the batch
// was in flight stay below it. An empty batch inserts nothing.
func (m *Model) InsertHistory(msgs []protocol.ChatMessage) {
	if len(msgs) == 0 {
		return
	}
	block := make([]item, 0, len(msgs)+2)
	block = append(block, item{isMark: true, marker: render.MarkerHistory})
	for _, msg := range msgs {
		block = append(block, item{msg: msg})
	}
	block = append(block, item{isMark: true, marker: render.MarkerNew})

	at := min(m.liveStart, len(m.items))
	m.items = append(m.items[:at], append(block, m.items[at:]...)...)
	m.liveStart = at + len(block)
}

// Entries renders every item under the translator's current locale.
func (m *Model) Entries(tr render.Translator) []render.Entry {
	out := make([]render.Entry, 0, len(m.items))
	for _, it := range m.items {
		if it.isMark {
			out = append(out, render.RenderMarker(it.marker, tr))
			continue
		}
		out = append(out, render.Render(it.msg, tr))
	}
	return out
}

// SetSize resizes the viewport.
func (m *Model) SetSize(width, height int) {
	m.vp.Width = width
	m.vp.Height = max(height, 1)
}

// Refresh re-renders the content. When following, it starts the scroll
// animation towards the newest entry.
func (m *Model) Refresh(tr i18n.Translator) tea.Cmd {
	m.vp.SetContent(m.content(tr))
	if !m.follow {
		return nil
	}
	return m.animateTo()
}

// PageUp scrolls one screen back and stops following new entries.
func (m *Model) PageUp() {
	m.stop()
	m.vp.SetYOffset(m.vp.YOffset - m.vp.Height)
	m.follow = m.vp.AtBottom()
}

// PageDown scrolls one screen forward. Reaching the bottom resumes
// following.
func (m *Model) PageDown() {
	m.stop()
	m.vp.SetYOffset(m.vp.YOffset + m.vp.Height)
	m.follow = m.vp.AtBottom()
}

// Following reports whether the view sticks to the newest entry.
func (m *Model) Following() bool { return m.follow }

// Update advances the scroll animation.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	frame, ok := msg.(scrollFrameMsg)
	if !ok || frame.id != m.animID || !m.animating {
		return m, nil
	}
	target := m.bottom()
	m.pos, m.vel = m.spring.Update(m.pos, m.vel, target)
	if math.Abs(m.pos-target) < 0.5 && math.Abs(m.vel) < 0.05 {
		m.pos, m.vel = target, 0
		m.animating = false
		m.vp.GotoBottom()
		return m, nil
	}
	m.vp.SetYOffset(int(math.Round(m.pos)))
	return m, tick(m.animID)
}

// View renders the visible part of the transcript.
func (m Model) View() string {
	return m.vp.View()
}

func (m *Model) bottom() float64 {
	return float64(max(m.vp.TotalLineCount()-m.vp.Height, 0))
}

func (m *Model) animateTo() tea.Cmd {
	if m.bottom() == float64(m.vp.YOffset) {
		return nil
	}
	if m.animating {
		return nil
	}
	m.animating = true
	m.animID++
	m.pos, m.vel = float64(m.vp.YOffset), 0
	return tick(m.animID)
}

func (m *Model) stop() {
	m.animating = false
	m.vel = 0
}

func tick(id int) tea.Cmd {
	return tea.Tick(time.Second/fps, func(time.Time) tea.Msg { return scrollFrameMsg{id: id} })
}

func (m *Model) content(tr i18n.Translator) string {
	entries := m.Entries(tr)
	if len(entries) == 0 {
		return theme.StyleDimmed.Render(tr.Translate("ui.empty"))
	}
	width := max(m.vp.Width, 20)
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, FormatEntry(e, width))
	}
	return strings.Join(lines, "\n")
}

// FormatEntry lays out one entry within width columns.
func FormatEntry(e render.Entry, width int) string {
	color := lipgloss.NewStyle().Foreground(theme.EntryColor(e.Kind))
	glyph := color.Render(theme.EntryGlyph(e.Kind))

	if e.Kind == render.KindMarker {
		label := " " + e.Body + " "
		pad := max(width-lipgloss.Width(label), 2)
		left := pad / 2
		return color.Render(strings.Repeat("─", left) + label + strings.Repeat("─", pad-left))
	}

	var head []string
	if e.Time != "" {
		head = append(head, theme.StyleDimmed.Render("["+e.Time+"]"))
	}
	var line string
	switch e.Kind {
	case render.KindChat:
		head = append(head, theme.StyleSender.Render(e.Sender+":"))
		line = glyph + " " + strings.Join(head, " ") + " " + e.Body
	default:
		if e.Kind == render.KindSystem {
			head = append(head, color.Bold(true).Render(e.Sender+":"))
		}
		line = glyph + " " + strings.Join(append(head, color.Render(e.Body)), " ")
	}
	return lipgloss.NewStyle().Width(width).Render(line)
}
