package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/roomchat/chat-tui/internal/i18n"
	"github.com/roomchat/chat-tui/internal/presence"
	"github.com/roomchat/chat-tui/internal/protocol"
	"github.com/roomchat/chat-tui/internal/render"
	"github.com/roomchat/chat-tui/internal/session"
	"github.com/roomchat/chat-tui/internal/theme"
	"github.com/roomchat/chat-tui/internal/views/debug"
	"github.com/roomchat/chat-tui/internal/views/help"
	"github.com/roomchat/chat-tui/internal/views/status"
	"github.com/roomchat/chat-tui/internal/views/transcript"
)

const (
	defaultNotificationTTL = 5 * time.Second
	defaultCatalogTimeout  = 10 * time.Second

	// status bar (3), notification, input and hint lines
	chromeHeight = 6
)

// Overlay identifies which modal is active.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayHelp
	OverlayDebug
)

// Config wires the root model.
type Config struct {
	Engine          *i18n.Engine
	Session         *session.Manager
	Name            string // prefilled display name
	NotificationTTL time.Duration
	CatalogTimeout  time.Duration
	HelpStyle       string // glamour style
}

type notification struct {
	id    int
	text  string
	style lipgloss.Style
}

// notifyExpiredMsg removes notification id once its lifetime is over.
type notifyExpiredMsg struct{ id int }

// localeMsg reports the outcome of a locale switch.
type localeMsg struct {
	requested string
	locale    string
	err       error
}

// Model is the root Bubble Tea model.
type Model struct {
	engine  *i18n.Engine
	session *session.Manager
	cfg     Config

	keys    KeyMap
	width   int
	height  int
	overlay Overlay

	name    textinput.Model
	message textinput.Model

	presence   *presence.Tracker
	transcript transcript.Model
	statusBar  status.Model
	debug      debug.Model
	help       *help.Model

	note     *notification
	noteSeq  int
	deferred []tea.Cmd // commands produced while dispatching a frame
}

// New creates the root model.
func New(cfg Config) Model {
	if cfg.NotificationTTL <= 0 {
		cfg.NotificationTTL = defaultNotificationTTL
	}
	if cfg.CatalogTimeout <= 0 {
		cfg.CatalogTimeout = defaultCatalogTimeout
	}

	name := textinput.New()
	name.CharLimit = 64
	name.SetValue(cfg.Name)
	name.Focus()

	msg := textinput.New()
	msg.CharLimit = 1000

	p := &presence.Tracker{}
	h := help.New(cfg.HelpStyle)
	return Model{
		engine:     cfg.Engine,
		session:    cfg.Session,
		cfg:        cfg,
		keys:       DefaultKeyMap(),
		name:       name,
		message:    msg,
		presence:   p,
		transcript: transcript.New(),
		statusBar:  status.New(p),
		debug:      debug.New(),
		help:       &h,
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if cmd, ok := m.session.Update(msg, &m); ok {
		cmds := append(m.deferred, cmd, m.transcript.Refresh(m.engine))
		m.deferred = nil
		return m, tea.Batch(cmds...)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.name.Width = max(msg.Width-20, 10)
		m.message.Width = max(msg.Width-6, 10)
		m.transcript.SetSize(msg.Width, msg.Height-chromeHeight)
		return m, m.transcript.Refresh(m.engine)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case session.StateChangedMsg:
		return m, m.stateChanged(msg)

	case session.HistoryLoadedMsg:
		m.debug.Add(debug.KindWS, fmt.Sprintf("history: %d messages", len(msg.Messages)))
		m.transcript.InsertHistory(msg.Messages)
		return m, m.transcript.Refresh(m.engine)

	case session.ErrorMsg:
		m.debug.Add(debug.KindErr, msg.Err.Error())
		return m, m.notifyErr(msg.Err)

	case localeMsg:
		return m, m.localeChanged(msg)

	case notifyExpiredMsg:
		if m.note != nil && m.note.id == msg.id {
			m.note = nil
		}
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.transcript, cmd = m.transcript.Update(msg)
	cmds = append(cmds, cmd)
	m.name, cmd = m.name.Update(msg)
	cmds = append(cmds, cmd)
	m.message, cmd = m.message.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.session.Close()
		return m, tea.Quit
	}

	if m.overlay != OverlayNone {
		switch {
		case key.Matches(msg, m.keys.Escape):
			m.overlay = OverlayNone
		case m.overlay == OverlayDebug && key.Matches(msg, m.keys.ScrollUp):
			m.debug.ScrollUp(1)
		case m.overlay == OverlayDebug && key.Matches(msg, m.keys.ScrollDown):
			m.debug.ScrollDown(1)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		m.overlay = OverlayHelp
		return m, nil

	case key.Matches(msg, m.keys.Debug):
		m.overlay = OverlayDebug
		return m, nil

	case key.Matches(msg, m.keys.Locale):
		return m, m.switchLocale(m.nextLocale())

	case key.Matches(msg, m.keys.PageUp):
		m.transcript.PageUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.transcript.PageDown()
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		if m.session.State() == session.Disconnected {
			return m, m.connect()
		}
		cmd := m.session.Disconnect()
		return m, tea.Batch(append(m.syncState(), cmd)...)

	case key.Matches(msg, m.keys.Enter):
		switch m.session.State() {
		case session.Connected:
			return m, m.send()
		case session.Disconnected:
			return m, m.connect()
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch m.session.State() {
	case session.Connected:
		m.message, cmd = m.message.Update(msg)
	case session.Disconnected:
		m.name, cmd = m.name.Update(msg)
	}
	return m, cmd
}

// connect starts a session. The transcript is cleared here rather than on
// the Connecting notification, which may be delivered after the first
// frames of the new connection.
func (m *Model) connect() tea.Cmd {
	cmd, err := m.session.Connect(m.name.Value())
	if err != nil {
		return m.notifyErr(err)
	}
	if m.session.State() == session.Connecting {
		m.transcript.Reset()
		m.presence.Reset()
	}
	return tea.Batch(append(m.syncState(), cmd)...)
}

func (m *Model) send() tea.Cmd {
	cmd, err := m.session.Send(m.message.Value())
	var cerr *session.ConnectionError
	switch {
	case errors.As(err, &cerr):
		// reported with the resulting state change
		return cmd
	case err != nil:
		return m.notifyErr(err)
	}
	m.message.Reset()
	return cmd
}

func (m *Model) stateChanged(msg session.StateChangedMsg) tea.Cmd {
	m.debug.Add(debug.KindState, fmt.Sprintf("%s -> %s", msg.From, msg.To))
	cmds := m.syncState()
	if msg.Err != nil {
		m.debug.Add(debug.KindErr, msg.Err.Error())
		cmds = append(cmds, m.notifyErr(msg.Err))
	}
	cmds = append(cmds, m.transcript.Refresh(m.engine))
	return tea.Batch(cmds...)
}

// syncState aligns the status bar and input focus with the manager. It
// reads the live state, not the notification, since notifications can
// arrive late.
func (m *Model) syncState() []tea.Cmd {
	state := m.session.State()
	m.statusBar.State = state
	m.statusBar.Name = m.session.Session().DisplayName

	switch state {
	case session.Connecting:
		m.name.Blur()
		m.message.Blur()
	case session.Connected:
		m.name.Blur()
		if !m.message.Focused() {
			return []tea.Cmd{m.message.Focus()}
		}
	default:
		m.presence.Reset()
		m.message.Blur()
		if !m.name.Focused() {
			return []tea.Cmd{m.name.Focus()}
		}
	}
	return nil
}

func (m Model) nextLocale() string {
	supported := m.engine.Supported()
	idx := lo.IndexOf(supported, m.engine.Locale())
	return supported[(idx+1)%len(supported)]
}

func (m *Model) switchLocale(locale string) tea.Cmd {
	engine, timeout := m.engine, m.cfg.CatalogTimeout
	m.debug.Add(debug.KindI18n, "loading "+locale)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		resolved, err := engine.SetLocale(ctx, locale)
		return localeMsg{requested: locale, locale: resolved, err: err}
	}
}

func (m *Model) localeChanged(msg localeMsg) tea.Cmd {
	switch {
	case errors.Is(msg.err, i18n.ErrSuperseded):
		m.debug.Add(debug.KindI18n, "discarded "+msg.locale)
		return nil
	case msg.err != nil:
		m.debug.Add(debug.KindErr, msg.err.Error())
		return m.notifyErr(msg.err)
	}
	if msg.locale != msg.requested {
		m.debug.Add(debug.KindI18n, fmt.Sprintf("%s unavailable, using %s", msg.requested, msg.locale))
	} else {
		m.debug.Add(debug.KindI18n, "locale "+msg.locale)
	}
	return m.transcript.Refresh(m.engine)
}

func (m *Model) notifyErr(err error) tea.Cmd {
	style := theme.StyleChatError
	var lerr *i18n.LoadError
	if errors.As(err, &lerr) {
		style = theme.StyleLocaleError
	}
	log.Printf("notify: %v", err)
	return m.notify(m.engine.Error(err), style)
}

func (m *Model) notify(text string, style lipgloss.Style) tea.Cmd {
	m.noteSeq++
	id := m.noteSeq
	m.note = &notification{id: id, text: render.Sanitize(text), style: style}
	return tea.Tick(m.cfg.NotificationTTL, func(time.Time) tea.Msg {
		return notifyExpiredMsg{id: id}
	})
}

// --- protocol.Handler ---

func (m *Model) HandleChat(msg protocol.ChatMessage) {
	m.transcript.Append(msg)
}

func (m *Model) HandleJoin(msg protocol.ChatMessage) {
	m.debug.Add(debug.KindWS, "join "+msg.Name)
	m.transcript.Append(msg)
}

func (m *Model) HandleLeave(msg protocol.ChatMessage) {
	m.debug.Add(debug.KindWS, "leave "+msg.Name)
	m.transcript.Append(msg)
}

func (m *Model) HandleError(msg protocol.ChatMessage) {
	text := render.Sanitize(msg.Message)
	m.debug.Add(debug.KindErr, "server: "+text)
	m.transcript.Append(msg)
	if strings.TrimSpace(text) == "" {
		text = m.engine.Translate("ui.error.websocket")
	}
	m.deferred = append(m.deferred, m.notify(text, theme.StyleChatError))
}

func (m *Model) HandleUserCount(_ protocol.ChatMessage, count int) {
	m.presence.Update(count)
}

func (m *Model) HandleUnknown(msg protocol.ChatMessage) {
	m.debug.Add(debug.KindWS, fmt.Sprintf("unhandled type %q", msg.Type))
	m.transcript.Append(msg)
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	tr := m.engine
	bodyHeight := max(m.height-chromeHeight, 1)

	var body string
	switch m.overlay {
	case OverlayHelp:
		body = lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, m.help.View(tr, min(m.width, 80)))
	case OverlayDebug:
		body = m.debug.View(m.width, bodyHeight, tr, tr.MissingKeys())
	default:
		body = lipgloss.NewStyle().Height(bodyHeight).Render(m.transcript.View())
	}

	var note string
	if m.note != nil {
		note = m.note.style.Render(m.note.text)
	}

	var input, hint string
	if m.session.State() == session.Connected {
		m.message.Placeholder = tr.Translate("ui.message.placeholder")
		m.message.Prompt = "› "
		input = m.message.View()
		hint = tr.Translate("ui.hint.connected")
	} else {
		m.name.Placeholder = tr.Translate("ui.name.placeholder")
		m.name.Prompt = tr.Translate("ui.name.label") + ": "
		input = m.name.View()
		hint = tr.Translate("ui.hint.disconnected")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.statusBar.View(tr),
		body,
		note,
		input,
		theme.StyleDimmed.Render(hint),
	)
}
