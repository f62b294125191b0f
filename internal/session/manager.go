// Package session owns the connection to the chat room: the
// Disconnected/Connecting/Connected state machine, the read loop, the
// JOIN/LEAVE handshake and the one-shot history fetch.
//
// The Manager is driven from a Bubble Tea Update function. Blocking work
// (dialing, reading a frame, fetching history) runs in commands that report
// back as messages tagged with the connection generation; anything tagged
// with an older generation is discarded.
package session

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/roomchat/chat-tui/internal/client"
	"github.com/roomchat/chat-tui/internal/protocol"
)

const (
	defaultDialTimeout    = 10 * time.Second
	defaultHistoryTimeout = 10 * time.Second
)

// State is the connection state of the session.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Session describes the current or last connection attempt.
type Session struct {
	ID          string // regenerated on every Connect, for log correlation
	DisplayName string
	State       State
}

// HistoryFetcher retrieves the room's prior messages, newest first.
type HistoryFetcher interface {
	GetHistory(ctx context.Context) ([]protocol.ChatMessage, error)
}

// Config wires a Manager.
type Config struct {
	Dialer         client.Dialer
	History        HistoryFetcher // nil disables the history fetch
	DialTimeout    time.Duration
	HistoryTimeout time.Duration
	Logger         *log.Logger
	Debug          bool // log every frame
}

// --- Bubble Tea messages ---

// OpenedMsg is sent when a dial completes.
type OpenedMsg struct {
	Gen  uint64
	Conn client.Conn
}

// DialFailedMsg is sent when a dial fails.
type DialFailedMsg struct {
	Gen uint64
	Err error
}

// FrameMsg delivers one inbound frame.
type FrameMsg struct {
	Gen  uint64
	Data []byte
}

// ClosedMsg is sent when the read loop ends.
type ClosedMsg struct {
	Gen uint64
	Err error
}

// HistoryMsg delivers the raw result of the history fetch.
type HistoryMsg struct {
	Gen      uint64
	Messages []protocol.ChatMessage
	Err      error
}

// StateChangedMsg is emitted on every transition. Err is set when the
// transition was forced by a failure.
type StateChangedMsg struct {
	From, To State
	Err      error
}

// HistoryLoadedMsg carries the history of the current connection in
// chronological order, ready to render. Update reports it unhandled only
// while its connection is still the live one.
type HistoryLoadedMsg struct {
	Gen      uint64
	Messages []protocol.ChatMessage
}

// ErrorMsg surfaces a non-fatal error as a notification.
type ErrorMsg struct {
	Err error
}

// Manager is the connection state machine. It is not safe for concurrent
// use; call it from the Update goroutine only.
type Manager struct {
	cfg     Config
	logger  *log.Logger
	session Session

	gen        uint64
	conn       client.Conn
	cancelDial context.CancelFunc

	listeners map[int]func(StateChangedMsg)
	nextID    int
}

// New creates a manager in the Disconnected state.
func New(cfg Config) *Manager {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.HistoryTimeout <= 0 {
		cfg.HistoryTimeout = defaultHistoryTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		cfg:       cfg,
		logger:    logger,
		listeners: make(map[int]func(StateChangedMsg)),
	}
}

// Session returns a copy of the current session.
func (m *Manager) Session() Session { return m.session }

// State returns the current connection state.
func (m *Manager) State() State { return m.session.State }

// Subscribe registers fn for every state transition. The returned function
// removes it.
func (m *Manager) Subscribe(fn func(StateChangedMsg)) (cancel func()) {
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() { delete(m.listeners, id) }
}

// Connect opens a session for name. While Connecting it does nothing; while
// Connected it disconnects, so the same action toggles the connection.
func (m *Manager) Connect(name string) (tea.Cmd, error) {
	switch m.session.State {
	case Connecting:
		return nil, nil
	case Connected:
		return m.Disconnect(), nil
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name"}
	}

	m.gen++
	m.session.ID = uuid.NewString()
	m.session.DisplayName = name
	gen := m.gen

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.DialTimeout)
	m.cancelDial = cancel
	dialer := m.cfg.Dialer

	m.logf("connecting as %q", name)
	stateCmd := m.transition(Connecting, nil)
	dial := func() tea.Msg {
		defer cancel()
		conn, err := dialer.Dial(ctx)
		if err != nil {
			return DialFailedMsg{Gen: gen, Err: err}
		}
		return OpenedMsg{Gen: gen, Conn: conn}
	}
	return tea.Batch(stateCmd, dial), nil
}

// Disconnect ends the session. From Connected a LEAVE is sent first on a
// best-effort basis. From Connecting the pending dial is abandoned.
func (m *Manager) Disconnect() tea.Cmd {
	switch m.session.State {
	case Connected:
		m.sendLeave()
		m.dropConn()
	case Connecting:
		if m.cancelDial != nil {
			m.cancelDial()
		}
	default:
		return nil
	}
	m.gen++
	m.logf("disconnected by user")
	return m.transition(Disconnected, nil)
}

// Close ends the session on quit. Listeners still see the transition but
// no command is returned.
func (m *Manager) Close() {
	m.Disconnect()
}

// Send sends a CHAT message. A write failure disconnects the session; the
// returned command reports the transition.
func (m *Manager) Send(text string) (tea.Cmd, error) {
	if m.session.State != Connected {
		return nil, &NotConnectedError{State: m.session.State}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Field: "message"}
	}
	if err := m.write(protocol.NewChat(m.session.DisplayName, text)); err != nil {
		cerr := &ConnectionError{Op: "write", Err: err}
		return m.fail(cerr), cerr
	}
	return nil, nil
}

// Update consumes the manager's own messages and reports whether msg was
// one of them. Inbound frames are dispatched to h.
func (m *Manager) Update(msg tea.Msg, h protocol.Handler) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case OpenedMsg:
		return m.opened(msg), true
	case DialFailedMsg:
		if m.stale(msg.Gen) || m.session.State != Connecting {
			return nil, true
		}
		m.logf("dial failed: %v", msg.Err)
		return m.fail(&ConnectionError{Op: "dial", Err: msg.Err}), true
	case FrameMsg:
		if m.stale(msg.Gen) {
			return nil, true
		}
		return tea.Batch(m.frame(msg.Data, h), m.read()), true
	case ClosedMsg:
		if m.stale(msg.Gen) {
			return nil, true
		}
		return m.closed(msg.Err), true
	case HistoryMsg:
		if m.stale(msg.Gen) || m.session.State != Connected {
			return nil, true
		}
		return m.history(msg), true
	case HistoryLoadedMsg:
		if m.stale(msg.Gen) || m.session.State != Connected {
			return nil, true
		}
	}
	return nil, false
}

func (m *Manager) stale(gen uint64) bool { return gen != m.gen }

func (m *Manager) opened(msg OpenedMsg) tea.Cmd {
	if m.stale(msg.Gen) || m.session.State != Connecting {
		// A dial that finished after Disconnect or a newer Connect.
		m.logf("closing stray connection from attempt %d", msg.Gen)
		msg.Conn.Close()
		return nil
	}
	m.cancelDial = nil
	m.conn = msg.Conn

	if err := m.write(protocol.NewJoin(m.session.DisplayName)); err != nil {
		return m.fail(&ConnectionError{Op: "write", Err: err})
	}
	m.logf("connected")
	return tea.Batch(m.transition(Connected, nil), m.read(), m.fetchHistory())
}

func (m *Manager) frame(data []byte, h protocol.Handler) tea.Cmd {
	if m.cfg.Debug {
		m.logf("frame: %s", data)
	}
	msg, err := protocol.Parse(data)
	if err != nil {
		m.logf("dropping undecodable frame: %v", err)
		perr := &ProtocolError{Raw: data, Err: err}
		return func() tea.Msg { return ErrorMsg{Err: perr} }
	}
	if msg.Type == protocol.TypeChat && msg.Blank() {
		return nil
	}
	if err := protocol.Dispatch(msg, h); err != nil {
		m.logf("dropping frame: %v", err)
		perr := &ProtocolError{Raw: data, Err: err}
		return func() tea.Msg { return ErrorMsg{Err: perr} }
	}
	return nil
}

func (m *Manager) closed(err error) tea.Cmd {
	m.dropConn()
	if client.IsNormalClose(err) {
		m.logf("server closed the connection: %v", err)
		return m.transition(Disconnected, nil)
	}
	m.logf("read failed: %v", err)
	return m.fail(&ConnectionError{Op: "read", Err: err})
}

func (m *Manager) history(msg HistoryMsg) tea.Cmd {
	if msg.Err != nil {
		m.logf("history fetch failed: %v", msg.Err)
		herr := &HistoryFetchError{Err: msg.Err}
		return func() tea.Msg { return ErrorMsg{Err: herr} }
	}
	batch := Chronological(msg.Messages)
	m.logf("history: %d messages", len(batch))
	gen := m.gen
	return func() tea.Msg { return HistoryLoadedMsg{Gen: gen, Messages: batch} }
}

// Chronological turns a newest-first history batch into display order,
// dropping entries that never render (counts and blank chats).
func Chronological(newestFirst []protocol.ChatMessage) []protocol.ChatMessage {
	kept := lo.Filter(newestFirst, func(msg protocol.ChatMessage, _ int) bool {
		if msg.Type == protocol.TypeUserCount {
			return false
		}
		return msg.Type != protocol.TypeChat || !msg.Blank()
	})
	return lo.Reverse(kept)
}

// read returns a command that blocks for the next frame on the live
// connection.
func (m *Manager) read() tea.Cmd {
	conn, gen := m.conn, m.gen
	if conn == nil {
		return nil
	}
	return func() tea.Msg {
		data, err := conn.ReadFrame()
		if err != nil {
			return ClosedMsg{Gen: gen, Err: err}
		}
		return FrameMsg{Gen: gen, Data: data}
	}
}

func (m *Manager) fetchHistory() tea.Cmd {
	fetcher, gen, timeout := m.cfg.History, m.gen, m.cfg.HistoryTimeout
	if fetcher == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		msgs, err := fetcher.GetHistory(ctx)
		return HistoryMsg{Gen: gen, Messages: msgs, Err: err}
	}
}

func (m *Manager) write(msg protocol.ChatMessage) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	if m.cfg.Debug {
		m.logf("send: %s", data)
	}
	return m.conn.WriteFrame(data)
}

func (m *Manager) sendLeave() {
	if err := m.write(protocol.NewLeave(m.session.DisplayName)); err != nil {
		m.logf("leave not sent: %v", err)
	}
}

func (m *Manager) dropConn() {
	if m.conn == nil {
		return
	}
	if err := m.conn.Close(); err != nil {
		m.logf("close: %v", err)
	}
	m.conn = nil
}

// fail forces Disconnected after a transport error.
func (m *Manager) fail(err error) tea.Cmd {
	m.dropConn()
	m.gen++
	return m.transition(Disconnected, err)
}

func (m *Manager) transition(to State, err error) tea.Cmd {
	from := m.session.State
	if from == to {
		return nil
	}
	m.session.State = to
	m.logf("state %s -> %s", from, to)

	change := StateChangedMsg{From: from, To: to, Err: err}
	ids := lo.Keys(m.listeners)
	sort.Ints(ids)
	for _, id := range ids {
		m.listeners[id](change)
	}
	return func() tea.Msg { return change }
}

func (m *Manager) logf(format string, args ...any) {
	m.logger.Printf("session=%s "+format, append([]any{m.session.ID}, args...)...)
}
