package app

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomchat/chat-tui/internal/chattest"
	"github.com/roomchat/chat-tui/internal/client"
	"github.com/roomchat/chat-tui/internal/i18n"
	"github.com/roomchat/chat-tui/internal/protocol"
	"github.com/roomchat/chat-tui/internal/session"
	"github.com/roomchat/chat-tui/internal/theme"
)

const waitTimeout = 3 * time.Second

var quiet = log.New(io.Discard, "", 0)

// harness plays the part of tea.Program: commands run in goroutines and
// their messages are fed back into Update one at a time.
type harness struct {
	t    *testing.T
	m    Model
	msgs chan tea.Msg
	done chan struct{}
}

func newHarness(t *testing.T, m Model) *harness {
	h := &harness{t: t, m: m, msgs: make(chan tea.Msg, 64), done: make(chan struct{})}
	t.Cleanup(func() {
		close(h.done)
		h.m.session.Close()
	})
	h.send(tea.WindowSizeMsg{Width: 100, Height: 30})
	return h
}

func (h *harness) exec(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	go func() {
		msg := cmd()
		if batch, ok := msg.(tea.BatchMsg); ok {
			for _, c := range batch {
				h.exec(c)
			}
			return
		}
		if msg == nil {
			return
		}
		select {
		case h.msgs <- msg:
		case <-h.done:
		}
	}()
}

func (h *harness) send(msg tea.Msg) {
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	h.exec(cmd)
}

func (h *harness) key(k tea.KeyType) { h.send(tea.KeyMsg{Type: k}) }

func (h *harness) typeText(s string) {
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

// until pumps messages until cond holds.
func (h *harness) until(what string, cond func() bool) {
	h.t.Helper()
	deadline := time.After(waitTimeout)
	for !cond() {
		select {
		case msg := <-h.msgs:
			h.send(msg)
		case <-deadline:
			h.t.Fatalf("timed out waiting for %s", what)
		}
	}
}

func (h *harness) bodies() []string {
	var out []string
	for _, e := range h.m.transcript.Entries(h.m.engine) {
		out = append(out, e.Body)
	}
	return out
}

func (h *harness) connected() bool { return h.m.session.State() == session.Connected }

func newEngine(t *testing.T, loader i18n.Loader) *i18n.Engine {
	t.Helper()
	e := i18n.New(loader, i18n.WithLogger(quiet), i18n.WithLocation(time.UTC))
	_, err := e.SetLocale(context.Background(), "en")
	require.NoError(t, err)
	return e
}

func newModel(t *testing.T, srv *chattest.Server, e *i18n.Engine) Model {
	t.Helper()
	url, base := "ws://127.0.0.1:1/chat", "http://127.0.0.1:1"
	if srv != nil {
		url, base = srv.WSURL(), srv.HTTPBase()
	}
	mgr := session.New(session.Config{
		Dialer:      client.NewWSDialer(url),
		History:     client.NewHTTPClient(base),
		DialTimeout: time.Second,
		Logger:      quiet,
	})
	return New(Config{Engine: e, Session: mgr, HelpStyle: "notty"})
}

func waitForType(t *testing.T, srv *chattest.Server, typ protocol.MessageType) protocol.ChatMessage {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case m := <-srv.Received():
			if m.Type == typ {
				return m
			}
		case <-deadline:
			t.Fatalf("server never received %s", typ)
		}
	}
}

func connect(t *testing.T, h *harness, srv *chattest.Server, name string) {
	t.Helper()
	h.typeText(name)
	h.key(tea.KeyEnter)
	h.until("connected", h.connected)
	join := waitForType(t, srv, protocol.TypeJoin)
	require.Equal(t, name, join.Name)
}

func TestConnectLoadsHistoryAndChats(t *testing.T) {
	srv := chattest.New()
	defer srv.Close()
	srv.SetHistory(
		protocol.ChatMessage{Type: protocol.TypeChat, Name: "Carol", Message: "first"},
		protocol.ChatMessage{Type: protocol.TypeChat, Name: "Carol", Message: "second"},
	)

	h := newHarness(t, newModel(t, srv, newEngine(t, i18n.Embedded())))
	connect(t, h, srv, "Alice")

	h.until("history", func() bool { return strings.Contains(strings.Join(h.bodies(), "|"), "New messages") })
	h.until("presence", func() bool { return h.m.presence.Visible() })

	// The server records our own JOIN, so it may or may not be in the batch.
	var bodies []string
	for _, b := range h.bodies() {
		if b != "Alice has joined the chat" {
			bodies = append(bodies, b)
		}
	}
	require.GreaterOrEqual(t, len(bodies), 4)
	assert.Equal(t, []string{"Message history", "first", "second", "New messages"}, bodies[:4])
	assert.Contains(t, h.m.View(), "1 user online")
	assert.Contains(t, h.m.View(), "Alice")

	h.typeText("hello room")
	h.key(tea.KeyEnter)
	got := waitForType(t, srv, protocol.TypeChat)
	assert.Equal(t, "hello room", got.Message)
	assert.Equal(t, "Alice", got.Name)
	assert.Empty(t, h.m.message.Value(), "input cleared after send")

	h.until("echo", func() bool {
		b := h.bodies()
		return len(b) > 0 && b[len(b)-1] == "hello room"
	})
}

func TestEmptyNameNotifies(t *testing.T) {
	h := newHarness(t, newModel(t, nil, newEngine(t, i18n.Embedded())))

	h.key(tea.KeyEnter)

	require.NotNil(t, h.m.note)
	assert.Equal(t, "Please enter your name", h.m.note.text)
	assert.Equal(t, session.Disconnected, h.m.session.State())
	assert.Contains(t, h.m.View(), "Please enter your name")

	h.send(notifyExpiredMsg{id: h.m.note.id})
	assert.Nil(t, h.m.note)
}

func TestNotificationExpiryKeepsNewerNotice(t *testing.T) {
	h := newHarness(t, newModel(t, nil, newEngine(t, i18n.Embedded())))
	h.key(tea.KeyEnter)
	first := h.m.note.id
	h.key(tea.KeyEnter)

	h.send(notifyExpiredMsg{id: first})
	assert.NotNil(t, h.m.note, "older timer must not clear a newer notice")
}

func TestDialFailureNotifies(t *testing.T) {
	h := newHarness(t, newModel(t, nil, newEngine(t, i18n.Embedded())))
	h.typeText("Alice")
	h.key(tea.KeyEnter)
	assert.Equal(t, session.Connecting, h.m.session.State())

	h.until("failure notice", func() bool { return h.m.note != nil })
	assert.Equal(t, session.Disconnected, h.m.session.State())
	assert.True(t, strings.HasPrefix(h.m.note.text, "Connection failed: "), h.m.note.text)
	assert.True(t, h.m.name.Focused())
}

func TestServerErrorFrame(t *testing.T) {
	srv := chattest.New()
	defer srv.Close()
	h := newHarness(t, newModel(t, srv, newEngine(t, i18n.Embedded())))
	connect(t, h, srv, "Alice")

	srv.Broadcast(protocol.ChatMessage{Type: protocol.TypeError, Name: "System", Message: "rate limited"})

	h.until("error notice", func() bool { return h.m.note != nil })
	assert.Equal(t, "rate limited", h.m.note.text)
	assert.Contains(t, h.bodies(), "rate limited")
	assert.True(t, h.connected(), "an ERROR frame does not end the session")
}

func TestServerErrorNoticeIsPlainText(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"escape sequences", "\x1b]0;pwned\x07\x1b[2Jboom\u202e", "boom"},
		{"blank", " \x1b[0m ", "Connection error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newModel(t, nil, newEngine(t, i18n.Embedded()))
			m.HandleError(protocol.ChatMessage{Type: protocol.TypeError, Name: "System", Message: tt.message})

			require.NotNil(t, m.note)
			assert.Equal(t, tt.want, strings.TrimSpace(m.note.text))
			assert.NotContains(t, m.note.text, "\x1b")
			for _, e := range m.debug.Entries {
				assert.NotContains(t, e.Message, "\x1b")
			}
		})
	}
}

func TestUnreadableCountStaysOutOfTranscript(t *testing.T) {
	srv := chattest.New()
	defer srv.Close()
	h := newHarness(t, newModel(t, srv, newEngine(t, i18n.Embedded())))
	connect(t, h, srv, "Alice")
	h.until("presence", func() bool { return h.m.presence.Visible() })

	srv.Broadcast(protocol.ChatMessage{Type: protocol.TypeUserCount, Name: "System", Message: "n/a"})

	h.until("protocol notice", func() bool { return h.m.note != nil })
	assert.Equal(t, "Could not display a message", h.m.note.text)
	for _, b := range h.bodies() {
		assert.NotContains(t, b, "n/a")
	}
	assert.True(t, h.connected())
}

func TestHistoryAfterDisconnectDropped(t *testing.T) {
	h := newHarness(t, newModel(t, nil, newEngine(t, i18n.Embedded())))

	h.send(session.HistoryLoadedMsg{Messages: []protocol.ChatMessage{
		{Type: protocol.TypeChat, Name: "Carol", Message: "old"},
	}})

	assert.Zero(t, h.m.transcript.Len())
}

func TestToggleDisconnectSendsLeave(t *testing.T) {
	srv := chattest.New()
	defer srv.Close()
	h := newHarness(t, newModel(t, srv, newEngine(t, i18n.Embedded())))
	connect(t, h, srv, "Alice")
	h.until("presence", func() bool { return h.m.presence.Visible() })

	h.key(tea.KeyCtrlD)
	h.until("disconnected", func() bool { return h.m.session.State() == session.Disconnected })

	leave := waitForType(t, srv, protocol.TypeLeave)
	assert.Equal(t, "Alice", leave.Name)
	assert.False(t, h.m.presence.Visible())
	assert.True(t, h.m.name.Focused())
	assert.Nil(t, h.m.note)
	assert.Contains(t, h.m.View(), "Disconnected")
}

func TestRemoteClose(t *testing.T) {
	tests := []struct {
		name       string
		code       int
		wantNotice bool
	}{
		{"normal closure", websocket.CloseNormalClosure, false},
		{"server error", websocket.CloseInternalServerErr, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := chattest.New()
			defer srv.Close()
			h := newHarness(t, newModel(t, srv, newEngine(t, i18n.Embedded())))
			connect(t, h, srv, "Alice")

			srv.DropAll(tt.code)
			h.until("status bar update", func() bool { return h.m.statusBar.State == session.Disconnected })

			assert.Equal(t, session.Disconnected, h.m.session.State())
			if tt.wantNotice {
				require.NotNil(t, h.m.note)
				assert.Equal(t, "Connection error", h.m.note.text)
			} else {
				assert.Nil(t, h.m.note)
			}
		})
	}
}

func TestLocaleCycle(t *testing.T) {
	e := newEngine(t, i18n.Embedded())
	h := newHarness(t, newModel(t, nil, e))
	assert.Contains(t, h.m.View(), "Disconnected")

	h.key(tea.KeyCtrlL)
	h.until("catalan", func() bool { return e.Locale() == "ca" })
	h.until("re-render", func() bool { return strings.Contains(h.m.View(), "Desconnectat") })

	h.key(tea.KeyCtrlL)
	h.until("english", func() bool { return e.Locale() == "en" })
}

func TestLocaleFailureNotifies(t *testing.T) {
	failing := false
	e := newEngine(t, i18n.LoaderFunc(func(ctx context.Context, locale string) (map[string]string, error) {
		if failing {
			return nil, errors.New("offline")
		}
		return i18n.Embedded().Load(ctx, locale)
	}))
	h := newHarness(t, newModel(t, nil, e))
	failing = true

	h.key(tea.KeyCtrlL)
	h.until("locale notice", func() bool { return h.m.note != nil })

	assert.Equal(t, "Could not load language ca", h.m.note.text)
	assert.Equal(t, theme.StyleLocaleError.GetBackground(), h.m.note.style.GetBackground())
	assert.Equal(t, "en", e.Locale(), "previous catalog stays")
}

func TestOverlays(t *testing.T) {
	h := newHarness(t, newModel(t, nil, newEngine(t, i18n.Embedded())))

	h.key(tea.KeyF1)
	assert.Equal(t, OverlayHelp, h.m.overlay)
	assert.Contains(t, h.m.View(), "HELP")

	h.typeText("x")
	assert.Empty(t, h.m.name.Value(), "keys do not reach the input under an overlay")

	h.key(tea.KeyEsc)
	assert.Equal(t, OverlayNone, h.m.overlay)

	h.key(tea.KeyCtrlG)
	assert.Equal(t, OverlayDebug, h.m.overlay)
	assert.Contains(t, h.m.View(), "DEBUG LOG")
}

func TestQuitSendsLeave(t *testing.T) {
	srv := chattest.New()
	defer srv.Close()
	h := newHarness(t, newModel(t, srv, newEngine(t, i18n.Embedded())))
	connect(t, h, srv, "Alice")

	_, cmd := h.m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	waitForType(t, srv, protocol.TypeLeave)
}

func TestViewBeforeResize(t *testing.T) {
	m := newModel(t, nil, newEngine(t, i18n.Embedded()))
	assert.Empty(t, m.View())
}
