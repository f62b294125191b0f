package status

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/roomchat/chat-tui/internal/i18n"
	"github.com/roomchat/chat-tui/internal/presence"
	"github.com/roomchat/chat-tui/internal/session"
)

func translator(t *testing.T, locale string) *i18n.Engine {
	t.Helper()
	e := i18n.New(i18n.Embedded(), i18n.WithLogger(log.New(io.Discard, "", 0)))
	if _, err := e.SetLocale(context.Background(), locale); err != nil {
		t.Fatal(err)
	}
	return e
}

func TestViewStates(t *testing.T) {
	tr := translator(t, "en")
	tests := []struct {
		state session.State
		want  string
	}{
		{session.Disconnected, "Disconnected"},
		{session.Connecting, "Connecting..."},
		{session.Connected, "Connected"},
	}
	for _, tt := range tests {
		m := New(&presence.Tracker{})
		m.State = tt.state
		m.Width = 100
		if v := m.View(tr); !strings.Contains(v, tt.want) {
			t.Errorf("state %s: view missing %q:\n%s", tt.state, tt.want, v)
		}
	}
}

func TestViewPresence(t *testing.T) {
	tr := translator(t, "en")
	p := &presence.Tracker{}
	m := New(p)
	m.Width = 100
	m.State = session.Connected

	if v := m.View(tr); strings.Contains(v, "online") {
		t.Error("presence shown before any count arrived")
	}

	p.Update(3)
	if v := m.View(tr); !strings.Contains(v, "3 users online") {
		t.Errorf("view missing presence text:\n%s", v)
	}

	p.Reset()
	if v := m.View(tr); strings.Contains(v, "online") {
		t.Error("presence shown after reset")
	}
}

func TestViewLanguage(t *testing.T) {
	m := New(&presence.Tracker{})
	m.Width = 100
	if v := m.View(translator(t, "ca")); !strings.Contains(v, "Català") {
		t.Errorf("view missing language name:\n%s", v)
	}
}
