package debug

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/roomchat/chat-tui/internal/i18n"
)

func translator(t *testing.T) *i18n.Engine {
	t.Helper()
	e := i18n.New(i18n.Embedded(), i18n.WithLogger(log.New(io.Discard, "", 0)))
	if _, err := e.SetLocale(context.Background(), "en"); err != nil {
		t.Fatal(err)
	}
	return e
}

func TestAddEntry(t *testing.T) {
	m := New()
	m.Add(KindWS, "connected")
	if len(m.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(m.Entries))
	}
	if m.Entries[0].Kind != KindWS {
		t.Errorf("expected kind 'ws', got %q", m.Entries[0].Kind)
	}
}

func TestMaxEntries(t *testing.T) {
	m := New()
	for i := 0; i < maxEntries+50; i++ {
		m.Add(KindWS, "msg")
	}
	if len(m.Entries) != maxEntries {
		t.Errorf("expected %d entries, got %d", maxEntries, len(m.Entries))
	}
}

func TestScrollUpDown(t *testing.T) {
	m := New()
	for i := 0; i < 20; i++ {
		m.Add(KindWS, "msg")
	}
	if m.Offset != 0 {
		t.Fatal("expected offset 0 after adds")
	}

	m.ScrollUp(5)
	if m.Offset != 5 {
		t.Errorf("expected offset 5, got %d", m.Offset)
	}

	m.ScrollDown(3)
	if m.Offset != 2 {
		t.Errorf("expected offset 2, got %d", m.Offset)
	}

	m.ScrollDown(10) // shouldn't go below 0
	if m.Offset != 0 {
		t.Errorf("expected offset 0, got %d", m.Offset)
	}
}

func TestScrollUpCapped(t *testing.T) {
	m := New()
	for i := 0; i < 5; i++ {
		m.Add(KindWS, "msg")
	}
	m.ScrollUp(100)
	if m.Offset != 4 { // max is len-1
		t.Errorf("expected offset 4, got %d", m.Offset)
	}
}

func TestViewEmpty(t *testing.T) {
	m := New()
	v := m.View(80, 20, translator(t), nil)
	if !strings.Contains(v, "No events") {
		t.Error("empty view should show 'No events' message")
	}
}

func TestViewWithEntries(t *testing.T) {
	m := New()
	m.Add(KindWS, "connected")
	m.Add(KindErr, "timeout")
	v := m.View(80, 20, translator(t), nil)
	if !strings.Contains(v, "connected") {
		t.Error("view should contain 'connected'")
	}
	if !strings.Contains(v, "timeout") {
		t.Error("view should contain 'timeout'")
	}
	if !strings.Contains(v, "2 entries") {
		t.Error("view should show the entry count")
	}
}

func TestViewMissingKeys(t *testing.T) {
	m := New()
	m.Add(KindI18n, "loaded en")
	v := m.View(80, 30, translator(t), []string{"chat.typing", "users.away.one"})
	if !strings.Contains(v, "Missing translation keys (2)") {
		t.Errorf("missing panel header not found in:\n%s", v)
	}
	if !strings.Contains(v, "users.away.one") {
		t.Error("missing key not listed")
	}
}

func TestViewMissingKeysCapped(t *testing.T) {
	var keys []string
	for i := 0; i < maxMissingRows+3; i++ {
		keys = append(keys, "key."+string(rune('a'+i)))
	}
	v := New().View(80, 40, translator(t), keys)
	if !strings.Contains(v, "+3") {
		t.Error("overflow count not shown")
	}
}

func TestAddResetsScroll(t *testing.T) {
	m := New()
	for i := 0; i < 10; i++ {
		m.Add(KindWS, "msg")
	}
	m.ScrollUp(5)
	m.Add(KindWS, "new")
	if m.Offset != 0 {
		t.Error("adding entry should reset scroll to 0")
	}
}
