package help

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/roomchat/chat-tui/internal/i18n"
)

func TestViewRendersLocalizedMarkdown(t *testing.T) {
	e := i18n.New(i18n.Embedded(), i18n.WithLogger(log.New(io.Discard, "", 0)))
	if _, err := e.SetLocale(context.Background(), "en"); err != nil {
		t.Fatal(err)
	}

	m := New("notty")
	v := m.View(e, 80)
	if !strings.Contains(v, "HELP") {
		t.Errorf("title missing:\n%s", v)
	}
	if !strings.Contains(v, "ctrl+l") {
		t.Errorf("key table missing:\n%s", v)
	}
	if strings.Contains(v, "|---|") {
		t.Error("markdown table left unrendered")
	}
	for i, line := range strings.Split(v, "\n") {
		if w := lipgloss.Width(line); w > 80 {
			t.Errorf("line %d is %d columns wide, want <= 80", i, w)
		}
	}

	if _, err := e.SetLocale(context.Background(), "ca"); err != nil {
		t.Fatal(err)
	}
	if m.View(e, 80) == v {
		t.Error("view not re-rendered after locale switch")
	}
}
