// Package render turns protocol messages into transcript entries.
package render

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/x/ansi"

	"github.com/roomchat/chat-tui/internal/protocol"
)

// Kind classifies an entry for styling.
type Kind string

const (
	KindJoin   Kind = "join"
	KindLeave  Kind = "leave"
	KindChat   Kind = "chat"
	KindSystem Kind = "system"
	KindMarker Kind = "marker"
)

// Marker identifies a history boundary.
type Marker int

const (
	MarkerHistory Marker = iota // before replayed messages
	MarkerNew                   // after replayed messages
)

// Translator is the subset of the i18n engine the renderer needs.
type Translator interface {
	Translate(key string, args ...any) string
	FormatTimestamp(iso string) string
}

// Entry is one rendered transcript line. All fields are plain text.
type Entry struct {
	Kind   Kind
	Sender string
	Time   string
	Body   string
}

// Render converts m into an entry under the translator's current locale.
// The result depends only on m and the active catalog.
func Render(m protocol.ChatMessage, tr Translator) Entry {
	e := Entry{
		Sender: Sanitize(m.Name),
		Time:   tr.FormatTimestamp(m.Timestamp),
	}
	if strings.TrimSpace(e.Sender) == "" {
		e.Sender = tr.Translate("chat.system")
	}

	switch m.Type {
	case protocol.TypeJoin:
		e.Kind = KindJoin
		e.Body = tr.Translate("chat.join", e.Sender)
	case protocol.TypeLeave:
		e.Kind = KindLeave
		e.Body = tr.Translate("chat.leave", e.Sender)
	case protocol.TypeChat:
		e.Kind = KindChat
		e.Body = Sanitize(m.Message)
	default:
		e.Kind = KindSystem
		e.Body = Sanitize(m.Message)
	}
	return e
}

// RenderMarker returns the separator entry for a history boundary.
func RenderMarker(mk Marker, tr Translator) Entry {
	key := "history.marker"
	if mk == MarkerNew {
		key = "history.new"
	}
	return Entry{Kind: KindMarker, Body: tr.Translate(key)}
}

// Sanitize reduces s to printable text: terminal escape sequences are
// removed, tabs become spaces and other control characters are dropped.
// Newlines are kept.
func Sanitize(s string) string {
	s = ansi.Strip(s)
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n':
			return r
		case r == '\t':
			return ' '
		case unicode.IsControl(r), r == '\u200e', r == '\u200f', r >= '\u202a' && r <= '\u202e':
			return -1
		}
		return r
	}, s)
}
