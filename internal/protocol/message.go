// Package protocol defines the JSON wire format spoken with the chat server.
package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MessageType identifies the kind of chat frame.
type MessageType string

const (
	TypeChat      MessageType = "CHAT"
	TypeJoin      MessageType = "JOIN"
	TypeLeave     MessageType = "LEAVE"
	TypeError     MessageType = "ERROR"
	TypeUserCount MessageType = "USER_COUNT"
)

// Known reports whether t is one of the types defined by the protocol.
func (t MessageType) Known() bool {
	switch t {
	case TypeChat, TypeJoin, TypeLeave, TypeError, TypeUserCount:
		return true
	}
	return false
}

// ChatMessage is the envelope for every frame and every history entry.
// Which fields are meaningful depends on Type.
type ChatMessage struct {
	Type      MessageType `json:"type"`
	Name      string      `json:"name,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
	Count     *int        `json:"count,omitempty"`
}

// UserCount returns the online count carried by a USER_COUNT frame.
// Servers that predate the count field send it as a decimal string in
// Message, so that is accepted too.
func (m ChatMessage) UserCount() (int, bool) {
	if m.Count != nil {
		return *m.Count, true
	}
	n, err := strconv.Atoi(strings.TrimSpace(m.Message))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Blank reports whether the message body is empty after trimming.
func (m ChatMessage) Blank() bool {
	return strings.TrimSpace(m.Message) == ""
}

// NewJoin builds the JOIN frame announcing name. JOIN carries no body.
func NewJoin(name string) ChatMessage {
	return ChatMessage{Type: TypeJoin, Name: name}
}

// NewLeave builds the LEAVE frame for name. LEAVE carries no body.
func NewLeave(name string) ChatMessage {
	return ChatMessage{Type: TypeLeave, Name: name}
}

// NewChat builds a CHAT frame with the trimmed text.
func NewChat(name, text string) ChatMessage {
	return ChatMessage{Type: TypeChat, Name: name, Message: strings.TrimSpace(text)}
}

// Encode serialises m as a JSON text frame. JOIN and LEAVE always carry an
// explicit empty message body.
func Encode(m ChatMessage) ([]byte, error) {
	var v any = m
	if m.Type == TypeJoin || m.Type == TypeLeave {
		v = struct {
			Type      MessageType `json:"type"`
			Name      string      `json:"name"`
			Message   string      `json:"message"`
			Timestamp string      `json:"timestamp,omitempty"`
			Count     *int        `json:"count,omitempty"`
		}{m.Type, m.Name, m.Message, m.Timestamp, m.Count}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %s frame: %w", m.Type, err)
	}
	return data, nil
}

// Parse decodes a single JSON frame.
func Parse(data []byte) (ChatMessage, error) {
	var m ChatMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return ChatMessage{}, fmt.Errorf("decoding frame: %w", err)
	}
	return m, nil
}

// ParseBatch decodes a JSON array of messages, as returned by the history
// endpoint.
func ParseBatch(data []byte) ([]ChatMessage, error) {
	var out []ChatMessage
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding history: %w", err)
	}
	return out, nil
}
