package session

import "fmt"

// ValidationError reports a missing required input. No state changes.
type ValidationError struct {
	Field string // "name" or "message"
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// Key returns the translation key of the user-facing message.
func (e *ValidationError) Key() string {
	if e.Field == "message" {
		return "ui.error.message.required"
	}
	return "ui.error.name.required"
}

// Args returns the template arguments for Key.
func (e *ValidationError) Args() []any { return nil }

// NotConnectedError is returned by Send outside the Connected state.
type NotConnectedError struct {
	State State
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("not connected (state %s)", e.State)
}

// Key returns the translation key of the user-facing message.
func (e *NotConnectedError) Key() string { return "ui.error.not.connected" }

// Args returns the template arguments for Key.
func (e *NotConnectedError) Args() []any { return nil }

// ConnectionError reports a transport failure. It always leaves the
// session Disconnected.
type ConnectionError struct {
	Op  string // "dial", "read" or "write"
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Key returns the translation key of the user-facing message.
func (e *ConnectionError) Key() string {
	switch e.Op {
	case "dial":
		return "ui.error.connection.failed"
	case "write":
		return "ui.error.send.failed"
	}
	return "ui.error.websocket"
}

// Args returns the template arguments for Key.
func (e *ConnectionError) Args() []any { return []any{e.Err} }

// ProtocolError reports an inbound frame that could not be decoded. The
// session carries on.
type ProtocolError struct {
	Raw []byte
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Key returns the translation key of the user-facing message.
func (e *ProtocolError) Key() string { return "ui.error.display.message" }

// Args returns the template arguments for Key.
func (e *ProtocolError) Args() []any { return nil }

// HistoryFetchError reports that the history could not be retrieved. The
// session stays usable with an empty history.
type HistoryFetchError struct {
	Err error
}

func (e *HistoryFetchError) Error() string {
	return fmt.Sprintf("fetching history: %v", e.Err)
}

func (e *HistoryFetchError) Unwrap() error { return e.Err }

// Key returns the translation key of the user-facing message.
func (e *HistoryFetchError) Key() string { return "ui.error.history" }

// Args returns the template arguments for Key.
func (e *HistoryFetchError) Args() []any { return nil }
