package protocol

import (
	"errors"
	"fmt"
)

// ErrBadCount is returned by Dispatch for a USER_COUNT frame whose count
// cannot be read.
var ErrBadCount = errors.New("unreadable user count")

// Handler receives inbound messages by type. Adding a message type adds a
// method here, so every implementation has to handle it before the module
// compiles again.
type Handler interface {
	HandleChat(m ChatMessage)
	HandleJoin(m ChatMessage)
	HandleLeave(m ChatMessage)
	HandleError(m ChatMessage)
	HandleUserCount(m ChatMessage, count int)
	// HandleUnknown receives frames with an unrecognised or empty type.
	HandleUnknown(m ChatMessage)
}

// Dispatch routes m to the matching Handler method. A USER_COUNT frame
// without a readable count reaches no method and yields ErrBadCount.
func Dispatch(m ChatMessage, h Handler) error {
	switch m.Type {
	case TypeChat:
		h.HandleChat(m)
	case TypeJoin:
		h.HandleJoin(m)
	case TypeLeave:
		h.HandleLeave(m)
	case TypeError:
		h.HandleError(m)
	case TypeUserCount:
		n, ok := m.UserCount()
		if !ok {
			return fmt.Errorf("%w: %q", ErrBadCount, m.Message)
		}
		h.HandleUserCount(m, n)
	default:
		h.HandleUnknown(m)
	}
	return nil
}
