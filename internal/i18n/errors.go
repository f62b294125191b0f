package i18n

import (
	"errors"
	"fmt"
)

// ErrSuperseded is returned by SetLocale when a later call has already
// applied its catalog. The engine state is unchanged.
var ErrSuperseded = errors.New("locale change superseded by a newer one")

// LoadError reports that no catalog could be loaded for a locale switch,
// neither for the requested locale nor for the default. The previously
// active catalog remains in effect.
type LoadError struct {
	Locale string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading locale %q: %v", e.Locale, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Key returns the translation key of the user-facing message.
func (e *LoadError) Key() string { return "ui.error.locale" }

// Args returns the template arguments for Key.
func (e *LoadError) Args() []any { return []any{e.Locale} }

// Localized is implemented by errors that carry a translatable message.
type Localized interface {
	Key() string
	Args() []any
}

// Error returns the user-facing text of err in the active locale. Errors
// that do not carry a translation key are shown with their own text.
func (e *Engine) Error(err error) string {
	if err == nil {
		return ""
	}
	var l Localized
	if errors.As(err, &l) {
		return e.Translate(l.Key(), l.Args()...)
	}
	return err.Error()
}
