// Package presence keeps the last known number of users in the room.
package presence

// Pluralizer renders a count under the current locale.
type Pluralizer interface {
	Pluralize(key string, count int, args ...any) string
}

// TextKey is the catalog key of the counter text.
const TextKey = "users.online"

// Tracker stores the raw count. The display text is derived on every call,
// so a locale switch never leaves stale wording behind.
type Tracker struct {
	count int
	known bool
}

// Update records a USER_COUNT value. Negative values are treated as zero.
func (t *Tracker) Update(count int) {
	if count < 0 {
		count = 0
	}
	t.count = count
	t.known = true
}

// Reset hides the counter until the next Update.
func (t *Tracker) Reset() {
	t.count = 0
	t.known = false
}

// Visible reports whether a count has been received.
func (t *Tracker) Visible() bool { return t.known }

// Count returns the last count, or 0 when hidden.
func (t *Tracker) Count() int { return t.count }

// Text returns the localized counter text, or "" when hidden.
func (t *Tracker) Text(p Pluralizer) string {
	if !t.known {
		return ""
	}
	return p.Pluralize(TextKey, t.count)
}
