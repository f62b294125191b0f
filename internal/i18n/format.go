package i18n

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// defaultTimeLayout is used when a catalog has no format.time entry.
const defaultTimeLayout = "15:04:05"

var placeholder = regexp.MustCompile(`\{(\d+)\}`)

// substitute replaces {0}, {1}, … with the positional args. Placeholders
// without a matching argument are left as they are.
func substitute(tmpl string, args []any) string {
	if len(args) == 0 || !strings.Contains(tmpl, "{") {
		return tmpl
	}
	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		i, err := strconv.Atoi(m[1 : len(m)-1])
		if err != nil || i >= len(args) {
			return m
		}
		return fmt.Sprint(args[i])
	})
}

// timestampLayouts are tried in order. Zone-less values come from servers
// that serialise a local date-time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
