// Package timeutil provides tolerant timestamp parsing and UTC helpers for
// 42Connect. The Intra API reports instants as ISO 8601 strings with varying
// precision and offsets; callers need "parse or treat as absent" semantics.
// No external dependencies - uses only standard library.
package timeutil

import (
	"strconv"
	"strings"
	"time"
)

// instantLayouts are tried in order when parsing an Intra timestamp.
var instantLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseInstant parses an ISO 8601-ish timestamp string.
// Returns the UTC instant and true on success. Empty strings and values no
// layout accepts report false - the caller treats them as absent, never as
// an error.
func ParseInstant(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false
	}

	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}

// ParseInstantPtr is ParseInstant for optional fields: nil when the value is
// absent or unparseable, a *time.Time otherwise.
func ParseInstantPtr(value string) *time.Time {
	t, ok := ParseInstant(value)
	if !ok {
		return nil
	}
	return &t
}

// UTCNow returns the current time in UTC.
func UTCNow() time.Time {
	return time.Now().UTC()
}

// FormatInstant formats an instant as RFC 3339 in UTC.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// FormatInstantPtr formats an optional instant; empty string for nil.
func FormatInstantPtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatInstant(*t)
}

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
)

// FormatRelative returns a short human-readable "time ago" string in English.
// Used by presentation DTOs.
func FormatRelative(t time.Time, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = -d
	}

	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour") + " ago"
	case d < 30*24*time.Hour:
		return plural(int(d.Hours()/24), "day") + " ago"
	case d < 365*24*time.Hour:
		return plural(int(d.Hours()/24/30), "month") + " ago"
	default:
		return t.UTC().Format(FormatDate)
	}
}

func plural(n int, unit string) string {
	if n <= 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}
