package format

import (
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout      = "Jan 2, 2006"
	dateTimeLayout  = "Jan 2, 2006 at 3:04 PM"
	dateInputLayout = "2006-01-02"
	// dateTimeInputLayout matches <input type="datetime-local">.
	dateTimeInputLayout = "2006-01-02T15:04"
)

// FormatDate renders a date for display; the zero time renders as "".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// FormatDateTime renders a timestamp for display.
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateTimeLayout)
}

// DateInput renders t for an <input type="date"> value.
func DateInput(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateInputLayout)
}

// DateTimeInput renders t for an <input type="datetime-local"> value.
func DateTimeInput(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateTimeInputLayout)
}

// ParseDateInput parses a "2006-01-02" form value in loc.
func ParseDateInput(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateInputLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// ParseDateTimeInput parses a datetime-local form value, falling back to a bare date.
func ParseDateTimeInput(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(dateTimeInputLayout, s, loc); err == nil {
		return t, nil
	}
	return ParseDateInput(s, loc)
}

// DealWindow describes when a deal is valid ("Mar 1, 2025 – Mar 31, 2025").
func DealWindow(start, end time.Time) string {
	switch {
	case start.IsZero() && end.IsZero():
		return "No end date"
	case start.IsZero():
		return "Until " + FormatDate(end)
	case end.IsZero():
		return "From " + FormatDate(start)
	case start.Year() == end.Year() && start.YearDay() == end.YearDay():
		return FormatDate(start)
	default:
		return FormatDate(start) + " – " + FormatDate(end)
	}
}

// TimeAgo renders the age of t relative to now ("5 minutes ago").
func TimeAgo(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour") + " ago"
	case d < 30*24*time.Hour:
		return plural(int(d/(24*time.Hour)), "day") + " ago"
	default:
		return FormatDate(t)
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
