package digest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/teemow/calbot/internal/calendar"
)

// Placeholders used when parts of the digest are missing.
const (
	WeatherUnavailable = "Weather: unavailable"
	NoEvents           = "  _No events scheduled_"
)

// Header returns the digest headline for a local date. It is also how an
// already posted digest is recognised.
func Header(day time.Time) string {
	return "Daily Summary for " + day.Format("Monday, January 2, 2006")
}

// Entry is one event line of the digest.
type Entry struct {
	Event calendar.Event
	// Label is appended in parentheses, for events from secondary calendars.
	Label string
}

// Render formats a digest. weatherLine is omitted when empty. Entries are
// sorted by start time.
func Render(day time.Time, loc *time.Location, weatherLine string, entries []Entry) string {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Event.Start.Before(sorted[j].Event.Start)
	})

	var b strings.Builder
	fmt.Fprintf(&b, "📅 *%s*\n", Header(day))
	if weatherLine != "" {
		fmt.Fprintf(&b, "\n%s\n", weatherLine)
	}
	b.WriteString("\n*Today's events:*\n")

	if len(sorted) == 0 {
		b.WriteString(NoEvents + "\n")
		return b.String()
	}

	for _, e := range sorted {
		when := "All day"
		if !e.Event.AllDay {
			when = e.Event.Start.In(loc).Format("3:04 PM")
		}
		title := e.Event.Title
		if title == "" {
			title = "(no title)"
		}
		fmt.Fprintf(&b, "  • %s - %s", when, title)
		if e.Label != "" {
			fmt.Fprintf(&b, " (%s)", e.Label)
		}
		b.WriteString("\n")
	}
	return b.String()
}
