package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// Event is a transient copy of a remote calendar event.
type Event struct {
	ID          string
	CalendarID  string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	// AllDay events carry a date only; Start and End are local midnights.
	AllDay    bool
	Color     string
	Attendees []string
	Reminders []Reminder
	Link      string
}

// Reminder is a reminder override on an event.
type Reminder struct {
	Method  string `json:"method"`
	Minutes int64  `json:"minutes"`
}

// Window is a time range for listing or searching. Zero bounds select the
// operation's default.
type Window struct {
	Start time.Time
	End   time.Time
}

// Draft is the input for creating an event. Title, Start and End are required.
type Draft struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	// Color is a symbolic name or palette id; empty keeps the calendar default.
	Color     string
	Attendees []string
	// Reminders replace the calendar's default reminders when non-empty.
	Reminders []Reminder
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Title       *string
	Description *string
	Start       *time.Time
	End         *time.Time
	Color       *string
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Start == nil && p.End == nil && p.Color == nil
}

// Next is the result of a next-event lookup.
type Next struct {
	// Event is nil when nothing else is scheduled today.
	Event *Event
	// Remaining counts the other events later today.
	Remaining int
}

const dateLayout = "2006-01-02"

func toEvent(calendarID string, e *calendar.Event, loc *time.Location) Event {
	if e == nil {
		return Event{CalendarID: calendarID}
	}

	ev := Event{
		ID:          e.Id,
		CalendarID:  calendarID,
		Title:       e.Summary,
		Description: e.Description,
		Color:       ColorName(e.ColorId),
		Link:        e.HtmlLink,
	}

	ev.Start, ev.AllDay = parseEventTime(e.Start, loc)
	ev.End, _ = parseEventTime(e.End, loc)

	for _, a := range e.Attendees {
		if a != nil && a.Email != "" {
			ev.Attendees = append(ev.Attendees, a.Email)
		}
	}
	if e.Reminders != nil {
		for _, r := range e.Reminders.Overrides {
			if r != nil {
				ev.Reminders = append(ev.Reminders, Reminder{Method: r.Method, Minutes: r.Minutes})
			}
		}
	}
	return ev
}

// parseEventTime reads either a timed or a date-only boundary. Date-only
// values are midnights in loc.
func parseEventTime(dt *calendar.EventDateTime, loc *time.Location) (time.Time, bool) {
	if dt == nil {
		return time.Time{}, false
	}
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return t.In(loc), false
		}
	}
	if dt.Date != "" {
		if t, err := time.ParseInLocation(dateLayout, dt.Date, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func toEventDateTime(t time.Time, loc *time.Location) *calendar.EventDateTime {
	return &calendar.EventDateTime{
		DateTime: t.In(loc).Format(time.RFC3339),
		TimeZone: loc.String(),
	}
}

func toReminders(reminders []Reminder) *calendar.EventReminders {
	overrides := make([]*calendar.EventReminder, 0, len(reminders))
	for _, r := range reminders {
		overrides = append(overrides, &calendar.EventReminder{Method: r.Method, Minutes: r.Minutes})
	}
	return &calendar.EventReminders{
		UseDefault: false,
		Overrides:  overrides,
		// UseDefault=false is dropped by omitempty unless forced.
		ForceSendFields: []string{"UseDefault"},
	}
}
