package google

import (
	calendar "google.golang.org/api/calendar/v3"
)

// CalendarScopes are the OAuth scopes calbot requests. Full calendar access
// is needed to create, move and delete events.
var CalendarScopes = []string{
	calendar.CalendarScope,
}
