// Package calendar is the gateway to Google Calendar.
//
// A Client is bound to one Google account and one timezone. It lists,
// searches, creates, updates and deletes events, and finds the next event
// of the day across several calendars:
//
//	c, err := calendar.NewClient(ctx, "default", ts, calendar.WithLocation(loc))
//	if err != nil {
//	    return err
//	}
//	events, err := c.ListEvents(ctx, "primary", calendar.Window{})
//
// Google errors are mapped onto ErrNotFound, ValidationError and
// RemoteError so callers can branch with errors.Is and errors.As.
package calendar
