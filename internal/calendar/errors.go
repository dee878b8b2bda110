package calendar

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// ErrNotFound is returned when the event or calendar does not exist or has
// already been deleted.
var ErrNotFound = errors.New("event not found")

// ValidationError reports input the gateway or Google rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RemoteError wraps a failed Google Calendar call.
type RemoteError struct {
	Op         string
	CalendarID string
	// Code is the HTTP status returned by Google, or 0 for transport errors.
	Code int
	Err  error
}

func (e *RemoteError) Error() string {
	if e.CalendarID != "" {
		return fmt.Sprintf("calendar %s (calendar: %s): %v", e.Op, e.CalendarID, e.Err)
	}
	return fmt.Sprintf("calendar %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// classify maps an error from the Google client onto the gateway's error
// types: 404/410 unwrap to ErrNotFound, 400 becomes a ValidationError
// carrying Google's message verbatim.
func classify(op, calendarID string, err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return &RemoteError{Op: op, CalendarID: calendarID, Err: err}
	}

	switch gerr.Code {
	case http.StatusNotFound, http.StatusGone:
		return &RemoteError{Op: op, CalendarID: calendarID, Code: gerr.Code, Err: ErrNotFound}
	case http.StatusBadRequest:
		msg := gerr.Message
		if msg == "" {
			msg = gerr.Error()
		}
		return &ValidationError{Field: "event", Reason: msg}
	default:
		return &RemoteError{Op: op, CalendarID: calendarID, Code: gerr.Code, Err: err}
	}
}
