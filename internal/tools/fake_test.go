package tools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/teemow/calbot/internal/calendar"
)

// fakeGateway records calls and returns canned results.
type fakeGateway struct {
	mu sync.Mutex

	calls   []string
	window  calendar.Window
	query   string
	draft   calendar.Draft
	patch   calendar.Patch
	eventID string
	nextIDs []string

	events []calendar.Event
	next   *calendar.Next
	err    error
}

func (f *fakeGateway) record(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeGateway) ListEvents(_ context.Context, calendarID string, w calendar.Window) ([]calendar.Event, error) {
	f.record("list %s", calendarID)
	f.window = w
	return f.events, f.err
}

func (f *fakeGateway) FindEvents(_ context.Context, calendarID, query string, w calendar.Window) ([]calendar.Event, error) {
	f.record("find %s", calendarID)
	f.query, f.window = query, w
	return f.events, f.err
}

func (f *fakeGateway) CreateEvent(_ context.Context, calendarID string, d calendar.Draft) (*calendar.Event, error) {
	f.record("create %s", calendarID)
	f.draft = d
	if f.err != nil {
		return nil, f.err
	}
	return &calendar.Event{
		ID:         "new1",
		CalendarID: calendarID,
		Title:      d.Title,
		Start:      d.Start,
		End:        d.End,
		Color:      calendar.ColorName(d.Color),
		Link:       "https://calendar.google.com/event?eid=new1",
	}, nil
}

func (f *fakeGateway) UpdateEvent(_ context.Context, calendarID, eventID string, p calendar.Patch) (*calendar.Event, error) {
	f.record("update %s %s", calendarID, eventID)
	f.eventID, f.patch = eventID, p
	if f.err != nil {
		return nil, f.err
	}
	ev := calendar.Event{ID: eventID, CalendarID: calendarID, Title: "unchanged"}
	if p.Title != nil {
		ev.Title = *p.Title
	}
	return &ev, nil
}

func (f *fakeGateway) DeleteEvent(_ context.Context, calendarID, eventID string) error {
	f.record("delete %s %s", calendarID, eventID)
	f.eventID = eventID
	return f.err
}

func (f *fakeGateway) NextEvent(_ context.Context, calendarIDs ...string) (*calendar.Next, error) {
	f.record("next")
	f.nextIDs = calendarIDs
	if f.err != nil {
		return nil, f.err
	}
	if f.next == nil {
		return &calendar.Next{}, nil
	}
	return f.next, nil
}

var testLoc = func() *time.Location {
	loc, err := time.LoadLocation("America/Denver")
	if err != nil {
		panic(err)
	}
	return loc
}()

func testRouter() *Router {
	return NewRouter("me@example.com", []Route{
		{Label: "work", Calendar: "work@example.com"},
		{Label: "business", Calendar: "biz@example.com"},
	})
}
