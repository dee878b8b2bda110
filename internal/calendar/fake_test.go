package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// fakeCalendar is an in-memory stand-in for the Calendar v3 REST API.
type fakeCalendar struct {
	mu      sync.Mutex
	events  map[string]map[string]*calendar.Event
	failing map[string]int
	nextID  int

	lastQuery url.Values
	lastBody  map[string]any
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{
		events:  make(map[string]map[string]*calendar.Event),
		failing: make(map[string]int),
	}
}

func (f *fakeCalendar) add(cal string, e *calendar.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.events[cal] == nil {
		f.events[cal] = make(map[string]*calendar.Event)
	}
	f.events[cal][e.Id] = e
}

func (f *fakeCalendar) fail(cal string, code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[cal] = code
}

func (f *fakeCalendar) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /calendars/{cal}/events", f.list)
	mux.HandleFunc("POST /calendars/{cal}/events", f.insert)
	mux.HandleFunc("GET /calendars/{cal}/events/{id}", f.get)
	mux.HandleFunc("PUT /calendars/{cal}/events/{id}", f.update)
	mux.HandleFunc("DELETE /calendars/{cal}/events/{id}", f.delete)
	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{"code": code, "message": msg},
	})
}

func (f *fakeCalendar) failed(w http.ResponseWriter, cal string) bool {
	if code, ok := f.failing[cal]; ok {
		writeError(w, code, fmt.Sprintf("backend error for %s", cal))
		return true
	}
	return false
}

func (f *fakeCalendar) list(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cal := r.PathValue("cal")
	f.lastQuery = r.URL.Query()
	if f.failed(w, cal) {
		return
	}

	minT, _ := time.Parse(time.RFC3339, r.URL.Query().Get("timeMin"))
	maxT, _ := time.Parse(time.RFC3339, r.URL.Query().Get("timeMax"))

	var items []*calendar.Event
	for _, e := range f.events[cal] {
		start, _ := time.Parse(time.RFC3339, e.Start.DateTime)
		end, _ := time.Parse(time.RFC3339, e.End.DateTime)
		if e.Start.Date != "" {
			start, _ = time.Parse(dateLayout, e.Start.Date)
			end, _ = time.Parse(dateLayout, e.End.Date)
		}
		if !end.After(minT) || !start.Before(maxT) {
			continue
		}
		items = append(items, e)
	}
	// Order by start like orderBy=startTime.
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && startOf(items[j]).Before(startOf(items[j-1])); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
	writeJSON(w, http.StatusOK, &calendar.Events{Items: items})
}

func startOf(e *calendar.Event) time.Time {
	if e.Start.Date != "" {
		t, _ := time.Parse(dateLayout, e.Start.Date)
		return t
	}
	t, _ := time.Parse(time.RFC3339, e.Start.DateTime)
	return t
}

func (f *fakeCalendar) insert(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cal := r.PathValue("cal")
	if f.failed(w, cal) {
		return
	}

	var raw map[string]any
	var ev calendar.Event
	body := json.NewDecoder(r.Body)
	if err := body.Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f.lastBody = raw
	b, _ := json.Marshal(raw)
	_ = json.Unmarshal(b, &ev)

	start, _ := time.Parse(time.RFC3339, ev.Start.DateTime)
	end, _ := time.Parse(time.RFC3339, ev.End.DateTime)
	if !end.After(start) {
		writeError(w, http.StatusBadRequest, "The specified time range is empty.")
		return
	}

	f.nextID++
	ev.Id = fmt.Sprintf("evt%d", f.nextID)
	ev.HtmlLink = "https://calendar.google.com/event?eid=" + ev.Id
	if f.events[cal] == nil {
		f.events[cal] = make(map[string]*calendar.Event)
	}
	f.events[cal][ev.Id] = &ev
	writeJSON(w, http.StatusOK, &ev)
}

func (f *fakeCalendar) get(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ev, ok := f.events[r.PathValue("cal")][r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (f *fakeCalendar) update(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cal, id := r.PathValue("cal"), r.PathValue("id")
	if _, ok := f.events[cal][id]; !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	var ev calendar.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ev.Id = id
	f.events[cal][id] = &ev
	writeJSON(w, http.StatusOK, &ev)
}

func (f *fakeCalendar) delete(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cal, id := r.PathValue("cal"), r.PathValue("id")
	if _, ok := f.events[cal][id]; !ok {
		writeError(w, http.StatusGone, "Resource has been deleted")
		return
	}
	delete(f.events[cal], id)
	w.WriteHeader(http.StatusNoContent)
}

// newTestClient starts the fake and returns a client talking to it.
func newTestClient(t *testing.T, f *fakeCalendar, opts ...Option) *Client {
	t.Helper()

	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	svc, err := calendar.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	return NewClientWithService(svc, "test", opts...)
}

func timedEvent(id, title string, start, end time.Time) *calendar.Event {
	return &calendar.Event{
		Id:      id,
		Summary: title,
		Start:   &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:     &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}
}

var calendarEventAllDay = calendar.Event{
	Id:      "holiday",
	Summary: "Holiday",
	Start:   &calendar.EventDateTime{Date: "2024-01-16"},
	End:     &calendar.EventDateTime{Date: "2024-01-17"},
}
