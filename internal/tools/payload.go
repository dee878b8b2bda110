package tools

import (
	"time"

	"github.com/teemow/calbot/internal/calendar"
)

type eventPayload struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	AllDay      bool     `json:"all_day,omitempty"`
	Calendar    string   `json:"calendar"`
	Color       string   `json:"color,omitempty"`
	Attendees   []string `json:"attendees,omitempty"`
	Link        string   `json:"link,omitempty"`
}

type nextPayload struct {
	Next      *eventPayload `json:"next,omitempty"`
	Remaining int           `json:"remaining_count"`
}

type messagePayload struct {
	Message string `json:"message"`
}

type deletePayload struct {
	Success  bool   `json:"success"`
	Calendar string `json:"calendar"`
}

func (d *Dispatcher) toPayload(e calendar.Event) eventPayload {
	p := eventPayload{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		AllDay:      e.AllDay,
		Calendar:    d.router.Label(e.CalendarID),
		Color:       e.Color,
		Attendees:   e.Attendees,
		Link:        e.Link,
	}
	layout := time.RFC3339
	if e.AllDay {
		layout = time.DateOnly
	}
	if !e.Start.IsZero() {
		p.Start = e.Start.In(d.loc).Format(layout)
	}
	if !e.End.IsZero() {
		p.End = e.End.In(d.loc).Format(layout)
	}
	return p
}

func (d *Dispatcher) toPayloads(events []calendar.Event) []eventPayload {
	out := make([]eventPayload, 0, len(events))
	for _, e := range events {
		out = append(out, d.toPayload(e))
	}
	return out
}
