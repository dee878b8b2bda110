package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/calbot/internal/instrumentation"
	"github.com/teemow/calbot/internal/logging"
	"github.com/teemow/calbot/internal/timezone"
)

// Result caps and default windows.
const (
	ListLimit = 20
	FindLimit = 10
	NextLimit = 20

	DefaultListWindow = 7 * 24 * time.Hour
	DefaultFindWindow = 30 * 24 * time.Hour

	// DefaultTimeout bounds every call to the Calendar API.
	DefaultTimeout = 30 * time.Second
)

// NothingScheduled is the message returned when no event remains today.
const NothingScheduled = "Nothing scheduled for the rest of today."

// Client is a Google Calendar gateway bound to one account and one timezone.
// It is safe for concurrent use.
type Client struct {
	svc     *calendar.Service
	account string
	loc     *time.Location
	now     func() time.Time
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLocation sets the timezone used for default windows, all-day events and
// event writes.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMetrics records calendar operation metrics.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the named account using the given token source.
func NewClient(ctx context.Context, account string, ts oauth2.TokenSource, opts ...Option) (*Client, error) {
	if ts == nil {
		return nil, fmt.Errorf("no token source for account %s", account)
	}

	httpClient := &http.Client{
		Timeout:   DefaultTimeout,
		Transport: &oauth2.Transport{Source: ts, Base: http.DefaultTransport},
	}

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create calendar service for account %s: %w", account, err)
	}

	return NewClientWithService(svc, account, opts...), nil
}

// NewClientWithService wraps an existing Calendar service.
func NewClientWithService(svc *calendar.Service, account string, opts ...Option) *Client {
	c := &Client{
		svc:     svc,
		account: account,
		loc:     time.UTC,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logging.Account(account))
	return c
}

// Account returns the account name the client is bound to.
func (c *Client) Account() string {
	return c.account
}

// Location returns the client's timezone.
func (c *Client) Location() *time.Location {
	return c.loc
}

// In returns a copy of the client that works in loc.
func (c *Client) In(loc *time.Location) *Client {
	cp := *c
	if loc != nil {
		cp.loc = loc
	}
	return &cp
}

// observe starts a span for op and returns a func that ends it and records
// the outcome.
func (c *Client) observe(ctx context.Context, op, calendarID string) (context.Context, func(error)) {
	ctx, span := instrumentation.StartCalendarSpan(ctx, op, calendarID)
	start := time.Now()
	return ctx, func(err error) {
		c.metrics.RecordCalendarOperation(ctx, op, calendarID, instrumentation.StatusFor(err), time.Since(start))
		if err != nil {
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		span.End()
	}
}

// ListEvents returns up to ListLimit events in w ordered by start time.
// Recurring events are expanded. Zero bounds default to now and now+7d.
func (c *Client) ListEvents(ctx context.Context, calendarID string, w Window) (_ []Event, err error) {
	ctx, done := c.observe(ctx, instrumentation.OperationList, calendarID)
	defer func() { done(err) }()

	now := c.now()
	if w.Start.IsZero() {
		w.Start = now
	}
	if w.End.IsZero() {
		w.End = now.Add(DefaultListWindow)
	}

	return c.list(ctx, instrumentation.OperationList, calendarID, "", w, ListLimit)
}

// FindEvents searches event text for query. Zero bounds default to the start
// of today and now+30d.
func (c *Client) FindEvents(ctx context.Context, calendarID, query string, w Window) (_ []Event, err error) {
	ctx, done := c.observe(ctx, instrumentation.OperationFind, calendarID)
	defer func() { done(err) }()

	if strings.TrimSpace(query) == "" {
		return nil, &ValidationError{Field: "query", Reason: "is required"}
	}

	now := c.now()
	if w.Start.IsZero() {
		w.Start = timezone.DayBounds(now, c.loc).Start
	}
	if w.End.IsZero() {
		w.End = now.Add(DefaultFindWindow)
	}

	return c.list(ctx, instrumentation.OperationFind, calendarID, query, w, FindLimit)
}

func (c *Client) list(ctx context.Context, op, calendarID, query string, w Window, limit int64) ([]Event, error) {
	call := c.svc.Events.List(calendarID).
		Context(ctx).
		TimeMin(w.Start.Format(time.RFC3339)).
		TimeMax(w.End.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(limit)
	if query != "" {
		call = call.Q(query)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, classify(op, calendarID, err)
	}

	events := make([]Event, 0, len(resp.Items))
	for _, item := range resp.Items {
		events = append(events, toEvent(calendarID, item, c.loc))
	}
	return events, nil
}

// CreateEvent creates an event. Start and End are written in the client's
// timezone; ordering of start and end is left to Google.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, d Draft) (_ *Event, err error) {
	ctx, done := c.observe(ctx, instrumentation.OperationCreate, calendarID)
	defer func() { done(err) }()

	if strings.TrimSpace(d.Title) == "" {
		return nil, &ValidationError{Field: "title", Reason: "is required"}
	}
	if d.Start.IsZero() {
		return nil, &ValidationError{Field: "start", Reason: "is required"}
	}
	if d.End.IsZero() {
		return nil, &ValidationError{Field: "end", Reason: "is required"}
	}

	ev := &calendar.Event{
		Summary:     d.Title,
		Description: d.Description,
		Start:       toEventDateTime(d.Start, c.loc),
		End:         toEventDateTime(d.End, c.loc),
	}

	if d.Color != "" {
		id, err := ColorID(d.Color)
		if err != nil {
			return nil, err
		}
		ev.ColorId = id
	}

	for _, email := range d.Attendees {
		if email = strings.TrimSpace(email); email != "" {
			ev.Attendees = append(ev.Attendees, &calendar.EventAttendee{Email: email})
		}
	}

	if len(d.Reminders) > 0 {
		ev.Reminders = toReminders(d.Reminders)
	}

	created, err := c.svc.Events.Insert(calendarID, ev).Context(ctx).Do()
	if err != nil {
		return nil, classify(instrumentation.OperationCreate, calendarID, err)
	}

	out := toEvent(calendarID, created, c.loc)
	c.logger.Debug("created event", logging.Calendar(calendarID), slog.String("event_id", out.ID))
	return &out, nil
}

// UpdateEvent applies p to an existing event. The event is read first so that
// fields absent from p keep their current values.
func (c *Client) UpdateEvent(ctx context.Context, calendarID, eventID string, p Patch) (_ *Event, err error) {
	ctx, done := c.observe(ctx, instrumentation.OperationUpdate, calendarID)
	defer func() { done(err) }()

	if eventID == "" {
		return nil, &ValidationError{Field: "event_id", Reason: "is required"}
	}

	existing, err := c.svc.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, classify(instrumentation.OperationUpdate, calendarID, err)
	}

	if p.Title != nil {
		existing.Summary = *p.Title
	}
	if p.Description != nil {
		existing.Description = *p.Description
	}
	if p.Start != nil {
		existing.Start = toEventDateTime(*p.Start, c.loc)
	}
	if p.End != nil {
		existing.End = toEventDateTime(*p.End, c.loc)
	}
	if p.Color != nil {
		id, err := ColorID(*p.Color)
		if err != nil {
			return nil, err
		}
		existing.ColorId = id
	}

	updated, err := c.svc.Events.Update(calendarID, eventID, existing).Context(ctx).Do()
	if err != nil {
		return nil, classify(instrumentation.OperationUpdate, calendarID, err)
	}

	out := toEvent(calendarID, updated, c.loc)
	return &out, nil
}

// DeleteEvent deletes an event. Deleting an event twice returns ErrNotFound.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) (err error) {
	ctx, done := c.observe(ctx, instrumentation.OperationDelete, calendarID)
	defer func() { done(err) }()

	if eventID == "" {
		return &ValidationError{Field: "event_id", Reason: "is required"}
	}

	if err := c.svc.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return classify(instrumentation.OperationDelete, calendarID, err)
	}
	return nil
}

// NextEvent returns the earliest event between now and the end of today
// across calendarIDs. A calendar that fails is logged and skipped; the call
// only fails when every calendar fails.
func (c *Client) NextEvent(ctx context.Context, calendarIDs ...string) (_ *Next, err error) {
	ctx, done := c.observe(ctx, instrumentation.OperationNext, strings.Join(calendarIDs, ","))
	defer func() { done(err) }()

	if len(calendarIDs) == 0 {
		return nil, &ValidationError{Field: "calendar", Reason: "at least one calendar is required"}
	}

	now := c.now()
	w := Window{Start: now, End: timezone.DayBounds(now, c.loc).End}

	var (
		mu     sync.Mutex
		merged []Event
		errs   []error
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range calendarIDs {
		g.Go(func() error {
			events, err := c.list(gctx, instrumentation.OperationNext, id, "", w, NextLimit)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				c.logger.Warn("skipping calendar in next event lookup",
					logging.Calendar(id), logging.Err(err))
				errs = append(errs, err)
				return nil
			}
			merged = append(merged, events...)
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) == len(calendarIDs) {
		return nil, errs[0]
	}

	merged = dedupe(merged)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Start.Before(merged[j].Start)
	})

	if len(merged) == 0 {
		return &Next{}, nil
	}
	next := merged[0]
	return &Next{Event: &next, Remaining: len(merged) - 1}, nil
}

// dedupe drops events that appear on several calendars, such as an
// invitation accepted on both. Google keeps the event id across the
// calendars an invitation lands on; events without an id fall back to
// title and time.
func dedupe(events []Event) []Event {
	type key struct {
		id         string
		title      string
		start, end int64
	}
	seen := make(map[key]bool, len(events))
	out := events[:0]
	for _, e := range events {
		k := key{id: e.ID}
		if e.ID == "" {
			k = key{title: e.Title, start: e.Start.Unix(), end: e.End.Unix()}
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return out
}
