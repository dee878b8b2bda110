package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teemow/calbot/internal/calendar"
	"github.com/teemow/calbot/internal/instrumentation"
	"github.com/teemow/calbot/internal/logging"
)

// CalendarGateway is the subset of the calendar client the tools use.
type CalendarGateway interface {
	ListEvents(ctx context.Context, calendarID string, w calendar.Window) ([]calendar.Event, error)
	FindEvents(ctx context.Context, calendarID, query string, w calendar.Window) ([]calendar.Event, error)
	CreateEvent(ctx context.Context, calendarID string, d calendar.Draft) (*calendar.Event, error)
	UpdateEvent(ctx context.Context, calendarID, eventID string, p calendar.Patch) (*calendar.Event, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
	NextEvent(ctx context.Context, calendarIDs ...string) (*calendar.Next, error)
}

// Options configure a Dispatcher. Calendar and Router are required.
type Options struct {
	Calendar CalendarGateway
	Router   *Router
	Location *time.Location

	// UserMessage is the chat message that started the exchange. It feeds
	// title tagging on create.
	UserMessage string
	UserID      string
	TurnID      string

	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
	Logger  *slog.Logger
}

// Dispatcher executes tool calls for one user message. Every failure,
// including a panic in a handler, is turned into an error Result.
type Dispatcher struct {
	cal         CalendarGateway
	router      *Router
	loc         *time.Location
	userMessage string
	userID      string
	turnID      string

	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
	logger  *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(opts Options) (*Dispatcher, error) {
	if opts.Calendar == nil {
		return nil, errors.New("calendar gateway is required")
	}
	if opts.Router == nil {
		return nil, errors.New("calendar router is required")
	}

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		cal:         opts.Calendar,
		router:      opts.Router,
		loc:         loc,
		userMessage: opts.UserMessage,
		userID:      opts.UserID,
		turnID:      opts.TurnID,
		metrics:     opts.Metrics,
		audit:       opts.Audit,
		logger:      logging.WithComponent(logger, "tools"),
	}, nil
}

// Specs returns the tool declarations offered to the model.
func (d *Dispatcher) Specs() []Spec {
	return Specs()
}

type handlerFunc func(ctx context.Context, d *Dispatcher, input json.RawMessage) (any, string, error)

var handlers = map[string]handlerFunc{
	ToolListEvents:  handleListEvents,
	ToolNextEvent:   handleNextEvent,
	ToolCreateEvent: handleCreateEvent,
	ToolUpdateEvent: handleUpdateEvent,
	ToolDeleteEvent: handleDeleteEvent,
	ToolFindEvent:   handleFindEvent,
}

// Execute runs one call. It never returns an error: failures become a
// {"error": "..."} payload for the model.
func (d *Dispatcher) Execute(ctx context.Context, call Call) Result {
	ctx, span := instrumentation.StartToolSpan(ctx, call.Name)
	defer span.End()

	start := time.Now()
	invocation := instrumentation.NewToolInvocation(call.Name).
		WithUser(d.userID, d.turnID).
		WithCall(call.ID).
		WithSpanContext(ctx)

	logger := logging.WithTool(d.logger, call.Name)
	logger.Debug("executing tool", slog.String("input", string(call.Input)))

	payload, calendarID, err := d.run(ctx, call)
	if calendarID != "" {
		invocation.WithCalendar(calendarID)
	}

	var body []byte
	if err == nil {
		body, err = json.Marshal(payload)
	}

	invocation.Complete(err)
	d.metrics.RecordToolInvocation(ctx, call.Name, instrumentation.StatusFor(err), time.Since(start))
	d.audit.LogToolInvocation(invocation)

	if err != nil {
		instrumentation.SetSpanError(span, err)
		logger.Warn("tool failed", logging.Err(err))
		return Result{CallID: call.ID, Payload: errorPayload(err), IsError: true}
	}

	instrumentation.SetSpanSuccess(span)
	return Result{CallID: call.ID, Payload: string(body)}
}

func (d *Dispatcher) run(ctx context.Context, call Call) (payload any, calendarID string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", call.Name, r)
		}
	}()

	h, ok := handlers[call.Name]
	if !ok {
		return nil, "", fmt.Errorf("unknown tool: %s", call.Name)
	}
	return h(ctx, d, call.Input)
}

func handleListEvents(ctx context.Context, d *Dispatcher, input json.RawMessage) (any, string, error) {
	var args listArgs
	if err := decode(input, &args); err != nil {
		return nil, "", err
	}
	w, err := parseWindow(args.StartDate, args.EndDate, d.loc)
	if err != nil {
		return nil, "", err
	}

	calendarID := d.router.Resolve(args.Calendar)
	events, err := d.cal.ListEvents(ctx, calendarID, w)
	if err != nil {
		return nil, calendarID, err
	}
	return d.toPayloads(events), calendarID, nil
}

func handleNextEvent(ctx context.Context, d *Dispatcher, input json.RawMessage) (any, string, error) {
	var args nextArgs
	if err := decode(input, &args); err != nil {
		return nil, "", err
	}

	ids := d.router.Calendars()
	if args.IncludeAllCalendars != nil && !*args.IncludeAllCalendars {
		ids = []string{d.router.Resolve(args.Calendar)}
	}

	next, err := d.cal.NextEvent(ctx, ids...)
	if err != nil {
		return nil, "", err
	}
	if next.Event == nil {
		return messagePayload{Message: calendar.NothingScheduled}, "", nil
	}
	p := d.toPayload(*next.Event)
	return nextPayload{Next: &p, Remaining: next.Remaining}, next.Event.CalendarID, nil
}

func handleCreateEvent(ctx context.Context, d *Dispatcher, input json.RawMessage) (any, string, error) {
	var args createArgs
	if err := decode(input, &args); err != nil {
		return nil, "", err
	}

	start, err := parseTime("start_time", args.StartTime, d.loc)
	if err != nil {
		return nil, "", err
	}
	end, err := parseTime("end_time", args.EndTime, d.loc)
	if err != nil {
		return nil, "", err
	}

	draft := calendar.Draft{
		Title:       args.Title,
		Description: args.Description,
		Start:       start,
		End:         end,
	}
	if args.IsFollowup {
		draft.Title, draft.Description = FollowUp(args.Title, args.Description)
		draft.Reminders = FollowUpReminders
		draft.Attendees = args.Attendees
	}
	draft.Title, draft.Color = ApplyTag(draft.Title, d.userMessage)

	calendarID := d.router.Resolve(args.Calendar)
	ev, err := d.cal.CreateEvent(ctx, calendarID, draft)
	if err != nil {
		return nil, calendarID, err
	}
	return d.toPayload(*ev), calendarID, nil
}

func handleUpdateEvent(ctx context.Context, d *Dispatcher, input json.RawMessage) (any, string, error) {
	var args updateArgs
	if err := decode(input, &args); err != nil {
		return nil, "", err
	}

	patch := calendar.Patch{
		Title:       args.Title,
		Description: args.Description,
		Color:       args.Color,
	}
	if args.StartTime != nil {
		t, err := parseTime("start_time", *args.StartTime, d.loc)
		if err != nil {
			return nil, "", err
		}
		patch.Start = &t
	}
	if args.EndTime != nil {
		t, err := parseTime("end_time", *args.EndTime, d.loc)
		if err != nil {
			return nil, "", err
		}
		patch.End = &t
	}

	calendarID := d.router.Resolve(args.Calendar)
	ev, err := d.cal.UpdateEvent(ctx, calendarID, args.EventID, patch)
	if err != nil {
		return nil, calendarID, err
	}
	return d.toPayload(*ev), calendarID, nil
}

func handleDeleteEvent(ctx context.Context, d *Dispatcher, input json.RawMessage) (any, string, error) {
	var args deleteArgs
	if err := decode(input, &args); err != nil {
		return nil, "", err
	}

	calendarID := d.router.Resolve(args.Calendar)
	if err := d.cal.DeleteEvent(ctx, calendarID, args.EventID); err != nil {
		return nil, calendarID, err
	}
	return deletePayload{Success: true, Calendar: d.router.Label(calendarID)}, calendarID, nil
}

func handleFindEvent(ctx context.Context, d *Dispatcher, input json.RawMessage) (any, string, error) {
	var args findArgs
	if err := decode(input, &args); err != nil {
		return nil, "", err
	}
	w, err := parseWindow(args.StartDate, args.EndDate, d.loc)
	if err != nil {
		return nil, "", err
	}

	calendarID := d.router.Resolve(args.Calendar)
	events, err := d.cal.FindEvents(ctx, calendarID, args.Query, w)
	if err != nil {
		return nil, calendarID, err
	}
	return d.toPayloads(events), calendarID, nil
}
