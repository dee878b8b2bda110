package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/teemow/calbot/internal/agent"
	"github.com/teemow/calbot/internal/calendar"
	"github.com/teemow/calbot/internal/config"
	"github.com/teemow/calbot/internal/tools"
)

var errBoom = errors.New("boom")

// chatLog records messenger traffic in order.
type chatLog struct {
	mu      sync.Mutex
	events  []string
	posts   []string
	n       int
	postErr func(text string) error
	delErr  error
}

// Post and Delete fail on a finished context, like a real HTTP call.
func (c *chatLog) Post(ctx context.Context, channel, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.postErr != nil {
		if err := c.postErr(text); err != nil {
			return "", err
		}
	}
	c.n++
	ts := fmt.Sprintf("100.%03d", c.n)
	c.events = append(c.events, "post "+channel+" "+text)
	c.posts = append(c.posts, text)
	return ts, nil
}

func (c *chatLog) Delete(ctx context.Context, channel, ts string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.delErr != nil {
		return c.delErr
	}
	c.events = append(c.events, "delete "+channel+" "+ts)
	return nil
}

func (c *chatLog) snapshot() ([]string, []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...), append([]string(nil), c.posts...)
}

// fakeCalendar is an in-memory tools.CalendarGateway.
type fakeCalendar struct {
	mu      sync.Mutex
	drafts  []calendar.Draft
	nextIDs [][]string
	next    *calendar.Next
}

func (f *fakeCalendar) ListEvents(context.Context, string, calendar.Window) ([]calendar.Event, error) {
	return nil, nil
}

func (f *fakeCalendar) FindEvents(context.Context, string, string, calendar.Window) ([]calendar.Event, error) {
	return nil, nil
}

func (f *fakeCalendar) CreateEvent(_ context.Context, calendarID string, d calendar.Draft) (*calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drafts = append(f.drafts, d)
	return &calendar.Event{
		ID:          fmt.Sprintf("ev%d", len(f.drafts)),
		CalendarID:  calendarID,
		Title:       d.Title,
		Description: d.Description,
		Start:       d.Start,
		End:         d.End,
		Color:       d.Color,
	}, nil
}

func (f *fakeCalendar) UpdateEvent(context.Context, string, string, calendar.Patch) (*calendar.Event, error) {
	return nil, calendar.ErrNotFound
}

func (f *fakeCalendar) DeleteEvent(context.Context, string, string) error {
	return nil
}

func (f *fakeCalendar) NextEvent(_ context.Context, ids ...string) (*calendar.Next, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextIDs = append(f.nextIDs, ids)
	if f.next != nil {
		return f.next, nil
	}
	return &calendar.Next{}, nil
}

// scriptedModel replays responses and records requests.
type scriptedModel struct {
	mu        sync.Mutex
	responses []*agent.Response
	requests  []agent.Request
	err       error
	panics    bool
	gate      chan struct{}
}

func (m *scriptedModel) Name() string { return "scripted" }

func (m *scriptedModel) Complete(_ context.Context, req agent.Request) (*agent.Response, error) {
	if m.gate != nil {
		<-m.gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.panics {
		panic("model exploded")
	}
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return nil, errors.New("script exhausted")
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

// stalledModel blocks until the request context is done.
type stalledModel struct{}

func (stalledModel) Name() string { return "stalled" }

func (stalledModel) Complete(ctx context.Context, _ agent.Request) (*agent.Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func toolCall(id, name, input string) *agent.Response {
	return &agent.Response{
		Stop: agent.StopToolUse,
		Blocks: []agent.Block{{
			Type: agent.BlockToolUse,
			Call: &tools.Call{ID: id, Name: name, Input: []byte(input)},
		}},
	}
}

func finalText(text string) *agent.Response {
	return &agent.Response{Stop: agent.StopEndTurn, Blocks: []agent.Block{agent.TextBlock(text)}}
}

func testConfig() *config.Config {
	return &config.Config{
		Slack:  config.SlackConfig{AllowedUserIDs: []string{"U_ALICE", "U_NOPROFILE"}},
		Digest: config.DigestConfig{Timezone: "America/Denver"},
		Users: []config.UserProfile{{
			ID:       "U_ALICE",
			Name:     "Alice",
			Calendar: "alice@example.com",
			Timezone: "America/Denver",
			Routes:   []config.Route{{Label: "work", Calendar: "work@example.com"}},
		}},
	}
}

var testNow = time.Date(2024, time.January, 15, 17, 0, 0, 0, time.UTC)
